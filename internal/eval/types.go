package eval

// #region eval-config
// EvalConfig holds the invariants checked after every feedback.
type EvalConfig struct {
	ClampMin float64
	ClampMax float64
	Modes    []string // every materialized key must use one of these
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of post-update validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result
