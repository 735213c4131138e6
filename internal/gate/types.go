package gate

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoUnknownMode         VetoType = "unknown_mode"
	VetoInvalidReward       VetoType = "invalid_reward"
	VetoInvalidLearningRate VetoType = "invalid_learning_rate"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds the session facts a feedback request is checked against.
type GateConfig struct {
	Modes []string // configured modes; feedback for any other mode is vetoed
}

// #endregion gate-config

// #region request
// Request is the feedback about to be applied.
type Request struct {
	Mode         string
	Tokens       []string
	Reward       float64
	LearningRate float64
}

// #endregion request

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      string // "commit" | "reject"
	Reason      string
	Vetoed      bool
	VetoSignals []VetoSignal // non-empty if vetoed
}

// #endregion gate-decision
