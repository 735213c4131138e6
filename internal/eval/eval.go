package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
)

// #region eval-harness
// EvalHarness validates the association table after an update.
type EvalHarness struct {
	config EvalConfig
	modes  map[string]struct{}
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	modes := make(map[string]struct{}, len(config.Modes))
	for _, m := range config.Modes {
		modes[m] = struct{}{}
	}
	return &EvalHarness{config: config, modes: modes}
}

// Run checks every materialized entry. Bounds and mode membership fail the
// run; the peak magnitude is informational.
func (h *EvalHarness) Run(entries []association.Entry) EvalResult {
	var metrics []EvalMetric
	var failReasons []string

	// 1. Bounds: clamp_min <= β <= clamp_max
	var outOfBounds int
	var firstOut *association.Entry
	for i, e := range entries {
		if math.IsNaN(e.Value) || e.Value < h.config.ClampMin || e.Value > h.config.ClampMax {
			outOfBounds++
			if firstOut == nil {
				firstOut = &entries[i]
			}
		}
	}
	metrics = append(metrics, EvalMetric{Name: "beta_out_of_bounds", Value: float64(outOfBounds), Pass: outOfBounds == 0})
	if firstOut != nil {
		failReasons = append(failReasons, fmt.Sprintf("%s|%s = %v outside [%v, %v]",
			firstOut.Mode, firstOut.Token, firstOut.Value, h.config.ClampMin, h.config.ClampMax))
	}

	// 2. Keys: every mode is configured
	var unknownModes int
	for _, e := range entries {
		if _, ok := h.modes[e.Mode]; !ok {
			if unknownModes == 0 {
				failReasons = append(failReasons, fmt.Sprintf("entry for unconfigured mode %q", e.Mode))
			}
			unknownModes++
		}
	}
	metrics = append(metrics, EvalMetric{Name: "unknown_modes", Value: float64(unknownModes), Pass: unknownModes == 0})

	// 3. Peak magnitude: informational only
	var peak float64
	for _, e := range entries {
		if a := math.Abs(e.Value); a > peak {
			peak = a
		}
	}
	metrics = append(metrics, EvalMetric{Name: "beta_peak_abs", Value: peak, Pass: true})

	reason := "all checks passed"
	passed := len(failReasons) == 0
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness
