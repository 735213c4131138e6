package gate

import (
	"fmt"
	"math"
)

// #region gate
// Gate decides whether a feedback request may touch the association store.
type Gate struct {
	modes map[string]struct{}
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	modes := make(map[string]struct{}, len(config.Modes))
	for _, m := range config.Modes {
		modes[m] = struct{}{}
	}
	return &Gate{modes: modes}
}

// Evaluate runs every hard veto and rejects on the first hit, reporting all
// of them.
func (g *Gate) Evaluate(req Request) GateDecision {
	var vetoes []VetoSignal

	// 1. Mode must be one of the configured modes
	if _, ok := g.modes[req.Mode]; !ok {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoUnknownMode,
			Reason: fmt.Sprintf("mode %q is not configured", req.Mode),
		})
	}

	// 2. Reward must be a finite scalar
	if !finite(req.Reward) {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoInvalidReward,
			Reason: fmt.Sprintf("reward %v is not finite", req.Reward),
		})
	}

	// 3. Learning rate must be finite
	if !finite(req.LearningRate) {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoInvalidLearningRate,
			Reason: fmt.Sprintf("learning rate %v is not finite", req.LearningRate),
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      "reject",
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
		}
	}

	return GateDecision{
		Action: "commit",
		Reason: fmt.Sprintf("passed gate: %d token(s)", len(req.Tokens)),
	}
}

// #endregion gate

// #region helpers
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// #endregion helpers
