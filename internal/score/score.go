package score

import (
	"fmt"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/diag"
)

// #region constants
// UnweightedDefault is the weight used for an active token that has no entry
// in the caller's weight map.
const UnweightedDefault = 0.0

// #endregion constants

// #region scorer
// Scorer computes per-mode scores from active tokens, their weights, and the
// association store. It never mutates the store.
type Scorer struct {
	store   *association.Store
	modes   []string
	known   map[string]struct{}
	sink    diag.Sink
	verbose bool
}

// Options configures diagnostics for a Scorer.
type Options struct {
	// Tokens is the configured token set; active tokens outside it are
	// reported when Verbose is set. Empty disables the check.
	Tokens  []string
	Sink    diag.Sink
	Verbose bool
}

// NewScorer builds a scorer over store for the ordered mode list.
func NewScorer(store *association.Store, modes []string, opts Options) *Scorer {
	known := make(map[string]struct{}, len(opts.Tokens))
	for _, t := range opts.Tokens {
		known[t] = struct{}{}
	}
	sink := opts.Sink
	if sink == nil {
		sink = diag.Nop
	}
	m := make([]string, len(modes))
	copy(m, modes)
	return &Scorer{store: store, modes: m, known: known, sink: sink, verbose: opts.Verbose}
}

// #endregion scorer

// #region score-modes
// ScoreModes returns score(m) = Σ weight(t) × β(m, t) over the distinct
// active tokens, for every configured mode. An empty active set scores
// every mode 0.0.
func (s *Scorer) ScoreModes(active []string, weights map[string]float64) map[string]float64 {
	scores := make(map[string]float64, len(s.modes))
	for _, m := range s.modes {
		scores[m] = 0
	}

	tokens := Distinct(active)
	for _, t := range tokens {
		w, ok := weights[t]
		if !ok {
			w = UnweightedDefault
			s.warn(diag.CodeUnweightedToken, fmt.Sprintf("active token %q has no weight; using %.1f", t, UnweightedDefault), t)
		}
		if len(s.known) > 0 {
			if _, ok := s.known[t]; !ok {
				s.warn(diag.CodeUnknownToken, fmt.Sprintf("active token %q is not in the configured token set", t), t)
			}
		}
		for _, m := range s.modes {
			scores[m] += w * s.store.Get(m, t)
		}
	}
	return scores
}

func (s *Scorer) warn(code diag.Code, msg, token string) {
	if !s.verbose {
		return
	}
	s.sink.Emit(diag.Event{
		Severity: diag.SeverityWarning,
		Code:     code,
		Message:  msg,
		Attrs:    map[string]any{"token": token},
	})
}

// #endregion score-modes

// #region helpers
// Distinct returns tokens with duplicates removed, keeping first-seen order.
func Distinct(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// UniformWeights gives every distinct token the weight 1/n.
func UniformWeights(tokens []string) map[string]float64 {
	uniq := Distinct(tokens)
	out := make(map[string]float64, len(uniq))
	if len(uniq) == 0 {
		return out
	}
	w := 1.0 / float64(len(uniq))
	for _, t := range uniq {
		out[t] = w
	}
	return out
}

// #endregion helpers
