package replay

import (
	"fmt"
	"math"
	"sort"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/layer"
	"github.com/danielpatrickdp/feedback-layer/internal/update"
)

// #region types
// Round is one recorded decision, optionally followed by feedback.
type Round struct {
	ID      string
	Tokens  []string
	Weights map[string]float64 // nil means uniform 1/n
	Reward  *float64           // nil skips feedback
	// FeedbackMode rewards this mode instead of the selected one when set.
	FeedbackMode string
}

// RoundResult captures the outcome of replaying one round through the layer.
type RoundResult struct {
	RoundID string              `json:"round_id"`
	Mode    string              `json:"mode"` // selected mode; empty when Decide failed
	Scores  map[string]float64  `json:"scores,omitempty"`
	Action  string              `json:"action"` // "commit" | "no_op" | "reject" | "skip" | "error"
	Reason  string              `json:"reason,omitempty"`
	Cells   []update.CellChange `json:"cells,omitempty"`
}

// Expectation is the recorded outcome a round must reproduce. Empty fields
// are not checked.
type Expectation struct {
	RoundID string
	Mode    string
	Action  string
}

// Divergence is one mismatch between a replay and its expectations.
type Divergence struct {
	RoundID string `json:"round_id"`
	Field   string `json:"field"`
	Want    string `json:"want"`
	Got     string `json:"got"`
}

func (d Divergence) String() string {
	return fmt.Sprintf("%s: %s want %s, got %s", d.RoundID, d.Field, d.Want, d.Got)
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalRounds int                 `json:"total_rounds"`
	Commits     int                 `json:"commits"`
	NoOps       int                 `json:"no_ops"`
	Rejects     int                 `json:"rejects"`
	Skips       int                 `json:"skips"`
	Errors      int                 `json:"errors"`
	FinalBeta   []association.Entry `json:"final_beta"`
}

// #endregion types

// #region replay
// Replay runs every round against l in order: decide, then feedback for the
// selected mode when the round carries a reward. β carries over between
// rounds.
func Replay(l *layer.Layer, rounds []Round) []RoundResult {
	results := make([]RoundResult, 0, len(rounds))

	for _, r := range rounds {
		// 1. Decide
		d, err := l.Decide(layer.DecideRequest{Tokens: r.Tokens, Weights: r.Weights, IncludeScores: true})
		if err != nil {
			results = append(results, RoundResult{RoundID: r.ID, Action: "error", Reason: err.Error()})
			continue
		}
		res := RoundResult{RoundID: r.ID, Mode: d.Mode, Scores: d.Scores}

		// 2. Skip feedback
		if r.Reward == nil {
			res.Action, res.Reason = "skip", "no reward recorded"
			results = append(results, res)
			continue
		}

		// 3. Feedback
		mode := d.Mode
		if r.FeedbackMode != "" {
			mode = r.FeedbackMode
		}
		ur, err := l.Feedback(layer.FeedbackRequest{
			DecisionID: d.ID,
			Mode:       mode,
			Tokens:     r.Tokens,
			Reward:     *r.Reward,
		})
		res.Action, res.Reason, res.Cells = ur.Decision.Action, ur.Decision.Reason, ur.Cells
		if err != nil {
			res.Reason = err.Error()
			if res.Action == "" {
				res.Action = "error"
			}
		}
		results = append(results, res)
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []RoundResult, final []association.Entry) ReplaySummary {
	s := ReplaySummary{
		TotalRounds: len(results),
		FinalBeta:   final,
	}
	for _, r := range results {
		switch r.Action {
		case "commit":
			s.Commits++
		case "no_op":
			s.NoOps++
		case "reject":
			s.Rejects++
		case "skip":
			s.Skips++
		case "error":
			s.Errors++
		}
	}
	return s
}

// #endregion replay

// #region compare
// Compare checks results against expectations round by round.
func Compare(results []RoundResult, expected []Expectation) []Divergence {
	var out []Divergence
	if len(results) != len(expected) {
		out = append(out, Divergence{
			RoundID: "*",
			Field:   "rounds",
			Want:    fmt.Sprint(len(expected)),
			Got:     fmt.Sprint(len(results)),
		})
	}
	n := min(len(results), len(expected))
	for i := 0; i < n; i++ {
		got, want := results[i], expected[i]
		if want.RoundID != "" && got.RoundID != want.RoundID {
			out = append(out, Divergence{RoundID: got.RoundID, Field: "round_id", Want: want.RoundID, Got: got.RoundID})
		}
		if want.Mode != "" && got.Mode != want.Mode {
			out = append(out, Divergence{RoundID: got.RoundID, Field: "mode", Want: want.Mode, Got: got.Mode})
		}
		if want.Action != "" && got.Action != want.Action {
			out = append(out, Divergence{RoundID: got.RoundID, Field: "action", Want: want.Action, Got: got.Action})
		}
	}
	return out
}

// CompareBeta checks the final table against expected values within tol.
// Keys missing from entries read as 0.0.
func CompareBeta(entries []association.Entry, expected map[association.Key]float64, tol float64) []Divergence {
	got := make(map[association.Key]float64, len(entries))
	for _, e := range entries {
		got[e.Key] = e.Value
	}
	keys := make([]association.Key, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	var out []Divergence
	for _, k := range keys {
		want := expected[k]
		if math.Abs(got[k]-want) > tol {
			out = append(out, Divergence{
				RoundID: "final",
				Field:   "beta " + k.Mode + "|" + k.Token,
				Want:    fmt.Sprintf("%.6f", want),
				Got:     fmt.Sprintf("%.6f", got[k]),
			})
		}
	}
	return out
}

// #endregion compare
