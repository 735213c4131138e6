package selector

import (
	"errors"
	"math"
	"sort"
)

// #region errors
// ErrEmptyModeSet is returned when there is nothing to select from.
var ErrEmptyModeSet = errors.New("empty mode set")

// #endregion errors

// #region select
// Select returns the mode with the highest score. Ties go to the mode
// declared first in order. Scored modes missing from order rank after all
// declared modes, lexicographically. NaN scores never win over a number.
func Select(order []string, scores map[string]float64) (string, error) {
	if len(scores) == 0 {
		return "", ErrEmptyModeSet
	}

	candidates := make([]string, 0, len(scores))
	declared := make(map[string]struct{}, len(order))
	for _, m := range order {
		if _, dup := declared[m]; dup {
			continue
		}
		declared[m] = struct{}{}
		if _, ok := scores[m]; ok {
			candidates = append(candidates, m)
		}
	}
	var extra []string
	for m := range scores {
		if _, ok := declared[m]; !ok {
			extra = append(extra, m)
		}
	}
	sort.Strings(extra)
	candidates = append(candidates, extra...)

	best := candidates[0]
	bestScore := scores[best]
	for _, m := range candidates[1:] {
		v := scores[m]
		if math.IsNaN(v) {
			continue
		}
		// Strictly greater: an equal score keeps the earlier mode.
		if math.IsNaN(bestScore) || v > bestScore {
			best, bestScore = m, v
		}
	}
	return best, nil
}

// #endregion select

// #region rank
// Ranked pairs a mode with its score.
type Ranked struct {
	Mode  string  `json:"mode"`
	Score float64 `json:"score"`
}

// Rank orders every scored mode by the same policy Select uses: highest
// score first, ties by declared order. Rank(...)[0].Mode == Select(...).
func Rank(order []string, scores map[string]float64) []Ranked {
	pos := make(map[string]int, len(order))
	for i, m := range order {
		if _, ok := pos[m]; !ok {
			pos[m] = i
		}
	}
	out := make([]Ranked, 0, len(scores))
	for m, v := range scores {
		out = append(out, Ranked{Mode: m, Score: v})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		an, bn := math.IsNaN(a.Score), math.IsNaN(b.Score)
		if an != bn {
			return bn
		}
		if !an && a.Score != b.Score {
			return a.Score > b.Score
		}
		pa, aok := pos[a.Mode]
		pb, bok := pos[b.Mode]
		switch {
		case aok && bok:
			return pa < pb
		case aok != bok:
			return aok
		default:
			return a.Mode < b.Mode
		}
	})
	return out
}

// #endregion rank
