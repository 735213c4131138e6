package update

import (
	"fmt"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/diag"
)

// #region updater
// Updater applies scalar rewards to the association store. Only the
// (mode used, active token) cells change, and every written value is
// clamped into Bounds before it is stored.
type Updater struct {
	store   *association.Store
	bounds  Bounds
	known   map[string]struct{}
	sink    diag.Sink
	verbose bool
}

// Options configures diagnostics for an Updater.
type Options struct {
	Tokens  []string // configured token set; empty disables the unknown check
	Sink    diag.Sink
	Verbose bool
}

// NewUpdater builds an updater writing to store within bounds.
func NewUpdater(store *association.Store, bounds Bounds, opts Options) *Updater {
	known := make(map[string]struct{}, len(opts.Tokens))
	for _, t := range opts.Tokens {
		known[t] = struct{}{}
	}
	sink := opts.Sink
	if sink == nil {
		sink = diag.Nop
	}
	return &Updater{store: store, bounds: bounds, known: known, sink: sink, verbose: opts.Verbose}
}

// Bounds returns the clamp interval.
func (u *Updater) Bounds() Bounds {
	return u.bounds
}

// #endregion updater

// #region apply
// Apply adds learningRate*reward to β(modeUsed, t) for each distinct active
// token t and clamps the result. Each cell's read-clamp-write runs inside the
// store's critical section. A zero reward re-clamps existing cells and does
// not materialize absent ones.
func (u *Updater) Apply(modeUsed string, active []string, reward, learningRate float64) Result {
	delta := learningRate * reward
	res := Result{Mode: modeUsed, Delta: delta}

	seen := make(map[string]struct{}, len(active))
	for _, t := range active {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		_, known := u.known[t]
		if len(u.known) == 0 {
			known = true
		}
		if !known && u.verbose {
			u.sink.Emit(diag.Event{
				Severity: diag.SeverityWarning,
				Code:     diag.CodeUnknownToken,
				Message:  fmt.Sprintf("feedback token %q is not in the configured token set", t),
				Attrs:    map[string]any{"token": t, "mode": modeUsed},
			})
		}

		change := CellChange{Token: t, Known: known}
		u.store.Update(association.Key{Mode: modeUsed, Token: t}, func(cur float64, present bool) (float64, bool) {
			change.Before = cur
			change.Raw = cur + delta
			change.After = u.bounds.Clamp(change.Raw)
			return change.After, present || change.After != 0
		})
		switch {
		case change.Raw > u.bounds.Max:
			change.Clamped, change.Bound = true, "max"
		case change.Raw < u.bounds.Min:
			change.Clamped, change.Bound = true, "min"
		}
		if change.Clamped && u.verbose {
			u.sink.Emit(diag.Event{
				Severity: diag.SeverityInfo,
				Code:     diag.CodeClamped,
				Message:  fmt.Sprintf("association %s|%s clamped to %s", modeUsed, t, change.Bound),
				Attrs: map[string]any{
					"mode":  modeUsed,
					"token": t,
					"raw":   change.Raw,
					"value": change.After,
				},
			})
		}
		res.Cells = append(res.Cells, change)
	}

	res.Decision = decide(res)
	return res
}

func decide(res Result) Decision {
	changed := 0
	for _, c := range res.Cells {
		if c.After != c.Before {
			changed++
		}
	}
	if changed == 0 {
		return Decision{Action: "no_op", Reason: "no association changed"}
	}
	return Decision{
		Action: "commit",
		Reason: fmt.Sprintf("mode %s: %d cell(s) changed, delta %.6f, %d clamped", res.Mode, changed, res.Delta, res.ClampCount()),
	}
}

// #endregion apply
