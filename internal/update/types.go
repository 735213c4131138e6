package update

// #region bounds
// Bounds is the closed interval every association weight must stay in.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp bounds v into [b.Min, b.Max].
func (b Bounds) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Contains reports whether v lies within the bounds.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// #endregion bounds

// #region decision
// Decision records what the updater did.
type Decision struct {
	Action string `json:"action"` // "commit" | "no_op"
	Reason string `json:"reason"`
}

// #endregion decision

// #region cell-change
// CellChange is per-token telemetry for one feedback application.
type CellChange struct {
	Token   string  `json:"token"`
	Before  float64 `json:"before"`
	Raw     float64 `json:"raw"` // before + learningRate*reward, pre-clamp
	After   float64 `json:"after"`
	Clamped bool    `json:"clamped"`         // true when Raw fell outside the bounds
	Bound   string  `json:"bound,omitempty"` // "min" | "max" | "" when not clamped
	Known   bool    `json:"known"`           // token is in the configured token set
}

// #endregion cell-change

// #region result
// Result bundles everything returned by Apply.
type Result struct {
	Mode     string       `json:"mode"`
	Delta    float64      `json:"delta"` // learningRate * reward applied to every touched cell
	Cells    []CellChange `json:"cells"`
	Decision Decision     `json:"decision"`
}

// ClampCount returns how many cells were clamped.
func (r Result) ClampCount() int {
	n := 0
	for _, c := range r.Cells {
		if c.Clamped {
			n++
		}
	}
	return n
}

// #endregion result
