package diag

// #region severity
// Severity ranks a diagnostic event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// #endregion severity

// #region code
// Code identifies the condition a diagnostic reports.
type Code string

const (
	// CodeUnweightedToken: an active token had no entry in the weight map.
	CodeUnweightedToken Code = "unweighted_token"
	// CodeUnknownToken: a token is outside the configured token set.
	CodeUnknownToken Code = "unknown_token"
	// CodeClamped: an updated association hit a clamp bound.
	CodeClamped Code = "clamped"
)

// #endregion code

// #region event
// Event is a structured, non-fatal diagnostic emitted by the decision core.
type Event struct {
	Severity Severity
	Code     Code
	Message  string
	Attrs    map[string]any
}

// #endregion event

// #region sink
// Sink receives diagnostic events. Implementations must tolerate calls from
// multiple goroutines.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev Event) { f(ev) }

// #endregion sink
