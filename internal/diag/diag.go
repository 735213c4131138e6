package diag

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// #region nop
// Nop discards every event.
var Nop Sink = SinkFunc(func(Event) {})

// #endregion nop

// #region slog-sink
// SlogSink forwards events to a structured logger. Warnings log at
// slog.LevelWarn, info events at slog.LevelDebug so clamp chatter stays out
// of default output.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink wraps logger. A nil logger falls back to slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Emit logs ev with its attributes in key order.
func (s *SlogSink) Emit(ev Event) {
	level := slog.LevelDebug
	if ev.Severity == SeverityWarning {
		level = slog.LevelWarn
	}
	attrs := make([]slog.Attr, 0, len(ev.Attrs)+1)
	attrs = append(attrs, slog.String("code", string(ev.Code)))
	keys := make([]string, 0, len(ev.Attrs))
	for k := range ev.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, ev.Attrs[k]))
	}
	s.logger.LogAttrs(context.Background(), level, ev.Message, attrs...)
}

// #endregion slog-sink

// #region collector
// Collector records events in memory for later inspection.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends ev.
func (c *Collector) Emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Events returns a copy of everything collected so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Count returns how many collected events carry code.
func (c *Collector) Count(code Code) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Code == code {
			n++
		}
	}
	return n
}

// Reset drops collected events.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// #endregion collector

// #region fanout
// Fanout delivers each event to every non-nil sink in order.
func Fanout(sinks ...Sink) Sink {
	live := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return SinkFunc(func(ev Event) {
		for _, s := range live {
			s.Emit(ev)
		}
	})
}

// #endregion fanout
