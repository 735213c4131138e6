// Package layer binds the association store, scorer, selector, and updater
// into one session-scoped decision layer.
package layer

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/config"
	"github.com/danielpatrickdp/feedback-layer/internal/diag"
	"github.com/danielpatrickdp/feedback-layer/internal/eval"
	"github.com/danielpatrickdp/feedback-layer/internal/gate"
	"github.com/danielpatrickdp/feedback-layer/internal/journal"
	"github.com/danielpatrickdp/feedback-layer/internal/metrics"
	"github.com/danielpatrickdp/feedback-layer/internal/score"
	"github.com/danielpatrickdp/feedback-layer/internal/selector"
	"github.com/danielpatrickdp/feedback-layer/internal/update"
)

// #region layer-struct
// Layer is one session of the decision layer. It is safe for concurrent use;
// per-cell updates are serialized by the association store.
type Layer struct {
	cfg     *config.Config
	store   *association.Store
	scorer  *score.Scorer
	updater *update.Updater
	gate    *gate.Gate
	eval    *eval.EvalHarness
	journal *journal.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// #endregion layer-struct

// #region constructor
// New builds a layer from a validated configuration and seeds β.
func New(cfg *config.Config, opts Options) (*Layer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("new layer: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new layer: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sinks := []diag.Sink{}
	if opts.Sink != nil {
		sinks = append(sinks, opts.Sink)
	}
	if opts.Metrics != nil {
		sinks = append(sinks, opts.Metrics.Sink())
	}
	sink := diag.Fanout(sinks...)

	store := association.NewStore()
	store.Seed(cfg.BetaSeeds)

	l := &Layer{
		cfg:   cfg,
		store: store,
		scorer: score.NewScorer(store, cfg.Modes, score.Options{
			Tokens: cfg.Tokens, Sink: sink, Verbose: opts.Verbose,
		}),
		updater: update.NewUpdater(store,
			update.Bounds{Min: cfg.Params.ClampMin, Max: cfg.Params.ClampMax},
			update.Options{Tokens: cfg.Tokens, Sink: sink, Verbose: opts.Verbose},
		),
		gate: gate.NewGate(gate.GateConfig{Modes: cfg.Modes}),
		eval: eval.NewEvalHarness(eval.EvalConfig{
			ClampMin: cfg.Params.ClampMin,
			ClampMax: cfg.Params.ClampMax,
			Modes:    cfg.Modes,
		}),
		journal: opts.Journal,
		metrics: opts.Metrics,
		logger:  logger,
	}
	l.metrics.SetEntries(store.Len())
	return l, nil
}

// #endregion constructor

// #region accessors
// Config returns the session configuration. Callers must not mutate it.
func (l *Layer) Config() *config.Config {
	return l.cfg
}

// Modes returns a copy of the declared mode order.
func (l *Layer) Modes() []string {
	return append([]string(nil), l.cfg.Modes...)
}

// Tokens returns a copy of the configured token set.
func (l *Layer) Tokens() []string {
	return append([]string(nil), l.cfg.Tokens...)
}

// Snapshot returns every materialized β entry sorted by (mode, token).
func (l *Layer) Snapshot() []association.Entry {
	return l.store.Entries()
}

// Reset restores β to the configured seeds.
func (l *Layer) Reset() {
	l.store.Seed(l.cfg.BetaSeeds)
	l.metrics.SetEntries(l.store.Len())
	l.logger.Info("association table reset", "entries", l.store.Len())
}

// #endregion accessors

// #region decide
// Decide scores every mode against the active tokens and selects one.
func (l *Layer) Decide(req DecideRequest) (Decision, error) {
	active := score.Distinct(req.Tokens)
	weights := req.Weights
	if weights == nil {
		weights = score.UniformWeights(active)
	}
	for t, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return Decision{}, fmt.Errorf("%w: token %q has weight %v", ErrInvalidWeight, t, w)
		}
	}

	scores := l.scorer.ScoreModes(active, weights)
	for _, m := range l.cfg.Modes {
		if v := scores[m]; math.IsNaN(v) || math.IsInf(v, 0) {
			return Decision{}, fmt.Errorf("%w: score for mode %q overflows to %v", ErrInvalidWeight, m, v)
		}
	}
	mode, err := selector.Select(l.cfg.Modes, scores)
	if err != nil {
		return Decision{}, fmt.Errorf("select mode: %w", err)
	}

	d := Decision{ID: uuid.NewString(), Mode: mode}
	if req.IncludeScores {
		d.Scores = scores
		d.Ranking = selector.Rank(l.cfg.Modes, scores)
	}

	l.metrics.ObserveDecision(mode)
	if l.journal != nil {
		rec := journal.DecisionRecord{
			ID:        d.ID,
			Tokens:    active,
			Weights:   req.Weights,
			Scores:    scores,
			Mode:      mode,
			CreatedAt: time.Now().UTC(),
		}
		if err := l.journal.LogDecision(rec); err != nil {
			l.logger.Warn("journal decision failed", "id", d.ID, "error", err)
		}
	}
	l.logger.Debug("mode selected", "id", d.ID, "mode", mode, "tokens", len(active))
	return d, nil
}

// #endregion decide

// #region feedback
// Feedback applies reward to β(req.Mode, t) for every active token t. A
// vetoed request leaves β untouched and returns a "reject" result with an
// error wrapping ErrUnknownMode, ErrInvalidReward, or ErrInvalidLearningRate.
func (l *Layer) Feedback(req FeedbackRequest) (update.Result, error) {
	lr := l.cfg.Params.LearningRate
	if req.LearningRate != nil {
		lr = *req.LearningRate
	}

	gd := l.gate.Evaluate(gate.Request{
		Mode:         req.Mode,
		Tokens:       req.Tokens,
		Reward:       req.Reward,
		LearningRate: lr,
	})
	if gd.Vetoed {
		res := update.Result{
			Mode:     req.Mode,
			Decision: update.Decision{Action: gd.Action, Reason: gd.Reason},
		}
		l.record(req, lr, res)
		l.logger.Warn("feedback rejected", "mode", req.Mode, "reason", gd.Reason)
		return res, vetoError(gd.VetoSignals[0])
	}

	res := l.updater.Apply(req.Mode, req.Tokens, req.Reward, lr)

	ev := l.eval.Run(l.store.Entries())
	if !ev.Passed {
		l.logger.Error("post-update check failed", "mode", req.Mode, "reason", ev.Reason)
		return res, fmt.Errorf("%w: %s", ErrInvariant, ev.Reason)
	}

	l.record(req, lr, res)
	l.logger.Debug("feedback applied",
		"mode", req.Mode,
		"action", res.Decision.Action,
		"delta", res.Delta,
		"clamped", res.ClampCount(),
	)
	return res, nil
}

func (l *Layer) record(req FeedbackRequest, lr float64, res update.Result) {
	var minHits, maxHits int
	cells := make([]journal.CellRecord, 0, len(res.Cells))
	for _, c := range res.Cells {
		switch c.Bound {
		case "min":
			minHits++
		case "max":
			maxHits++
		}
		cells = append(cells, journal.CellRecord{Token: c.Token, Before: c.Before, After: c.After, Clamped: c.Clamped})
	}

	mode := req.Mode
	if !l.known(mode) {
		mode = "unknown"
	}
	l.metrics.ObserveFeedback(mode, res.Decision.Action, minHits, maxHits, l.store.Len())

	if l.journal == nil {
		return
	}
	rec := journal.FeedbackRecord{
		DecisionID:   req.DecisionID,
		Mode:         req.Mode,
		Tokens:       score.Distinct(req.Tokens),
		Reward:       sanitize(req.Reward),
		LearningRate: sanitize(lr),
		Action:       res.Decision.Action,
		Reason:       res.Decision.Reason,
		Cells:        cells,
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.journal.LogFeedback(rec); err != nil {
		l.logger.Warn("journal feedback failed", "mode", req.Mode, "error", err)
	}
}

// #endregion feedback

// #region helpers
func (l *Layer) known(mode string) bool {
	for _, m := range l.cfg.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

func vetoError(sig gate.VetoSignal) error {
	switch sig.Type {
	case gate.VetoUnknownMode:
		return fmt.Errorf("%w: %s", ErrUnknownMode, sig.Reason)
	case gate.VetoInvalidReward:
		return fmt.Errorf("%w: %s", ErrInvalidReward, sig.Reason)
	case gate.VetoInvalidLearningRate:
		return fmt.Errorf("%w: %s", ErrInvalidLearningRate, sig.Reason)
	default:
		return fmt.Errorf("feedback vetoed: %s", sig.Reason)
	}
}

// sanitize maps non-finite values to 0 so rejected rows still fit the
// journal's REAL columns.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// #endregion helpers
