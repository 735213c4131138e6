package layer

import (
	"errors"
	"log/slog"

	"github.com/danielpatrickdp/feedback-layer/internal/diag"
	"github.com/danielpatrickdp/feedback-layer/internal/journal"
	"github.com/danielpatrickdp/feedback-layer/internal/metrics"
	"github.com/danielpatrickdp/feedback-layer/internal/selector"
)

// #region errors
var (
	ErrUnknownMode         = errors.New("unknown mode")
	ErrInvalidWeight       = errors.New("invalid weight")
	ErrInvalidReward       = errors.New("invalid reward")
	ErrInvalidLearningRate = errors.New("invalid learning rate")
	// ErrInvariant means a post-update check found a β value the updater
	// should never have produced.
	ErrInvariant = errors.New("association invariant violated")
)

// #endregion errors

// #region options
// Options wires optional collaborators into a Layer. The zero value runs
// the core alone with no diagnostics, journal, or metrics.
type Options struct {
	Sink    diag.Sink
	Verbose bool
	Journal *journal.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// #endregion options

// #region requests
// DecideRequest asks for a mode given the currently active tokens.
type DecideRequest struct {
	Tokens        []string           `json:"tokens"`
	Weights       map[string]float64 `json:"weights,omitempty"` // nil means uniform 1/n
	IncludeScores bool               `json:"include_scores,omitempty"`
}

// FeedbackRequest rewards the mode that was used for a set of tokens.
type FeedbackRequest struct {
	DecisionID   string   `json:"decision_id,omitempty"`
	Mode         string   `json:"mode"`
	Tokens       []string `json:"tokens"`
	Reward       float64  `json:"reward"`
	LearningRate *float64 `json:"learning_rate,omitempty"` // nil uses the configured rate
}

// #endregion requests

// #region decision
// Decision is the outcome of Decide.
type Decision struct {
	ID      string             `json:"id"`
	Mode    string             `json:"mode"`
	Scores  map[string]float64 `json:"scores,omitempty"`
	Ranking []selector.Ranked  `json:"ranking,omitempty"`
}

// #endregion decision
