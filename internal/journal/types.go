package journal

import "time"

// #region decision-record
// DecisionRecord is one row of the decisions table.
type DecisionRecord struct {
	ID        string             `json:"id"`
	Tokens    []string           `json:"tokens"`
	Weights   map[string]float64 `json:"weights,omitempty"`
	Scores    map[string]float64 `json:"scores"`
	Mode      string             `json:"mode"`
	CreatedAt time.Time          `json:"created_at"`
}

// #endregion decision-record

// #region feedback-record
// FeedbackRecord is one row of the feedback table.
type FeedbackRecord struct {
	ID           int64        `json:"id"`
	DecisionID   string       `json:"decision_id,omitempty"` // optional link to the decision being rewarded
	Mode         string       `json:"mode"`
	Tokens       []string     `json:"tokens"`
	Reward       float64      `json:"reward"`
	LearningRate float64      `json:"learning_rate"`
	Action       string       `json:"action"` // "commit" | "no_op" | "reject"
	Reason       string       `json:"reason,omitempty"`
	Cells        []CellRecord `json:"cells,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// CellRecord is the before/after of one association touched by feedback.
type CellRecord struct {
	Token   string  `json:"token"`
	Before  float64 `json:"before"`
	After   float64 `json:"after"`
	Clamped bool    `json:"clamped,omitempty"`
}

// #endregion feedback-record
