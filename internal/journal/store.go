package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id            TEXT PRIMARY KEY,
	tokens_json   TEXT NOT NULL,
	weights_json  TEXT,
	scores_json   TEXT NOT NULL,
	mode          TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	decision_id    TEXT,
	mode           TEXT NOT NULL,
	tokens_json    TEXT NOT NULL,
	reward         REAL NOT NULL,
	learning_rate  REAL NOT NULL,
	action         TEXT NOT NULL,
	reason         TEXT,
	cells_json     TEXT,
	created_at     TEXT NOT NULL
);
`

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// MemoryDSN keeps the journal for the lifetime of the process only.
const MemoryDSN = ":memory:"

// #endregion schema

// #region store-struct
// Store records decisions and feedback for one session in SQLite. It is an
// audit trail; association weights are never restored from it.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens the journal at dsn (a file path or MemoryDSN) and runs
// migrations.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps :memory: databases shared across calls.
	db.SetMaxOpenConns(1)
	if dsn != MemoryDSN {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-migrated database.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region log-decision
// LogDecision writes a decision row.
func (s *Store) LogDecision(rec DecisionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	tokens, err := json.Marshal(nonNil(rec.Tokens))
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	var weights interface{}
	if rec.Weights != nil {
		b, err := json.Marshal(rec.Weights)
		if err != nil {
			return fmt.Errorf("marshal weights: %w", err)
		}
		weights = string(b)
	}

	_, err = s.db.Exec(
		`INSERT INTO decisions (id, tokens_json, weights_json, scores_json, mode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(tokens), weights, string(scores), rec.Mode,
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region log-feedback
// LogFeedback writes a feedback row.
func (s *Store) LogFeedback(rec FeedbackRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	tokens, err := json.Marshal(nonNil(rec.Tokens))
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	var cells interface{}
	if len(rec.Cells) > 0 {
		b, err := json.Marshal(rec.Cells)
		if err != nil {
			return fmt.Errorf("marshal cells: %w", err)
		}
		cells = string(b)
	}

	_, err = s.db.Exec(
		`INSERT INTO feedback (decision_id, mode, tokens_json, reward, learning_rate, action, reason, cells_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(rec.DecisionID), rec.Mode, string(tokens), rec.Reward, rec.LearningRate,
		rec.Action, nullIfEmpty(rec.Reason), cells, rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log feedback: %w", err)
	}
	return nil
}

// #endregion log-feedback

// #region list
// ListDecisions returns the most recent decisions, newest first.
func (s *Store) ListDecisions(limit int) ([]DecisionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, tokens_json, weights_json, scores_json, mode, created_at
		 FROM decisions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var tokensJSON, scoresJSON, createdStr string
		var weightsJSON sql.NullString
		if err := rows.Scan(&rec.ID, &tokensJSON, &weightsJSON, &scoresJSON, &rec.Mode, &createdStr); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if err := json.Unmarshal([]byte(tokensJSON), &rec.Tokens); err != nil {
			return nil, fmt.Errorf("unmarshal tokens: %w", err)
		}
		if err := json.Unmarshal([]byte(scoresJSON), &rec.Scores); err != nil {
			return nil, fmt.Errorf("unmarshal scores: %w", err)
		}
		if weightsJSON.Valid {
			if err := json.Unmarshal([]byte(weightsJSON.String), &rec.Weights); err != nil {
				return nil, fmt.Errorf("unmarshal weights: %w", err)
			}
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListFeedback returns the most recent feedback rows, newest first.
func (s *Store) ListFeedback(limit int) ([]FeedbackRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, decision_id, mode, tokens_json, reward, learning_rate, action, reason, cells_json, created_at
		 FROM feedback ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var records []FeedbackRecord
	for rows.Next() {
		var rec FeedbackRecord
		var decisionID, reason, cellsJSON sql.NullString
		var tokensJSON, createdStr string
		if err := rows.Scan(&rec.ID, &decisionID, &rec.Mode, &tokensJSON, &rec.Reward, &rec.LearningRate,
			&rec.Action, &reason, &cellsJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		rec.DecisionID = decisionID.String
		rec.Reason = reason.String
		if err := json.Unmarshal([]byte(tokensJSON), &rec.Tokens); err != nil {
			return nil, fmt.Errorf("unmarshal tokens: %w", err)
		}
		if cellsJSON.Valid {
			if err := json.Unmarshal([]byte(cellsJSON.String), &rec.Cells); err != nil {
				return nil, fmt.Errorf("unmarshal cells: %w", err)
			}
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// #endregion helpers
