package journal

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemoryStoreSharedAcrossCalls(t *testing.T) {
	s, err := NewStore(MemoryDSN)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	if err := s.LogDecision(DecisionRecord{ID: "d1", Mode: "neutral", Scores: map[string]float64{"neutral": 0}}); err != nil {
		t.Fatalf("LogDecision: %v", err)
	}
	got, err := s.ListDecisions(10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 decision in memory journal, got %d", len(got))
	}
}

func TestLogAndListDecisions(t *testing.T) {
	s := tempStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := DecisionRecord{
		ID:        "d1",
		Tokens:    []string{"overload", "engineering"},
		Weights:   map[string]float64{"overload": 0.5, "engineering": 0.5},
		Scores:    map[string]float64{"neutral": 0.3, "supportive": 0.4, "directive": 0},
		Mode:      "supportive",
		CreatedAt: base,
	}
	second := DecisionRecord{
		ID:        "d2",
		Scores:    map[string]float64{"neutral": 0},
		Mode:      "neutral",
		CreatedAt: base.Add(time.Second),
	}
	for _, rec := range []DecisionRecord{first, second} {
		if err := s.LogDecision(rec); err != nil {
			t.Fatalf("LogDecision: %v", err)
		}
	}

	got, err := s.ListDecisions(10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(got))
	}
	if got[0].ID != "d2" {
		t.Fatalf("expected newest first, got %s", got[0].ID)
	}
	if got[0].Weights != nil {
		t.Fatalf("expected nil weights for d2, got %v", got[0].Weights)
	}
	if len(got[0].Tokens) != 0 {
		t.Fatalf("expected no tokens for d2, got %v", got[0].Tokens)
	}
	d1 := got[1]
	if d1.Mode != "supportive" || d1.Scores["supportive"] != 0.4 || d1.Weights["overload"] != 0.5 {
		t.Fatalf("d1 did not round-trip: %+v", d1)
	}
	if !d1.CreatedAt.Equal(base) {
		t.Fatalf("expected created_at %v, got %v", base, d1.CreatedAt)
	}
}

func TestLogDecisionDuplicateID(t *testing.T) {
	s := tempStore(t)
	rec := DecisionRecord{ID: "dup", Mode: "neutral", Scores: map[string]float64{}}
	if err := s.LogDecision(rec); err != nil {
		t.Fatalf("LogDecision: %v", err)
	}
	if err := s.LogDecision(rec); err == nil {
		t.Fatal("expected primary key violation")
	}
}

func TestLogAndListFeedback(t *testing.T) {
	s := tempStore(t)

	rec := FeedbackRecord{
		DecisionID:   "d1",
		Mode:         "supportive",
		Tokens:       []string{"overload"},
		Reward:       1,
		LearningRate: 0.1,
		Action:       "commit",
		Reason:       "1 cell changed",
		Cells:        []CellRecord{{Token: "overload", Before: 0.8, After: 0.9}},
	}
	if err := s.LogFeedback(rec); err != nil {
		t.Fatalf("LogFeedback: %v", err)
	}
	if err := s.LogFeedback(FeedbackRecord{Mode: "neutral", Action: "no_op"}); err != nil {
		t.Fatalf("LogFeedback: %v", err)
	}

	got, err := s.ListFeedback(10)
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Mode != "neutral" || got[0].DecisionID != "" || got[0].Cells != nil {
		t.Fatalf("unexpected newest row: %+v", got[0])
	}
	fb := got[1]
	if fb.DecisionID != "d1" || fb.Reward != 1 || len(fb.Cells) != 1 || fb.Cells[0].After != 0.9 {
		t.Fatalf("feedback did not round-trip: %+v", fb)
	}
	if fb.CreatedAt.IsZero() {
		t.Fatal("expected auto-filled created_at")
	}
}

func TestNullableColumns(t *testing.T) {
	s := tempStore(t)
	if err := s.LogFeedback(FeedbackRecord{Mode: "neutral", Action: "no_op"}); err != nil {
		t.Fatalf("LogFeedback: %v", err)
	}
	var decisionID, reason, cells sql.NullString
	s.DB().QueryRow("SELECT decision_id, reason, cells_json FROM feedback").Scan(&decisionID, &reason, &cells)
	if decisionID.Valid || reason.Valid || cells.Valid {
		t.Fatal("expected NULL for empty optional columns")
	}
}

func TestClosedStoreErrors(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Close()

	if err := s.LogDecision(DecisionRecord{ID: "x", Scores: map[string]float64{}}); err == nil {
		t.Fatal("expected error on closed db")
	}
	if err := s.LogFeedback(FeedbackRecord{Mode: "neutral"}); err == nil {
		t.Fatal("expected error on closed db")
	}
	if _, err := s.ListDecisions(1); err == nil {
		t.Fatal("expected error on closed db")
	}
	if _, err := s.ListFeedback(1); err == nil {
		t.Fatal("expected error on closed db")
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "journal.db"))
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestListDecisionsBadJSON(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	db.Exec(`INSERT INTO decisions (id, tokens_json, scores_json, mode, created_at) VALUES ('bad', 'not-json', '{}', 'neutral', '2026-01-01T00:00:00Z')`)

	if _, err := NewStoreWithDB(db).ListDecisions(10); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
