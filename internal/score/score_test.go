package score

import (
	"math"
	"sync"
	"testing"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/diag"
)

var modes = []string{"neutral", "supportive", "directive"}

func seededStore() *association.Store {
	s := association.NewStore()
	s.Set("supportive", "overload", 0.8)
	s.Set("neutral", "engineering", 0.6)
	return s
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScoreModesScenario(t *testing.T) {
	sc := NewScorer(seededStore(), modes, Options{})
	scores := sc.ScoreModes(
		[]string{"overload", "engineering"},
		map[string]float64{"overload": 0.5, "engineering": 0.5},
	)

	want := map[string]float64{"supportive": 0.4, "neutral": 0.3, "directive": 0.0}
	for m, w := range want {
		if !approx(scores[m], w) {
			t.Errorf("%s: expected %.4f, got %.4f", m, w, scores[m])
		}
	}
}

func TestScoreModesEmptyActive(t *testing.T) {
	sc := NewScorer(seededStore(), modes, Options{})
	scores := sc.ScoreModes(nil, map[string]float64{"overload": 1})

	if len(scores) != len(modes) {
		t.Fatalf("expected a score for every mode, got %v", scores)
	}
	for m, v := range scores {
		if v != 0 {
			t.Errorf("%s: expected 0, got %f", m, v)
		}
	}
}

func TestScoreModesUnweightedTokenWarns(t *testing.T) {
	var c diag.Collector
	sc := NewScorer(seededStore(), modes, Options{Sink: &c, Verbose: true})

	scores := sc.ScoreModes([]string{"overload", "engineering"}, map[string]float64{"engineering": 1})

	if !approx(scores["supportive"], 0) {
		t.Fatalf("unweighted token should contribute 0, got %f", scores["supportive"])
	}
	if !approx(scores["neutral"], 0.6) {
		t.Fatalf("expected neutral 0.6, got %f", scores["neutral"])
	}
	if c.Count(diag.CodeUnweightedToken) != 1 {
		t.Fatalf("expected 1 unweighted warning, got %d", c.Count(diag.CodeUnweightedToken))
	}
}

func TestScoreModesQuietWhenNotVerbose(t *testing.T) {
	var c diag.Collector
	sc := NewScorer(seededStore(), modes, Options{Sink: &c, Tokens: []string{"overload"}})
	sc.ScoreModes([]string{"mystery"}, nil)
	if len(c.Events()) != 0 {
		t.Fatalf("expected no diagnostics without verbose, got %v", c.Events())
	}
}

func TestScoreModesUnknownTokenWarns(t *testing.T) {
	var c diag.Collector
	sc := NewScorer(seededStore(), modes, Options{
		Tokens: []string{"overload", "engineering"}, Sink: &c, Verbose: true,
	})
	sc.ScoreModes([]string{"mystery"}, map[string]float64{"mystery": 1})
	if c.Count(diag.CodeUnknownToken) != 1 {
		t.Fatalf("expected unknown token warning, got %v", c.Events())
	}
}

func TestScoreModesDuplicateTokensCountOnce(t *testing.T) {
	sc := NewScorer(seededStore(), modes, Options{})
	scores := sc.ScoreModes([]string{"overload", "overload"}, map[string]float64{"overload": 1})
	if !approx(scores["supportive"], 0.8) {
		t.Fatalf("expected 0.8, got %f", scores["supportive"])
	}
}

func TestScoreModesDoesNotMutate(t *testing.T) {
	store := seededStore()
	before := store.Snapshot()
	sc := NewScorer(store, modes, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sc.ScoreModes([]string{"overload", "bf_play"}, map[string]float64{"overload": 1, "bf_play": 1})
		}()
	}
	wg.Wait()

	after := store.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("scoring materialized entries: %v", after)
	}
	for k, v := range before {
		if after[k] != v {
			t.Fatalf("scoring changed %v", k)
		}
	}
}

func TestUniformWeights(t *testing.T) {
	w := UniformWeights([]string{"overload", "bf_play", "engineering", "overload"})
	if len(w) != 3 {
		t.Fatalf("expected 3 weights, got %v", w)
	}
	for tok, v := range w {
		if !approx(v, 1.0/3.0) {
			t.Errorf("%s: expected 1/3, got %f", tok, v)
		}
	}
	if len(UniformWeights(nil)) != 0 {
		t.Fatal("expected empty weights for no tokens")
	}
}
