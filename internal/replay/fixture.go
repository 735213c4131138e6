package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/config"
	"github.com/danielpatrickdp/feedback-layer/internal/layer"
)

// BetaTolerance is the absolute tolerance for expected_beta checks.
const BetaTolerance = 1e-9

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          config.Document         `json:"config"`
	Rounds          []FixtureRound          `json:"rounds"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
	ExpectedBeta    map[string]float64      `json:"expected_beta,omitempty"`
}

// FixtureRound mirrors Round with JSON tags.
type FixtureRound struct {
	RoundID      string             `json:"round_id"`
	Tokens       []string           `json:"tokens"`
	Weights      map[string]float64 `json:"weights,omitempty"`
	Reward       *float64           `json:"reward,omitempty"`
	FeedbackMode string             `json:"feedback_mode,omitempty"`
}

// FixtureExpectedResult captures the expected mode and action per round.
type FixtureExpectedResult struct {
	RoundID string `json:"round_id"`
	Mode    string `json:"mode,omitempty"`
	Action  string `json:"action,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToConfig validates the embedded configuration document.
func (f *Fixture) ToConfig() (*config.Config, error) {
	return config.FromDocument(f.Config)
}

// ToRounds converts fixture rounds to domain rounds.
func (f *Fixture) ToRounds() []Round {
	rounds := make([]Round, len(f.Rounds))
	for i, fr := range f.Rounds {
		rounds[i] = Round{
			ID:           fr.RoundID,
			Tokens:       fr.Tokens,
			Weights:      fr.Weights,
			Reward:       fr.Reward,
			FeedbackMode: fr.FeedbackMode,
		}
	}
	return rounds
}

// ToExpectations converts expected results to domain expectations.
func (f *Fixture) ToExpectations() []Expectation {
	out := make([]Expectation, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		out[i] = Expectation{RoundID: e.RoundID, Mode: e.Mode, Action: e.Action}
	}
	return out
}

// ToExpectedBeta parses the "mode|token" keys of expected_beta.
func (f *Fixture) ToExpectedBeta() (map[association.Key]float64, error) {
	out := make(map[association.Key]float64, len(f.ExpectedBeta))
	for raw, v := range f.ExpectedBeta {
		k, err := config.ParseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("expected_beta %q: %w", raw, err)
		}
		out[k] = v
	}
	return out, nil
}

// #endregion fixture-loader

// #region run

// Report is the full outcome of replaying a fixture.
type Report struct {
	Results     []RoundResult `json:"results"`
	Summary     ReplaySummary `json:"summary"`
	Divergences []Divergence  `json:"divergences,omitempty"`
}

// Diverged reports whether any expectation failed.
func (r *Report) Diverged() bool {
	return len(r.Divergences) > 0
}

// Run replays f against a fresh layer built from its config.
func Run(f *Fixture, opts layer.Options) (*Report, error) {
	cfg, err := f.ToConfig()
	if err != nil {
		return nil, fmt.Errorf("fixture config: %w", err)
	}
	expectedBeta, err := f.ToExpectedBeta()
	if err != nil {
		return nil, err
	}
	l, err := layer.New(cfg, opts)
	if err != nil {
		return nil, err
	}

	results := Replay(l, f.ToRounds())
	final := l.Snapshot()
	div := Compare(results, f.ToExpectations())
	div = append(div, CompareBeta(final, expectedBeta, BetaTolerance)...)

	return &Report{
		Results:     results,
		Summary:     Summarize(results, final),
		Divergences: div,
	}, nil
}

// #endregion run
