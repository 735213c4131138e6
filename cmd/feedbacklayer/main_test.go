package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/feedback-layer/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FEEDBACK_CONFIG", "")
	t.Setenv("FEEDBACK_JOURNAL", "")
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func beta(out runOutput, mode, token string) float64 {
	for _, e := range out.Beta {
		if e.Mode == mode && e.Token == token {
			return e.Value
		}
	}
	return 0
}

func TestRunDefaults(t *testing.T) {
	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected mode:")
	assert.Contains(t, out, "supportive")
	assert.Contains(t, out, "β snapshot:")
	assert.Contains(t, out, "  supportive|overload: 0.900\n")
	assert.Contains(t, out, "  supportive|bf_play: 0.100\n")
}

func TestRunJSONNoFeedback(t *testing.T) {
	out, err := execute(t, "run", "--no-feedback", "--json")
	require.NoError(t, err)

	var got runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "supportive", got.Decision.Mode)
	assert.Nil(t, got.Feedback)
	assert.Equal(t, 0.8, beta(got, "supportive", "overload"))
	assert.Len(t, got.Beta, 3)
}

func TestRunExplicitTokensAndWeights(t *testing.T) {
	out, err := execute(t, "run", "--json",
		"--tokens", "engineering",
		"--weight", "engineering=1",
		"--reward", "-1",
	)
	require.NoError(t, err)

	var got runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "neutral", got.Decision.Mode)
	require.NotNil(t, got.Feedback)
	assert.InDelta(t, 0.5, beta(got, "neutral", "engineering"), 1e-12)
}

func TestRunWithConfigFile(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
modes: [calm, firm]
tokens: [stress]
beta_seeds:
  "firm|stress": 0.3
params:
  learning_rate: 0.5
  clamp_min: -1
  clamp_max: 1
  reward: 1
`)
	out, err := execute(t, "--config", path, "run", "--json")
	require.NoError(t, err)

	var got runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "firm", got.Decision.Mode)
	assert.InDelta(t, 0.8, beta(got, "firm", "stress"), 1e-12)
}

func TestRunMalformedConfig(t *testing.T) {
	path := writeFile(t, "bad.json", `{"modes":["a"],"tokens":["t"],"beta_seeds":{"a|t|x":1},"params":{"learning_rate":0.1,"clamp_min":-1,"clamp_max":1,"reward":1}}`)
	_, err := execute(t, "--config", path, "run")
	require.Error(t, err)

	var cerr *config.Error
	assert.True(t, errors.As(err, &cerr), "got %v", err)
}

func TestRunMissingConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.json"), "run")
	assert.Error(t, err)
}

func TestRunBadWeight(t *testing.T) {
	_, err := execute(t, "run", "--weight", "overload=abc")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	path := writeFile(t, "cfg.toml", `
modes = ["a", "b"]
tokens = ["t"]

[beta_seeds]
"a|t" = 0.5

[params]
learning_rate = 0.1
clamp_min = -2.0
clamp_max = 2.0
reward = 1.0
`)
	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (2 modes, 1 tokens, 1 seeds")

	out, err = execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "built-in defaults: ok")
}

func TestValidateDump(t *testing.T) {
	out, err := execute(t, "validate", "--dump")
	require.NoError(t, err)

	var doc config.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, []string{"neutral", "supportive", "directive"}, doc.Modes)
	assert.Equal(t, 0.8, doc.BetaSeeds["supportive|overload"])
}

func TestValidateRejectsInvertedClamp(t *testing.T) {
	path := writeFile(t, "cfg.json", `{"modes":["a"],"tokens":[],"params":{"learning_rate":0.1,"clamp_min":2,"clamp_max":-2,"reward":1}}`)
	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clamp_min")
}

func TestReplayFixture(t *testing.T) {
	out, err := execute(t, "replay", filepath.Join("..", "..", "internal", "replay", "testdata", "demo_rounds.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "round-4")
	assert.Contains(t, out, "5 rounds: 3 commit, 1 no_op, 0 reject, 1 skip, 0 error")
	assert.NotContains(t, out, "DIFF")
}

func TestReplayDivergence(t *testing.T) {
	path := writeFile(t, "fixture.json", `{
  "config": {"modes": ["a", "b"], "tokens": ["t"], "params": {"learning_rate": 0.1, "clamp_min": -1, "clamp_max": 1, "reward": 1}},
  "rounds": [{"round_id": "r1", "tokens": ["t"], "reward": 1}],
  "expected_results": [{"round_id": "r1", "mode": "b", "action": "commit"}]
}`)
	out, err := execute(t, "replay", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errDiverged))
	assert.Contains(t, out, "DIFF")
	assert.Contains(t, out, "r1: mode want b, got a")
}

func TestInspectJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	_, err := execute(t, "run", "--journal", dbPath)
	require.NoError(t, err)
	_, err = execute(t, "run", "--journal", dbPath, "--no-feedback")
	require.NoError(t, err)

	out, err := execute(t, "inspect", "--journal", dbPath, "--json")
	require.NoError(t, err)
	var got inspectOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Decisions, 2)
	require.Len(t, got.Feedback, 1)
	assert.Equal(t, "commit", got.Feedback[0].Action)
	assert.Equal(t, got.Decisions[1].ID, got.Feedback[0].DecisionID)

	out, err = execute(t, "inspect", "--journal", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "supportive")
	assert.Contains(t, out, "overload 0.800→0.900")
}

func TestInspectRequiresJournal(t *testing.T) {
	_, err := execute(t, "inspect")
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "run")
	assert.Error(t, err)

	_, err = execute(t, "--log-level", "debug", "--log-json", "--verbose", "run", "--tokens", "mystery")
	assert.NoError(t, err)
}

func TestServeRequiresAddress(t *testing.T) {
	_, err := execute(t, "serve", "--grpc-addr", "", "--http-addr", "")
	assert.Error(t, err)
}
