package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/journal"
	"github.com/danielpatrickdp/feedback-layer/internal/layer"
	"github.com/danielpatrickdp/feedback-layer/internal/render"
	"github.com/danielpatrickdp/feedback-layer/internal/update"
)

// #region run-cmd

type runOptions struct {
	tokens     []string
	weights    map[string]string
	reward     float64
	noFeedback bool
	journal    string
	jsonOut    bool
}

type runOutput struct {
	Decision layer.Decision      `json:"decision"`
	Feedback *update.Result      `json:"feedback,omitempty"`
	Beta     []association.Entry `json:"beta"`
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Select a mode for the active tokens, then reward it once",
		Long: `Select a mode for the active tokens and apply the configured reward to the
selected mode. With no --tokens every configured token is active, each
weighted 1/n.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&opts.tokens, "tokens", nil, "active tokens (default: all configured tokens)")
	f.StringToStringVar(&opts.weights, "weight", nil, "token weight, e.g. --weight overload=0.5 (default: uniform)")
	f.Float64Var(&opts.reward, "reward", 0, "reward for the selected mode (default: params.reward)")
	f.BoolVar(&opts.noFeedback, "no-feedback", false, "select only; leave β untouched")
	f.StringVar(&opts.journal, "journal", envOr("FEEDBACK_JOURNAL", journal.MemoryDSN), "SQLite journal path")
	f.BoolVar(&opts.jsonOut, "json", false, "output as JSON")
	return cmd
}

func runOnce(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	s, err := openSession(cmd, root, opts.journal, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	tokens := opts.tokens
	if len(tokens) == 0 {
		tokens = s.layer.Tokens()
	}
	weights, err := parseWeights(opts.weights)
	if err != nil {
		return err
	}

	d, err := s.layer.Decide(layer.DecideRequest{Tokens: tokens, Weights: weights, IncludeScores: true})
	if err != nil {
		return err
	}
	out := runOutput{Decision: d}

	if !opts.noFeedback {
		reward := s.cfg.Params.Reward
		if cmd.Flags().Changed("reward") {
			reward = opts.reward
		}
		res, err := s.layer.Feedback(layer.FeedbackRequest{
			DecisionID: d.ID,
			Mode:       d.Mode,
			Tokens:     tokens,
			Reward:     reward,
		})
		if err != nil {
			return err
		}
		out.Feedback = &res
	}
	out.Beta = s.layer.Snapshot()

	w := cmd.OutOrStdout()
	if opts.jsonOut {
		return printJSON(w, out)
	}
	printRun(w, s.layer, out)
	return nil
}

func printRun(w io.Writer, l *layer.Layer, out runOutput) {
	fmt.Fprintln(w, render.Decision(out.Decision.ID, out.Decision.Mode, out.Decision.Ranking))
	if out.Feedback != nil {
		fmt.Fprintf(w, "\nfeedback: %s (%s)\n", out.Feedback.Decision.Action, out.Feedback.Decision.Reason)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, render.Matrix(l.Modes(), l.Tokens(), out.Beta))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "β snapshot:")
	for _, line := range strings.Split(strings.TrimSuffix(render.Flat(out.Beta), "\n"), "\n") {
		if line != "" {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

// parseWeights converts --weight token=value pairs. An empty set means
// uniform weights.
func parseWeights(raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(raw))
	for t, v := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("weight for %q: %w", t, err)
		}
		out[t] = f
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion run-cmd
