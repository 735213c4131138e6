package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/feedback-layer/internal/diag"
	"github.com/danielpatrickdp/feedback-layer/internal/layer"
	"github.com/danielpatrickdp/feedback-layer/internal/render"
	"github.com/danielpatrickdp/feedback-layer/internal/replay"
)

var errDiverged = errors.New("replay diverged from expected results")

// #region replay-cmd

func newReplayCmd(root *rootOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "replay <fixture.json>",
		Short: "Replay recorded rounds against a fresh layer and compare outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), root.logLevel, root.logJSON)
			if err != nil {
				return err
			}
			f, err := replay.LoadFixture(args[0])
			if err != nil {
				return err
			}
			report, err := replay.Run(f, layer.Options{
				Sink:    diag.NewSlogSink(logger),
				Verbose: root.verbose,
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				if err := printJSON(w, report); err != nil {
					return err
				}
			} else {
				printReport(w, f, report)
			}
			if report.Diverged() {
				return fmt.Errorf("%w: %d mismatch(es)", errDiverged, len(report.Divergences))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

func printReport(w io.Writer, f *replay.Fixture, report *replay.Report) {
	if f.Description != "" {
		fmt.Fprintf(w, "%s\n\n", f.Description)
	}

	expected := make(map[string]replay.FixtureExpectedResult, len(f.ExpectedResults))
	for _, e := range f.ExpectedResults {
		expected[e.RoundID] = e
	}

	fmt.Fprintf(w, "%-12s  %-12s  %-12s  %-8s  %-8s  %s\n", "Round", "Mode", "Expected", "Action", "Expected", "Match")
	fmt.Fprintf(w, "%-12s+-%-12s+-%-12s+-%-8s+-%-8s+-%s\n", "------------", "------------", "------------", "--------", "--------", "-----")
	for _, r := range report.Results {
		e := expected[r.RoundID]
		match := "ok"
		if (e.Mode != "" && e.Mode != r.Mode) || (e.Action != "" && e.Action != r.Action) {
			match = "DIFF"
		}
		fmt.Fprintf(w, "%-12s  %-12s  %-12s  %-8s  %-8s  %s\n",
			r.RoundID, r.Mode, orDash(e.Mode), r.Action, orDash(e.Action), match)
	}

	s := report.Summary
	fmt.Fprintf(w, "\n%d rounds: %d commit, %d no_op, %d reject, %d skip, %d error\n\n",
		s.TotalRounds, s.Commits, s.NoOps, s.Rejects, s.Skips, s.Errors)
	fmt.Fprint(w, render.Flat(s.FinalBeta))

	if len(report.Divergences) > 0 {
		fmt.Fprintln(w, "\nDivergences:")
		for _, d := range report.Divergences {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion replay-cmd
