package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/feedback-layer/internal/journal"
)

// #region inspect-cmd

type inspectOutput struct {
	Decisions []journal.DecisionRecord `json:"decisions"`
	Feedback  []journal.FeedbackRecord `json:"feedback"`
}

func newInspectCmd() *cobra.Command {
	var (
		dbPath  string
		last    int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show recent decisions and feedback from a journal file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" || dbPath == journal.MemoryDSN {
				return fmt.Errorf("inspect: --journal must name a journal file")
			}
			store, err := journal.NewStore(dbPath)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			decisions, err := store.ListDecisions(last)
			if err != nil {
				return err
			}
			feedback, err := store.ListFeedback(last)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				return printJSON(w, inspectOutput{Decisions: decisions, Feedback: feedback})
			}
			printInspect(w, decisions, feedback)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&dbPath, "journal", envOr("FEEDBACK_JOURNAL", ""), "SQLite journal path")
	f.IntVar(&last, "last", 20, "show N most recent rows of each kind")
	f.BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

func printInspect(w io.Writer, decisions []journal.DecisionRecord, feedback []journal.FeedbackRecord) {
	if len(decisions) == 0 && len(feedback) == 0 {
		fmt.Fprintln(w, "journal is empty")
		return
	}

	fmt.Fprintf(w, "%-12s  %-12s  %-30s  %s\n", "Decision", "Mode", "Tokens", "Time")
	fmt.Fprintf(w, "%-12s+-%-12s+-%-30s+-%s\n", "------------", "------------", "------------------------------", "--------------------")
	for _, d := range decisions {
		fmt.Fprintf(w, "%-12s  %-12s  %-30s  %s\n",
			shortID(d.ID), d.Mode, strings.Join(d.Tokens, ","), d.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}

	fmt.Fprintf(w, "\n%-6s  %-12s  %-12s  %8s  %-7s  %s\n", "#", "Decision", "Mode", "Reward", "Action", "Cells")
	fmt.Fprintf(w, "%-6s+-%-12s+-%-12s+-%8s+-%-7s+-%s\n", "------", "------------", "------------", "--------", "-------", "--------------------")
	for _, f := range feedback {
		cells := make([]string, 0, len(f.Cells))
		for _, c := range f.Cells {
			mark := ""
			if c.Clamped {
				mark = "*"
			}
			cells = append(cells, fmt.Sprintf("%s %.3f→%.3f%s", c.Token, c.Before, c.After, mark))
		}
		fmt.Fprintf(w, "%-6d  %-12s  %-12s  %8.3f  %-7s  %s\n",
			f.ID, orDash(shortID(f.DecisionID)), f.Mode, f.Reward, f.Action, strings.Join(cells, ", "))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion inspect-cmd
