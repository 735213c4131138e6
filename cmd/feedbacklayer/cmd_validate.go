package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// #region validate-cmd

func newValidateCmd(root *rootOptions) *cobra.Command {
	var dump bool
	cmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "Parse and validate a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configPath
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if dump {
				return printJSON(w, cfg.Document())
			}
			src := path
			if src == "" {
				src = "built-in defaults"
			}
			fmt.Fprintf(w, "%s: ok (%d modes, %d tokens, %d seeds, clamp [%g, %g], learning_rate %g)\n",
				src, len(cfg.Modes), len(cfg.Tokens), len(cfg.BetaSeeds),
				cfg.Params.ClampMin, cfg.Params.ClampMax, cfg.Params.LearningRate)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "print the normalized config as JSON")
	return cmd
}

// #endregion validate-cmd
