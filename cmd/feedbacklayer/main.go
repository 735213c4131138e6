// Command feedbacklayer selects behavioral modes from active tokens and
// adapts the selection from scalar rewards.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/feedback-layer/internal/config"
	"github.com/danielpatrickdp/feedback-layer/internal/diag"
	"github.com/danielpatrickdp/feedback-layer/internal/journal"
	"github.com/danielpatrickdp/feedback-layer/internal/layer"
	"github.com/danielpatrickdp/feedback-layer/internal/metrics"
)

// #region main

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region root

type rootOptions struct {
	configPath string
	verbose    bool
	logLevel   string
	logJSON    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "feedbacklayer",
		Short:         "Deterministic mode selection with reward-driven adaptation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", envOr("FEEDBACK_CONFIG", ""),
		"config file (.json, .yaml, .yml, .toml); built-in demo defaults when empty")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "emit unweighted / unknown token diagnostics")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "log as JSON")

	cmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newReplayCmd(opts),
		newServeCmd(opts),
		newInspectCmd(),
	)
	return cmd
}

// #endregion root

// #region session

// session bundles one layer with its collaborators for a subcommand.
type session struct {
	cfg     *config.Config
	layer   *layer.Layer
	journal *journal.Store
	logger  *slog.Logger
}

func (s *session) Close() {
	if s.journal != nil {
		s.journal.Close()
	}
}

// openSession loads config, opens the journal at journalDSN (skipped when
// empty), and builds the layer.
func openSession(cmd *cobra.Command, opts *rootOptions, journalDSN string, m *metrics.Metrics) (*session, error) {
	logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logJSON)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger}
	if journalDSN != "" {
		j, err := journal.NewStore(journalDSN)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		s.journal = j
	}

	l, err := layer.New(cfg, layer.Options{
		Sink:    diag.NewSlogSink(logger),
		Verbose: opts.verbose,
		Journal: s.journal,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.layer = l
	return s, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		var cerr *config.Error
		if errors.As(err, &cerr) {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// #endregion session

// #region helpers

func newLogger(w io.Writer, level string, asJSON bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	}
	return slog.New(slog.NewTextHandler(w, hopts)), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
