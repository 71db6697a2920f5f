package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"github.com/solatis/expenserules/internal/config"
	"github.com/solatis/expenserules/internal/logging"
	"github.com/solatis/expenserules/internal/metrics"
	"github.com/solatis/expenserules/internal/rules"
	"github.com/solatis/expenserules/internal/store"
	"github.com/spf13/cobra"
)

// Version is the CLI release.
const Version = "0.1.0"

var (
	configFile string

	cfg       *config.Config
	logger    *slog.Logger
	collector *metrics.Collector
)

var rootCmd = &cobra.Command{
	Use:           "expenserules",
	Short:         "Expense validation rule engine",
	Long:          `expenserules stores expense policy rules and evaluates expense records against them.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		collector = metrics.NewCollector(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil || cfg.Metrics.Textfile == "" {
			return nil
		}
		return collector.WriteTextfile(cfg.Metrics.Textfile)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path")
	flags.String("db", "", "rule store URL (sqlite://path, postgres://... or memory://)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (json, text)")
	flags.Int("concurrency", rules.DefaultConcurrency, "parallel expense evaluations")
	flags.Duration("timeout", 0, "overall deadline for one command")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

// commandContext bounds a command by the configured timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, cfg.Engine.Timeout)
}

// ruleStore is what the CLI needs from a store: the engine contract plus Close.
type ruleStore interface {
	rules.RuleStore
	Close() error
}

type memoryStore struct{ *store.Memory }

func (memoryStore) Close() error { return nil }

// openStore opens the configured store. SQL stores are migrated first so
// every command works against a fresh database.
func openStore(ctx context.Context) (ruleStore, error) {
	u, err := url.Parse(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	if u.Scheme == "memory" {
		logger.Debug("using in-memory rule store")
		return memoryStore{store.NewMemory()}, nil
	}

	s, err := store.OpenSQL(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule store %s: %w", cfg.RedactedDatabaseURL(), err)
	}
	logger.Debug("rule store opened", slog.String("url", cfg.RedactedDatabaseURL()))
	return s, nil
}

// openEngine opens the store and builds an engine over it.
func openEngine(ctx context.Context) (*rules.Engine, func(), error) {
	s, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	engine := rules.NewEngine(s,
		rules.WithLogger(logger),
		rules.WithRecorder(collector),
		rules.WithConcurrency(cfg.Engine.Concurrency),
	)
	closeFn := func() {
		if err := s.Close(); err != nil {
			logger.Warn("failed to close rule store", slog.String("error", err.Error()))
		}
	}
	return engine, closeFn, nil
}

// openInput opens path, or the command's stdin when path is "-" or empty.
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
