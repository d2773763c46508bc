package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/runpulse/runpulse/internal/config"
	"github.com/runpulse/runpulse/internal/srcom"
	"github.com/runpulse/runpulse/internal/track"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagDataDir    string
	flagLogLevel   string
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Config

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runpulse",
		Short:   "speedrun.com world record tracker",
		Long:    "Tracks world records on speedrun.com leaderboards and tells you when they fall.",
		Version: version,
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory for the tracked-runs state file")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newTrackCmd())
	cmd.AddCommand(newUntrackCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newMarkReadCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// and stores the result in resolvedCfg for use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		LogLevel:   flagLogLevel,
	}

	// Only pass --data-dir to the resolver if the user explicitly set it.
	if cmd.Flags().Changed("data-dir") {
		cli.DataDir = &flagDataDir
	}

	env := config.ReadEnvOverrides()

	cfg, err := config.Resolve(env, cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = cfg

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. The config file provides the baseline; --verbose and --quiet
// override it because CLI flags always win. Format "auto" picks text on a
// terminal and JSON otherwise.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	format := "text"
	if resolvedCfg != nil {
		format = resolvedCfg.Logging.Format
	}

	if format == "auto" {
		format = "json"
		if isatty.IsTerminal(os.Stderr.Fd()) {
			format = "text"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newAPIClient builds the speedrun.com client from the resolved config.
func newAPIClient(logger *slog.Logger) *srcom.Client {
	cfg := resolvedCfg

	opts := []srcom.Option{
		srcom.WithRetries(cfg.API.MaxRetries, cfg.API.InitialDelayDuration()),
	}

	if cfg.API.RateLimit > 0 {
		opts = append(opts, srcom.WithRateLimit(cfg.API.RateLimit))
	}

	httpClient := &http.Client{Timeout: cfg.API.TimeoutDuration()}

	return srcom.NewClient(cfg.API.BaseURL, httpClient, logger, opts...)
}

// loadStore loads the tracked-runs store and a writer for it.
func loadStore(logger *slog.Logger) (*track.Store, *track.Writer, error) {
	store := track.NewStore(logger)

	path := resolvedCfg.StatePath()
	if err := store.Load(path); err != nil {
		return nil, nil, fmt.Errorf("loading tracked runs: %w", err)
	}

	writer := track.NewWriter(path, resolvedCfg.Check.SaveDelayDuration(), logger)

	return store, writer, nil
}

// newEngine assembles the check engine with the configured worker ceiling
// and timing.
func newEngine(store *track.Store, writer *track.Writer, logger *slog.Logger) *track.Engine {
	return track.NewEngine(track.EngineConfig{
		Store:           store,
		Writer:          writer,
		Fetcher:         newAPIClient(logger),
		Notifier:        track.NewLogNotifier(logger),
		Logger:          logger,
		MaxWorkers:      resolvedCfg.Check.MaxWorkers,
		DrainInterval:   resolvedCfg.Check.DrainIntervalDuration(),
		ShutdownTimeout: resolvedCfg.Check.ShutdownTimeoutDuration(),
	})
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
