// Package cli provides the command-line interface for the trade journal.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-journal/internal/alerts"
	"trade-journal/internal/config"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
	"trade-journal/internal/stats"
	"trade-journal/internal/store"
	"trade-journal/internal/tilt"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// skipSetup marks commands that run without configuration.
const skipSetup = "skip-setup"

// App holds the application dependencies. They are built once the flags
// are parsed.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Memoized
	Alerts  *alerts.Engine

	store     store.Store
	closeMemo func() error
}

// NewApp creates an unconfigured application.
func NewApp() *App {
	return &App{Logger: zerolog.Nop(), closeMemo: func() error { return nil }}
}

// setup loads the configuration and builds the engines.
func (a *App) setup(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	a.Config = cfg

	a.Logger = logging.NewLoggerWithConfig(cfg.Log)
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}

	mc, err := cfg.MetricsConfig()
	if err != nil {
		return err
	}
	memo, closeMemo := cfg.NewMemo(a.Logger)
	a.closeMemo = closeMemo
	a.Metrics = metrics.NewMemoized(metrics.NewEngine(mc, a.Logger), memo, a.Logger)
	a.Alerts = alerts.NewEngine(cfg.AlertOptions(a.Logger)...)

	a.Logger.Debug().Str("config_dir", cfg.Dir).Msg("Application configured")
	return nil
}

// Store opens the journal store on first use.
func (a *App) Store() (store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	path := a.Config.Store.Path
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", path).Msg("SQLite store opened")
	a.store = s
	return s, nil
}

// Close releases the store and the memo.
func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
		a.store = nil
	}
	if cerr := a.closeMemo(); err == nil {
		err = cerr
	}
	return err
}

// settings returns the stored settings, or nil for the defaults.
func (a *App) settings(ctx context.Context, s store.Store) (*models.AppSettings, error) {
	settings, err := s.GetSettings(ctx)
	if apperrors.Is(err, apperrors.ErrSettingsNotFound) {
		return nil, nil
	}
	return settings, err
}

// loadJournal loads a journal and the settings it is evaluated against.
func (a *App) loadJournal(ctx context.Context, id string) (store.Store, *models.Journal, *models.AppSettings, error) {
	s, err := a.Store()
	if err != nil {
		return nil, nil, nil, err
	}
	j, err := s.GetJournal(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	settings, err := a.settings(ctx, s)
	if err != nil {
		return nil, nil, nil, err
	}
	return s, j, settings, nil
}

// analyzer builds a stats analyzer with the configured tilt tunables.
func (a *App) analyzer() *stats.Analyzer {
	return stats.NewAnalyzer(tilt.NewCalculator(a.Config.Engine.TiltWeights, a.Config.Engine.RCaps))
}

// Execute runs the CLI with args and releases resources afterwards.
func Execute(ctx context.Context, args []string) error {
	app := NewApp()
	defer app.Close()

	root := NewRootCmd(app)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade journal analytics and discipline scoring",
		Long: `Trade journal computes derived metrics for journaled trades (P/L, pips,
risk and reward, discipline score, tilt index, matched setups), raises
behavioral alerts, and reports aggregate performance.

Import a journal as JSON, then recompute, run alerts and report on it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] != "" {
				return nil
			}
			if err := app.setup(cmd); err != nil {
				return err
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), app.Logger))
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addJournalCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addAlertCommands(rootCmd, app)
	addReportCommands(rootCmd, app)
	addCacheCommands(rootCmd, app)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Trade Journal v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration file path",
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			path := config.Path(dir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("General")
	output.Printf("  Config dir:      %s\n", cfg.Dir)
	output.Printf("  Timezone:        %s\n", cfg.Timezone)
	output.Printf("  Database:        %s\n", cfg.Store.Path)
	output.Printf("  Log level:       %s\n", cfg.Log.Level)
	output.Println()

	output.Bold("Cache")
	output.Printf("  Memory entries:  %d\n", cfg.Cache.MemoryEntries)
	output.Printf("  TTL:             %s\n", cfg.Cache.TTL)
	output.Printf("  Redis:           %v (%s)\n", cfg.Cache.Enabled, cfg.Cache.Redis.Address)
	output.Println()

	e := cfg.Engine
	output.Bold("Engine")
	output.Printf("  Alert interval:  every %d trades\n", e.AlertInterval)
	output.Printf("  Lessons length:  %d\n", e.LessonsMinLength)
	output.Printf("  Score bands:     green >= %.0f, yellow >= %.0f\n", e.Bands.Green, e.Bands.Yellow)
	output.Printf("  Tilt weights:    score %.2f, sentiment %.2f, custom %.2f, R %.2f, outcome %.2f, P/L %.2f\n",
		e.TiltWeights.Score, e.TiltWeights.Sentiment, e.TiltWeights.CustomField,
		e.TiltWeights.RealizedR, e.TiltWeights.Outcome, e.TiltWeights.PnL)
	output.Printf("  R caps:          lower %.2f, pivot %.2f, upper %.2f\n", e.RCaps.Lower, e.RCaps.Pivot, e.RCaps.Upper)
	output.Println()

	output.Bold("Sessions")
	if len(cfg.Sessions) == 0 && len(cfg.Zones) == 0 {
		output.Dim("  built-in forex sessions and kill zones")
		return
	}
	for _, w := range cfg.Sessions {
		output.Printf("  %-16s %s-%s\n", w.Name, w.Start, w.End)
	}
	output.Bold("Zones")
	for _, w := range cfg.Zones {
		output.Printf("  %-16s %s-%s\n", w.Name, w.Start, w.End)
	}
}
