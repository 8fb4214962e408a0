package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GapScout/internal/di"
	"GapScout/pkg/config"
	"GapScout/pkg/server"
	"GapScout/pkg/util"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

var (
	configPath string
	scanOnce   bool
	debug      bool
	interval   time.Duration
	force      bool
)

var rootCmd = &cobra.Command{
	Use:   "gapscout",
	Short: "Small-cap gap scanner with edge scoring",
	Long: `GapScout watches a list of small-cap tickers, detects opening gaps,
enriches them with float, news and historical gap behaviour, scores the
edge and sends alerts to Telegram or the terminal.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if scanOnce {
			return runScan(cmd.Context())
		}
		return runServe(cmd.Context())
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan cycle now and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScan(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Scan on a schedule and serve the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL...",
	Short: "Print the alert for specific symbols without sending it",
	Example: `  gapscout analyze KLTO
  gapscout analyze KLTO,KZIA --force`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbols := util.NormalizeSymbols(args)
		if len(symbols) == 0 {
			return errors.New("no valid symbols given")
		}
		app, err := build()
		if err != nil {
			return err
		}
		return app.Analyze(cmd.Context(), symbols, force, cmd.OutOrStdout())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", defaultConfigPath, "config file path")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.DurationVar(&interval, "interval", 0, "override the scan interval")

	rootCmd.Flags().BoolVar(&scanOnce, "once", false, "run one scan cycle and exit")
	analyzeCmd.Flags().BoolVar(&force, "force", false, "analyse even when no gap qualifies")

	rootCmd.AddCommand(scanCmd, serveCmd, analyzeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	app, err := build()
	if err != nil {
		return err
	}
	return app.Serve(ctx)
}

func runScan(ctx context.Context) error {
	app, err := build()
	if err != nil {
		return err
	}
	return app.ScanOnce(ctx)
}

// build loads configuration, applies flag overrides and wires the app.
// A missing default config file falls back to built-in defaults plus env.
func build() (*server.App, error) {
	path := configPath
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	if interval > 0 {
		cfg.Scanner.Interval = interval
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	app.Logger().Debug("config loaded")
	return app, nil
}
