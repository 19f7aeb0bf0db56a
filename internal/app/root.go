package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/surveylca/internal/config"
	"github.com/blackwell-systems/surveylca/internal/logging"
)

var (
	dbPath     string
	configPath string
	logLevel   string

	// settings and logger are populated by PersistentPreRunE before any
	// subcommand runs.
	settings = config.Defaults()
	logger   = logging.Nop()

	// RootCmd is the root command for surveylca
	RootCmd = &cobra.Command{
		Use:   "surveylca",
		Short: "Latent class clustering for categorical survey data",
		Long: `surveylca groups survey respondents by their answer patterns.

It fits a latent class model (a mixture of independent categorical
distributions) for every cluster count in a range, keeps the count with the
lowest BIC, labels each respondent, and summarises the clusters against the
Area, Age and Sex demographics.

Input is a CSV with Serial, Area, Age, Sex and one column per question
(Q1..Q5 by default). Rows with missing answers are dropped.

Quick Start:
  1. surveylca select survey.csv        # compare cluster counts
  2. surveylca analyze survey.csv       # full run, saved to history
  3. surveylca runs                     # list past runs

Examples:
  # Search 3..6 clusters and export tables to ./out
  surveylca analyze survey.csv --min 3 --max 6 --out out

  # Re-run whenever the file is saved
  surveylca watch survey.csv

  # Show a stored run as YAML
  surveylca runs show <id> --format yaml`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadSettings,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.surveylca/surveylca.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/surveylca/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(analyzeCmd)
	RootCmd.AddCommand(selectCmd)
	RootCmd.AddCommand(runsCmd)
	RootCmd.AddCommand(watchCmd)
}

// Execute runs the root command
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return RootCmd.Execute()
}

// loadSettings reads configuration and builds the logger. Flags win over
// the config file and environment.
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	l, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	settings = cfg
	logger = l
	logger.Debug("configuration loaded",
		zap.String("config", configPath),
		zap.Int("min", cfg.Clusters.Min),
		zap.Int("max", cfg.Clusters.Max),
		zap.Uint64("seed", cfg.Fit.Seed))
	return nil
}

// getDBPath returns the database path: flag, then config, then default.
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if settings.DB != "" {
		return settings.DB, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ".surveylca")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create surveylca directory: %w", err)
	}

	return filepath.Join(dir, "surveylca.db"), nil
}
