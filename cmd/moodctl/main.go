package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"moodwave/internal/app"
	"moodwave/internal/config"
	"moodwave/internal/logger"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	envFile  string
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "moodctl",
		Short: "moodctl - administer a moodwave store",
		Long: `moodctl works directly against the configured moodwave database.
It reads the same environment (and .env file) as the server.
All output is JSON (pipe through jq for human-readable formatting).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newRetrainCommand())
	rootCmd.AddCommand(newForecastCommand())
	rootCmd.AddCommand(newResetModelCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openApp loads configuration and wires the application against the configured store
func openApp() (*app.Config, error) {
	logger.Log.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(logLevel); err == nil {
		logger.Log.SetLevel(level)
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading %s: %w", envFile, err)
	}

	appConfig, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	database, err := app.OpenDatabase(appConfig, nil)
	if err != nil {
		return nil, err
	}

	appCfg, err := app.NewConfig(database, appConfig, nil)
	if err != nil {
		database.Close()
		return nil, err
	}
	return appCfg, nil
}

func outputJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
