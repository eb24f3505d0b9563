package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/lbp/internal/logger"
)

var (
	// Global flags
	logLevel string
	logFile  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lbpd",
	Short: "Liquidity bootstrapping pool engine",
	Long: `lbpd runs weighted two-asset liquidity bootstrapping pools whose weights shift
linearly over a sale window, and offers offline tools to inspect weight schedules and
invariants.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default: LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
}

// initLogging sets up the global logger before any command runs, so component loggers
// created afterwards inherit the configured writer.
func initLogging() error {
	level := logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if logFile == "" {
		logger.Initialize(level)
		return nil
	}
	file, err := logger.FileWriter(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logger.InitializeWithWriter(level, zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}, file))
	return nil
}

// main is the entry point for the LBP engine.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
