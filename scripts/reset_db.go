package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/lbp/internal/config"
	"github.com/elys-network/lbp/internal/logger"
	"github.com/elys-network/lbp/internal/state"
)

// reset_db drops and recreates the engine tables, or with -checkpoint-only
// rewinds the checkpoint counter so the next start restores nothing.
func main() {
	checkpointOnly := flag.Bool("checkpoint-only", false, "only reset the checkpoint counter, keep every table")
	level := flag.String("log-level", "", "log level, defaults to LOG_LEVEL or info")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		// logger is not up yet
		os.Stderr.WriteString("no .env file loaded, using the process environment\n")
	}
	if *level == "" {
		*level = os.Getenv("LOG_LEVEL")
	}
	logger.Initialize(*level)

	if err := config.LoadEndpointConfig(); err != nil {
		log.Fatal().Err(err).Msg("Invalid database configuration")
	}
	dbCfg := state.ConfiguredDB()
	if dbCfg.User == "" {
		log.Fatal().Msg("DB_USER must be set to reset the database")
	}

	log.Info().Str("host", dbCfg.Host).Int("port", dbCfg.Port).Str("dbname", dbCfg.DBName).Bool("checkpoint_only", *checkpointOnly).Msg("Resetting LBP database")
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database connection")
	}
	defer state.CloseDB()

	if *checkpointOnly {
		if err := state.ResetCheckpoint(context.Background(), 0); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset checkpoint counter")
		}
		log.Info().Msg("Checkpoint counter reset; accounts and receipts kept")
		return
	}

	if err := state.DropSchema(); err != nil {
		log.Fatal().Err(err).Strs("tables", state.Tables).Msg("Failed to drop tables")
	}
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to recreate database schema")
	}
	log.Info().Strs("tables", state.Tables).Msg("Database reset complete")
}
