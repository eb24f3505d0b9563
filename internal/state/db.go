// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	"github.com/elys-network/lbp/internal/config"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// ConfiguredDB returns the connection parameters loaded by config.LoadEndpointConfig.
func ConfiguredDB() DBConfig {
	return DBConfig{
		Host:     config.DBHost,
		Port:     config.DBPort,
		User:     config.DBUser,
		Password: config.DBPassword,
		DBName:   config.DBName,
		SSLMode:  config.DBSSLMode,
	}
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("database", cfg.DBName).Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// Tables owned by the engine, in drop order.
var Tables = []string{"lbp_receipts", "lbp_accounts", "lbp_checkpoints", "lbp_engine_parameters"}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		-- Every committed account, stored as its tagged JSON record
		CREATE TABLE IF NOT EXISTS lbp_accounts (
			account_key VARCHAR(255) PRIMARY KEY,
			account_type SMALLINT NOT NULL,
			version SMALLINT NOT NULL,
			payload JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_lbp_accounts_type ON lbp_accounts(account_type);

		-- Journal of committed operations
		CREATE TABLE IF NOT EXISTS lbp_receipts (
			receipt_id UUID PRIMARY KEY,
			committed_at TIMESTAMPTZ NOT NULL,
			operation VARCHAR(50) NOT NULL,
			pool_key VARCHAR(255),
			caller VARCHAR(255) NOT NULL,
			assets TEXT[], -- PostgreSQL array of the assets the operation moved
			receipt JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_lbp_receipts_committed_at ON lbp_receipts(committed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_lbp_receipts_pool_key ON lbp_receipts(pool_key);
		CREATE INDEX IF NOT EXISTS idx_lbp_receipts_operation ON lbp_receipts(operation);

		-- Engine parameters each daemon start ran under
		CREATE TABLE IF NOT EXISTS lbp_engine_parameters (
			params_id SERIAL PRIMARY KEY,
			trading_window VARCHAR(32) NOT NULL,
			join_mode VARCHAR(32) NOT NULL,
			weight_normalization BIGINT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_lbp_engine_parameters_active ON lbp_engine_parameters(is_active, activated_at DESC);

		-- Checkpoint counter and custody snapshot, single row
		CREATE TABLE IF NOT EXISTS lbp_checkpoints (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_checkpoint INTEGER NOT NULL DEFAULT 0,
			custody JSONB NOT NULL DEFAULT '[]'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO lbp_checkpoints (id, current_checkpoint)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// DropSchema removes every engine table.
func DropSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	for _, table := range Tables {
		if _, err := DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
		log.Info().Str("table", table).Msg("Dropped table")
	}
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
