package config

import (
	"strconv"

	"github.com/rs/zerolog/log"
)

// Listener and database configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// WebPort is the port of the HTTP API.
	WebPort string
	// GRPCHealthPort is the port of the gRPC health service.
	GRPCHealthPort string

	// Database connection settings.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
)

// LoadEndpointConfig loads listener and database configuration from environment variables.
// LoadConfig calls it; tools that only need the database call it directly.
func LoadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	WebPort = getEnvOrDefault("WEB_PORT", "8080")
	GRPCHealthPort = getEnvOrDefault("GRPC_HEALTH_PORT", "9090")

	DBHost = getEnvOrDefault("DB_HOST", "localhost")
	port, err := getEnvAsUint64OrDefault("DB_PORT", 5432)
	if err != nil {
		return err
	}
	DBPort = int(port)
	DBUser = getEnvOrDefault("DB_USER", "")
	DBPassword = getEnvOrDefault("DB_PASSWORD", "")
	DBName = getEnvOrDefault("DB_NAME", "lbp")
	DBSSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	log.Debug().
		Str("WebPort", WebPort).
		Str("GRPCHealthPort", GRPCHealthPort).
		Str("DBHost", DBHost).
		Str("DBPort", strconv.Itoa(DBPort)).
		Str("DBName", DBName).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
