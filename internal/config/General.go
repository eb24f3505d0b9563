package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/lbp/internal/types"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Admin is the identity the master account is created with on first start.
	Admin types.Identity
	// FeeCollector is the identity allowed to collect protocol fees. Defaults to Admin.
	FeeCollector types.Identity

	// SwapFeeBps is the initial proportional swap fee in basis points.
	SwapFeeBps uint16
	// FlatFee is the initial flat fee, in base units of the asset paid in.
	FlatFee math.Int

	// Engine holds the policy flags of the pool controller.
	Engine EngineParameters

	// CheckpointInterval is how often the daemon persists committed state.
	CheckpointInterval time.Duration

	// DevFaucet enables the custody deposit endpoint of the HTTP API.
	DevFaucet bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// LBP_ADMIN is required; everything else falls back to a default.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	admin, err := getEnv("LBP_ADMIN")
	if err != nil {
		return err
	}
	admin = strings.TrimSpace(admin)
	if admin == "" {
		return errors.New("environment variable LBP_ADMIN must not be empty")
	}
	Admin = types.Identity(admin)
	FeeCollector = types.Identity(getEnvOrDefault("LBP_FEE_COLLECTOR", admin))

	bps, err := getEnvAsUint64OrDefault("LBP_SWAP_FEE_BPS", 0)
	if err != nil {
		return err
	}
	if bps >= types.BpsDenominator {
		return fmt.Errorf("environment variable LBP_SWAP_FEE_BPS must be below %d, got: %d", types.BpsDenominator, bps)
	}
	SwapFeeBps = uint16(bps)

	FlatFee, err = getEnvAsIntOrDefault("LBP_FLAT_FEE", math.ZeroInt())
	if err != nil {
		return err
	}

	if Engine, err = loadEngineParameters(); err != nil {
		return err
	}

	CheckpointInterval, err = getEnvAsDurationOrDefault("LBP_CHECKPOINT_INTERVAL", DefaultCheckpointInterval)
	if err != nil {
		return err
	}

	DevFaucet, err = getEnvAsBoolOrDefault("LBP_DEV_FAUCET", false)
	if err != nil {
		return err
	}

	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	if err := LoadEndpointConfig(); err != nil {
		return err
	}
	if err := LoadAssetRegistry(); err != nil {
		return err
	}

	log.Debug().
		Str("Admin", string(Admin)).
		Str("FeeCollector", string(FeeCollector)).
		Uint16("SwapFeeBps", SwapFeeBps).
		Str("FlatFee", FlatFee.String()).
		Str("TradingWindow", string(Engine.TradingWindow)).
		Str("JoinMode", string(Engine.JoinMode)).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, or fallback when unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

func getEnvAsUint64OrDefault(key string, fallback uint64) (uint64, error) {
	if getEnvOrDefault(key, "") == "" {
		return fallback, nil
	}
	return getEnvAsUint64(key)
}

// getEnvAsIntOrDefault retrieves a non-negative integer amount of arbitrary size.
func getEnvAsIntOrDefault(key string, fallback math.Int) (math.Int, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, ok := math.NewIntFromString(valueStr)
	if !ok || value.IsNegative() {
		return math.ZeroInt(), errors.New("environment variable " + key + " must be a non-negative integer, got: " + valueStr)
	}
	return value, nil
}

func getEnvAsBoolOrDefault(key string, fallback bool) (bool, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, errors.New("environment variable " + key + " must be a valid bool, got: " + valueStr)
	}
	return value, nil
}

func getEnvAsDurationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return 0, errors.New("environment variable " + key + " must be a positive duration, got: " + valueStr)
	}
	return value, nil
}
