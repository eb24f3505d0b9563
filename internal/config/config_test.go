package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/lbp/internal/types"
)

// clearEnv blanks every variable LoadConfig reads so the host environment does not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LBP_ADMIN", "LBP_FEE_COLLECTOR", "LBP_SWAP_FEE_BPS", "LBP_FLAT_FEE",
		"LBP_TRADING_WINDOW", "LBP_JOIN_MODE", "LBP_WEIGHT_NORMALIZATION",
		"LBP_CHECKPOINT_INTERVAL", "LBP_DEV_FAUCET", "LBP_ASSETS", "LOG_LEVEL",
		"WEB_PORT", "GRPC_HEALTH_PORT", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LBP_ADMIN", "admin")

	require.NoError(t, LoadConfig())
	assert.Equal(t, types.Identity("admin"), Admin)
	assert.Equal(t, types.Identity("admin"), FeeCollector)
	assert.Equal(t, uint16(0), SwapFeeBps)
	assert.True(t, FlatFee.IsZero())
	assert.Equal(t, DefaultEngineParameters, Engine)
	assert.Equal(t, DefaultCheckpointInterval, CheckpointInterval)
	assert.False(t, DevFaucet)
	assert.Equal(t, "info", LogLevel)
	assert.Equal(t, "8080", WebPort)
	assert.Equal(t, "9090", GRPCHealthPort)
	assert.Equal(t, 5432, DBPort)
	assert.Equal(t, "lbp", DBName)
	assert.Empty(t, AssetDecimals)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LBP_ADMIN", "admin")
	t.Setenv("LBP_FEE_COLLECTOR", "treasury")
	t.Setenv("LBP_SWAP_FEE_BPS", "25")
	t.Setenv("LBP_FLAT_FEE", "1000")
	t.Setenv("LBP_TRADING_WINDOW", "unrestricted")
	t.Setenv("LBP_JOIN_MODE", "proportional")
	t.Setenv("LBP_WEIGHT_NORMALIZATION", "10000")
	t.Setenv("LBP_CHECKPOINT_INTERVAL", "15s")
	t.Setenv("LBP_DEV_FAUCET", "true")
	t.Setenv("LBP_ASSETS", "sol:9, usdc:6")
	t.Setenv("DB_PORT", "6543")

	require.NoError(t, LoadConfig())
	assert.Equal(t, types.Identity("treasury"), FeeCollector)
	assert.Equal(t, uint16(25), SwapFeeBps)
	assert.Equal(t, int64(1000), FlatFee.Int64())
	assert.Equal(t, EngineParameters{
		TradingWindow:       types.TradingWindowUnrestricted,
		JoinMode:            types.JoinProportional,
		WeightNormalization: 10_000,
	}, Engine)
	assert.Equal(t, 15*time.Second, CheckpointInterval)
	assert.True(t, DevFaucet)
	assert.Equal(t, 6543, DBPort)

	usdc, ok := LookupAsset("usdc")
	require.True(t, ok)
	assert.Equal(t, types.Asset{ID: "usdc", Decimals: 6}, usdc)
	_, ok = LookupAsset("doge")
	assert.False(t, ok)
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string][2]string{
		"swap fee at 100%":     {"LBP_SWAP_FEE_BPS", "10000"},
		"swap fee not numeric": {"LBP_SWAP_FEE_BPS", "ten"},
		"negative flat fee":    {"LBP_FLAT_FEE", "-1"},
		"unknown window":       {"LBP_TRADING_WINDOW", "sometimes"},
		"unknown join mode":    {"LBP_JOIN_MODE", "lopsided"},
		"normalization of one": {"LBP_WEIGHT_NORMALIZATION", "1"},
		"zero interval":        {"LBP_CHECKPOINT_INTERVAL", "0s"},
		"bad bool":             {"LBP_DEV_FAUCET", "maybe"},
		"bad asset list":       {"LBP_ASSETS", "sol"},
		"bad db port":          {"DB_PORT", "postgres"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LBP_ADMIN", "admin")
			t.Setenv(kv[0], kv[1])
			assert.Error(t, LoadConfig())
		})
	}

	clearEnv(t)
	assert.Error(t, LoadConfig(), "LBP_ADMIN must be set")
}

func TestParseAssetList(t *testing.T) {
	registry, err := ParseAssetList(" sol:9 ,usdc:6,,btc:8")
	require.NoError(t, err)
	assert.Equal(t, map[types.AssetID]uint8{"sol": 9, "usdc": 6, "btc": 8}, registry)

	registry, err = ParseAssetList("")
	require.NoError(t, err)
	assert.Empty(t, registry)

	for _, bad := range []string{"sol", ":9", "sol:", "sol:19", "sol:-1", "sol:nine"} {
		_, err := ParseAssetList(bad)
		assert.Error(t, err, bad)
	}
}

func TestEngineParametersValidate(t *testing.T) {
	require.NoError(t, DefaultEngineParameters.Validate())

	p := DefaultEngineParameters
	p.TradingWindow = ""
	assert.ErrorIs(t, p.Validate(), types.ErrInvalidParams)

	p = DefaultEngineParameters
	p.JoinMode = "both"
	assert.ErrorIs(t, p.Validate(), types.ErrInvalidParams)

	p = DefaultEngineParameters
	p.WeightNormalization = 1
	assert.ErrorIs(t, p.Validate(), types.ErrInvalidParams)
}
