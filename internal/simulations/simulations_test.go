package simulations

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fp "github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/ledger"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/weighted"
)

var fees = weighted.Fees{SwapFeeBps: 30, FlatFee: math.ZeroInt()}

// seededPool returns a 100 sol / 900 tkn pool at 10/90 weights, so the spot price is 1 sol per tkn.
func seededPool(t *testing.T) (*types.PoolAccount, [2]math.Int) {
	t.Helper()
	w, err := weighted.NormalizeWeights([2]uint64{10, 90}, 100)
	require.NoError(t, err)
	pool := &types.PoolAccount{
		Creator:     "creator",
		InputAsset:  "sol",
		OutputAsset: "tkn",
		Decimals:    [2]uint8{9, 6},
	}
	_, err = ledger.New(pool).Seed("creator", [2]math.Int{math.NewInt(100_000_000_000), math.NewInt(900_000_000)}, w, 100)
	require.NoError(t, err)
	return pool, w
}

func TestSpotPrice(t *testing.T) {
	pool, w := seededPool(t)

	buy, err := SpotPrice(pool, w, types.SwapBuy)
	require.NoError(t, err)
	assert.Equal(t, fp.One.String(), buy.String())

	sell, err := SpotPrice(pool, w, types.SwapSell)
	require.NoError(t, err)
	assert.Equal(t, fp.One.String(), sell.String())
}

func TestSimulateSwapLeavesPoolUntouched(t *testing.T) {
	pool, w := seededPool(t)
	balances := pool.Balances

	res, err := SimulateSwap(pool, w, fees, types.SwapBuy, math.NewInt(1_000_000_000), false)
	require.NoError(t, err)

	assert.Equal(t, balances, pool.Balances)
	assert.Equal(t, types.AssetID("sol"), res.TokenIn)
	assert.Equal(t, types.AssetID("tkn"), res.TokenOut)
	assert.Equal(t, int64(1_000_000_000), res.AmountIn.Int64())
	assert.Equal(t, int64(3_000_000), res.Fee.Int64())
	assert.True(t, res.AmountOut.IsPositive())
	// just under one tkn for one sol
	assert.True(t, res.AmountOut.LT(math.NewInt(1_000_000)), "amount out %s", res.AmountOut)

	assert.Equal(t, "1.000000000000000000", res.SpotPriceBefore.String())
	assert.True(t, res.SpotPriceAfter.GT(res.SpotPriceBefore))
	assert.True(t, res.EffectivePrice.GT(res.SpotPriceBefore))
	assert.Greater(t, res.Slippage, 0.0)
	assert.Less(t, res.Slippage, 1.0)
}

func TestSimulateSwapExactOutput(t *testing.T) {
	pool, w := seededPool(t)

	res, err := SimulateSwap(pool, w, fees, types.SwapSell, math.NewInt(1_000_000_000), true)
	require.NoError(t, err)
	assert.Equal(t, types.SwapSell, res.Side)
	assert.Equal(t, types.AssetID("tkn"), res.TokenIn)
	assert.Equal(t, int64(1_000_000_000), res.AmountOut.Int64())
	assert.True(t, res.AmountIn.GT(res.Fee))

	_, err = SimulateSwap(pool, w, fees, types.SwapSell, pool.Balances[types.InputIndex], true)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)
}

func TestSimulateJoin(t *testing.T) {
	pool, w := seededPool(t)
	total := pool.TotalShares

	res, err := SimulateJoin(pool, w, fees, types.JoinProportional, types.InputIndex, math.NewInt(10_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, total.QuoRaw(10).String(), res.ShareAmountOut.String())
	assert.Equal(t, int64(10_000_000_000), res.AmountsIn["sol"].Int64())
	assert.Equal(t, int64(90_000_000), res.AmountsIn["tkn"].Int64())
	assert.InDelta(t, 100.0/11.0, res.ShareOfPool, 1e-6)
	assert.Equal(t, total.String(), pool.TotalShares.String())

	single, err := SimulateJoin(pool, w, fees, types.JoinSingleSided, types.InputIndex, math.NewInt(10_000_000_000))
	require.NoError(t, err)
	assert.NotContains(t, single.AmountsIn, types.AssetID("tkn"))
	assert.True(t, single.ShareAmountOut.LT(res.ShareAmountOut))

	_, err = SimulateJoin(pool, w, fees, types.JoinSingleSided, types.InputIndex, math.ZeroInt())
	assert.ErrorIs(t, err, types.ErrZeroAmount)
}

func TestSimulateExit(t *testing.T) {
	pool, _ := seededPool(t)

	res, err := SimulateExit(pool, pool.TotalShares)
	require.NoError(t, err)
	assert.Equal(t, pool.Balances[0].String(), res.AmountsOut["sol"].String())
	assert.Equal(t, pool.Balances[1].String(), res.AmountsOut["tkn"].String())

	_, err = SimulateExit(pool, pool.TotalShares.AddRaw(1))
	assert.ErrorIs(t, err, types.ErrInsufficientShares)
}
