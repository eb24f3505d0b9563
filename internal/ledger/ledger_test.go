package ledger

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/weighted"
)

const (
	creator = types.Identity("creator")
	trader  = types.Identity("trader")
)

var (
	// 100 tokens of 9 decimals
	hundred  = math.NewInt(100_000_000_000)
	noFees   = weighted.Fees{SwapFeeBps: 0, FlatFee: math.ZeroInt()}
	someFees = weighted.Fees{SwapFeeBps: 30, FlatFee: math.ZeroInt()}
)

func halfWeights(t *testing.T) [2]math.Int {
	t.Helper()
	w, err := weighted.NormalizeWeights([2]uint64{50, 50}, 100)
	require.NoError(t, err)
	return w
}

func seeded(t *testing.T) *Ledger {
	t.Helper()
	l := New(&types.PoolAccount{
		Creator:     creator,
		InputAsset:  "sol",
		OutputAsset: "tkn",
		Decimals:    [2]uint8{9, 9},
	})
	_, err := l.Seed(creator, [2]math.Int{hundred, hundred}, halfWeights(t), 100)
	require.NoError(t, err)
	return l
}

func TestNewFillsZeroValues(t *testing.T) {
	pool := &types.PoolAccount{}
	l := New(pool)
	assert.Same(t, pool, l.Pool())
	assert.NotNil(t, pool.Shares)
	assert.True(t, pool.TotalShares.IsZero())
	assert.True(t, pool.Invariant.IsZero())
	assert.True(t, pool.Balances[0].IsZero())
	assert.True(t, pool.Balances[1].IsZero())
}

func TestSeed(t *testing.T) {
	l := seeded(t)
	pool := l.Pool()

	assert.True(t, pool.Seeded)
	assert.Equal(t, hundred.String(), pool.Balances[0].String())
	assert.Equal(t, pool.TotalShares.String(), l.ShareBalance(creator).String())
	assert.Equal(t, pool.Invariant.MulRaw(100).String(), pool.TotalShares.String())

	// V of 100/100 at 50/50 is just under 100 tokens
	upper := math.NewIntWithDecimal(100, 18)
	lower := upper.Sub(math.NewIntWithDecimal(1, 9))
	assert.True(t, pool.Invariant.LTE(upper) && pool.Invariant.GT(lower), "invariant %s", pool.Invariant)

	_, err := l.Seed(creator, [2]math.Int{hundred, hundred}, halfWeights(t), 100)
	assert.ErrorIs(t, err, types.ErrAlreadySeeded)
}

func TestSeedRejectsZeroBalance(t *testing.T) {
	l := New(&types.PoolAccount{Decimals: [2]uint8{9, 6}})
	_, err := l.Seed(creator, [2]math.Int{hundred, math.ZeroInt()}, halfWeights(t), 100)
	assert.ErrorIs(t, err, types.ErrZeroAmount)
	assert.False(t, l.Pool().Seeded)
}

func TestSwapExactInput(t *testing.T) {
	l := seeded(t)
	before := l.Pool().Invariant

	res, err := l.Swap(types.SwapBuy, math.NewInt(1_000_000_000), false, halfWeights(t), someFees)
	require.NoError(t, err)

	assert.Equal(t, types.InputIndex, res.InIndex)
	assert.Equal(t, types.OutputIndex, res.OutIndex)
	assert.Equal(t, int64(1_000_000_000), res.GrossIn.Int64())
	assert.Equal(t, int64(3_000_000), res.Fee.Int64())
	assert.Equal(t, int64(997_000_000), res.NetIn.Int64())
	// 100 * 0.997 / 100.997 tokens
	assert.Equal(t, int64(987_158_034), res.AmountOut.Int64())

	pool := l.Pool()
	assert.Equal(t, hundred.Add(res.NetIn).String(), pool.Balances[types.InputIndex].String())
	assert.Equal(t, hundred.Sub(res.AmountOut).String(), pool.Balances[types.OutputIndex].String())
	assert.True(t, pool.Invariant.GTE(before), "invariant %s -> %s", before, pool.Invariant)
}

func TestSwapExactOutput(t *testing.T) {
	l := seeded(t)

	res, err := l.Swap(types.SwapSell, math.NewInt(1_000_000_000), true, halfWeights(t), someFees)
	require.NoError(t, err)

	assert.Equal(t, types.OutputIndex, res.InIndex)
	assert.Equal(t, types.InputIndex, res.OutIndex)
	assert.Equal(t, int64(1_000_000_000), res.AmountOut.Int64())
	assert.True(t, res.NetIn.GT(res.AmountOut), "net in %s", res.NetIn)
	assert.True(t, res.Fee.IsPositive())
	assert.Equal(t, res.GrossIn.String(), res.NetIn.Add(res.Fee).String())

	pool := l.Pool()
	assert.Equal(t, hundred.Sub(res.AmountOut).String(), pool.Balances[types.InputIndex].String())
	assert.Equal(t, hundred.Add(res.NetIn).String(), pool.Balances[types.OutputIndex].String())
}

func TestSwapFailuresLeavePoolUntouched(t *testing.T) {
	l := seeded(t)
	balances := l.Pool().Balances

	_, err := l.Swap(types.SwapBuy, hundred, true, halfWeights(t), noFees)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	_, err = l.Swap(types.SwapBuy, math.OneInt(), false, halfWeights(t), noFees)
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	_, err = l.Swap(types.SwapBuy, math.ZeroInt(), false, halfWeights(t), noFees)
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	_, err = l.Swap(types.SwapBuy, math.NewInt(1_000), false, halfWeights(t), weighted.Fees{SwapFeeBps: types.BpsDenominator, FlatFee: math.ZeroInt()})
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	assert.Equal(t, balances, l.Pool().Balances)
}

func TestJoinProportional(t *testing.T) {
	l := seeded(t)
	total := l.Pool().TotalShares

	res, err := l.Join(trader, types.InputIndex, math.NewInt(10_000_000_000), halfWeights(t), noFees, types.JoinProportional)
	require.NoError(t, err)

	assert.Equal(t, total.QuoRaw(10).String(), res.Shares.String())
	assert.Equal(t, int64(10_000_000_000), res.AmountsIn[0].Int64())
	assert.Equal(t, int64(10_000_000_000), res.AmountsIn[1].Int64())

	pool := l.Pool()
	assert.Equal(t, total.Add(res.Shares).String(), pool.TotalShares.String())
	assert.Equal(t, res.Shares.String(), l.ShareBalance(trader).String())
	assert.Equal(t, int64(110_000_000_000), pool.Balances[1].Int64())
}

func TestJoinSingleSided(t *testing.T) {
	single := seeded(t)
	res, err := single.Join(trader, types.OutputIndex, math.NewInt(10_000_000_000), halfWeights(t), someFees, types.JoinSingleSided)
	require.NoError(t, err)
	assert.True(t, res.Shares.IsPositive())
	assert.True(t, res.AmountsIn[types.InputIndex].IsZero())
	assert.Equal(t, int64(110_000_000_000), single.Pool().Balances[types.OutputIndex].Int64())
	assert.Equal(t, hundred.String(), single.Pool().Balances[types.InputIndex].String())

	proportional := seeded(t)
	prop, err := proportional.Join(trader, types.OutputIndex, math.NewInt(10_000_000_000), halfWeights(t), someFees, types.JoinProportional)
	require.NoError(t, err)
	assert.True(t, res.Shares.LT(prop.Shares))
}

func TestJoinRejections(t *testing.T) {
	l := seeded(t)
	w := halfWeights(t)

	_, err := l.Join(trader, types.InputIndex, math.ZeroInt(), w, noFees, types.JoinSingleSided)
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	_, err = l.Join(trader, 5, hundred, w, noFees, types.JoinSingleSided)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = l.Join(trader, types.InputIndex, hundred, w, noFees, types.JoinMode("lopsided"))
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	empty := New(&types.PoolAccount{Decimals: [2]uint8{9, 9}})
	_, err = empty.Join(trader, types.InputIndex, hundred, w, noFees, types.JoinSingleSided)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)
}

func TestRedeemDrainsPool(t *testing.T) {
	l := seeded(t)
	pool := l.Pool()
	total := pool.TotalShares

	half := total.QuoRaw(2)
	out, err := l.Redeem(creator, half)
	require.NoError(t, err)
	assert.True(t, out[0].IsPositive() && out[0].LTE(hundred.QuoRaw(2)))
	assert.Equal(t, total.Sub(half).String(), pool.TotalShares.String())

	rest := l.ShareBalance(creator)
	out2, err := l.Redeem(creator, rest)
	require.NoError(t, err)
	assert.Equal(t, hundred.String(), out[0].Add(out2[0]).String())
	assert.Equal(t, hundred.String(), out[1].Add(out2[1]).String())

	assert.True(t, pool.IsDrained())
	assert.NotContains(t, pool.Shares, creator)
}

func TestRedeemRejections(t *testing.T) {
	l := seeded(t)

	_, err := l.Redeem(trader, math.OneInt())
	assert.ErrorIs(t, err, types.ErrInsufficientShares)

	_, err = l.Redeem(creator, math.ZeroInt())
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	_, err = l.Redeem(creator, l.Pool().TotalShares.AddRaw(1))
	assert.ErrorIs(t, err, types.ErrInsufficientShares)
}

func TestRefreshInvariant(t *testing.T) {
	l := seeded(t)
	seededV := l.Pool().Invariant

	lbp, err := weighted.NormalizeWeights([2]uint64{90, 10}, 100)
	require.NoError(t, err)
	require.NoError(t, l.RefreshInvariant(lbp))
	// equal balances: V = 100 tokens at any weights, within rounding
	diff := l.Pool().Invariant.Sub(seededV).Abs()
	assert.True(t, diff.LT(math.NewIntWithDecimal(1, 9)), "diff %s", diff)
}
