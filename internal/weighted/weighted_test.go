package weighted

import (
	stdmath "math"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fp "github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/types"
)

func tokens(n int64) math.Int { return math.NewIntWithDecimal(n, fp.Decimals) }

func mustWeights(t *testing.T, w0, w1 uint64) [2]math.Int {
	t.Helper()
	w, err := NormalizeWeights([2]uint64{w0, w1}, w0+w1)
	require.NoError(t, err)
	return w
}

// within checks |got - want| <= want * 1e-9.
func within(t *testing.T, want, got math.Int) {
	t.Helper()
	tol := want.Abs().QuoRaw(1_000_000_000).AddRaw(1)
	assert.True(t, got.Sub(want).Abs().LTE(tol), "want %s, got %s", want, got)
}

func TestNormalizeWeights(t *testing.T) {
	w, err := NormalizeWeights([2]uint64{90, 10}, 100)
	require.NoError(t, err)
	assert.Equal(t, "900000000000000000", w[0].String())
	assert.Equal(t, "100000000000000000", w[1].String())

	w, err = NormalizeWeights([2]uint64{1, 2}, 3)
	require.NoError(t, err)
	assert.Equal(t, "333333333333333333", w[0].String())
	assert.Equal(t, "666666666666666667", w[1].String())
	assert.Equal(t, fp.One.String(), w[0].Add(w[1]).String())

	_, err = NormalizeWeights([2]uint64{90, 10}, 0)
	assert.ErrorIs(t, err, types.ErrDivisionByZero)

	_, err = NormalizeWeights([2]uint64{90, 20}, 100)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = NormalizeWeights([2]uint64{stdmath.MaxUint64 - 49, 150}, 100)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = NormalizeWeights([2]uint64{100, 0}, 100)
	assert.ErrorIs(t, err, types.ErrInvalidParams)
}

func TestCalculateInvariant(t *testing.T) {
	half := mustWeights(t, 50, 50)

	v, err := CalculateInvariant([2]math.Int{tokens(1), tokens(1)}, half)
	require.NoError(t, err)
	assert.True(t, v.LTE(fp.One), "invariant rounds down, got %s", v)
	within(t, fp.One, v)

	// sqrt(400 * 100) = 200
	v, err = CalculateInvariant([2]math.Int{tokens(400), tokens(100)}, half)
	require.NoError(t, err)
	within(t, tokens(200), v)

	_, err = CalculateInvariant([2]math.Int{tokens(1), math.ZeroInt()}, half)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	_, err = CalculateInvariant([2]math.Int{tokens(1), tokens(-1)}, half)
	assert.ErrorIs(t, err, types.ErrInvalidParams)
}

func TestSwapsNeverDecreaseInvariant(t *testing.T) {
	balances := [2]math.Int{tokens(1_000), tokens(1_000)}
	amounts := []math.Int{math.NewInt(1_000_000_000), tokens(1), tokens(10), tokens(100), tokens(250)}
	weightSets := [][2]uint64{{90, 10}, {50, 50}, {10, 90}, {99, 1}}

	for _, ws := range weightSets {
		w := mustWeights(t, ws[0], ws[1])
		for _, amount := range amounts {
			out, err := CalcOutGivenIn(balances[0], w[0], balances[1], w[1], amount)
			require.NoError(t, err)
			require.True(t, out.LT(balances[1]))

			after := [2]math.Int{balances[0].Add(amount), balances[1].Sub(out)}
			assert.NoError(t, CheckInvariant(balances, after, w), "exact in: weights %v amount %s", ws, amount)

			in, err := CalcInGivenOut(balances[0], w[0], balances[1], w[1], amount)
			require.NoError(t, err)
			after = [2]math.Int{balances[0].Add(in), balances[1].Sub(amount)}
			assert.NoError(t, CheckInvariant(balances, after, w), "exact out: weights %v amount %s", ws, amount)
		}
	}
}

func TestCheckInvariantDetectsLoss(t *testing.T) {
	w := mustWeights(t, 50, 50)
	before := [2]math.Int{tokens(1_000), tokens(1_000)}

	err := CheckInvariant(before, [2]math.Int{tokens(1_000), tokens(999)}, w)
	assert.ErrorIs(t, err, types.ErrInvariantViolation)

	err = CheckInvariant(before, [2]math.Int{tokens(1_000), math.ZeroInt()}, w)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	assert.NoError(t, CheckInvariant(before, before, w))
}

func TestCalcOutGivenIn(t *testing.T) {
	w := mustWeights(t, 50, 50)

	// x*y = k: 1000 in against 1000/1000 takes out 500
	out, err := CalcOutGivenIn(tokens(1_000), w[0], tokens(1_000), w[1], tokens(1_000))
	require.NoError(t, err)
	assert.Equal(t, tokens(500).String(), out.String())

	// 80/20: 100 in against 1000/1000 takes out 1000 * (1 - (10/11)^4)
	lbp := mustWeights(t, 80, 20)
	out, err = CalcOutGivenIn(tokens(1_000), lbp[0], tokens(1_000), lbp[1], tokens(100))
	require.NoError(t, err)
	within(t, math.NewInt(316_986_544_634).Mul(math.NewInt(1_000_000_000)), out)

	_, err = CalcOutGivenIn(tokens(1_000), w[0], tokens(1_000), w[1], math.ZeroInt())
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	_, err = CalcOutGivenIn(math.ZeroInt(), w[0], tokens(1_000), w[1], tokens(1))
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)
}

func TestCalcInGivenOut(t *testing.T) {
	w := mustWeights(t, 50, 50)

	in, err := CalcInGivenOut(tokens(1_000), w[0], tokens(1_000), w[1], tokens(500))
	require.NoError(t, err)
	assert.Equal(t, tokens(1_000).String(), in.String())

	// 20/80: taking 100 out of 1000 costs 1000 * ((10/9)^4 - 1)
	lbp := mustWeights(t, 20, 80)
	in, err = CalcInGivenOut(tokens(1_000), lbp[0], tokens(1_000), lbp[1], tokens(100))
	require.NoError(t, err)
	within(t, math.NewInt(524_157_902_758).Mul(math.NewInt(1_000_000_000)), in)

	_, err = CalcInGivenOut(tokens(1_000), w[0], tokens(1_000), w[1], tokens(1_000))
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	_, err = CalcInGivenOut(tokens(1_000), w[0], tokens(1_000), w[1], math.ZeroInt())
	assert.ErrorIs(t, err, types.ErrZeroAmount)
}

func TestSpotPrice(t *testing.T) {
	half := mustWeights(t, 50, 50)

	p, err := SpotPrice(tokens(100), half[0], tokens(1), half[1])
	require.NoError(t, err)
	assert.Equal(t, tokens(100).String(), p.String())

	// balances in proportion to the weights price at one: (9/0.9) / (1/0.1)
	lbp := mustWeights(t, 90, 10)
	p, err = SpotPrice(tokens(9), lbp[0], tokens(1), lbp[1])
	require.NoError(t, err)
	within(t, fp.One, p)

	_, err = SpotPrice(tokens(1), half[0], math.ZeroInt(), half[1])
	assert.ErrorIs(t, err, types.ErrDivisionByZero)
}

func TestFees(t *testing.T) {
	f := Fees{SwapFeeBps: 30, FlatFee: math.NewInt(5)}
	require.NoError(t, f.Validate())
	assert.Equal(t, "3000000000000000", f.ProportionalRate().String())

	net, fee, err := f.SubtractFees(math.NewInt(10_005))
	require.NoError(t, err)
	assert.Equal(t, int64(9_970), net.Int64())
	assert.Equal(t, int64(35), fee.Int64())

	gross, fee, err := f.AddFees(math.NewInt(9_970))
	require.NoError(t, err)
	assert.Equal(t, int64(10_005), gross.Int64())
	assert.Equal(t, int64(35), fee.Int64())

	_, _, err = f.SubtractFees(math.NewInt(5))
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	_, _, err = f.SubtractFees(math.ZeroInt())
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	_, _, err = f.AddFees(math.ZeroInt())
	assert.ErrorIs(t, err, types.ErrZeroAmount)
}

func TestAddFeesCoversNet(t *testing.T) {
	for _, bps := range []uint16{0, 1, 30, 250, 9_999} {
		f := Fees{SwapFeeBps: bps, FlatFee: math.NewInt(7)}
		for _, n := range []int64{1, 3, 999, 123_457, 10_000_000_019} {
			gross, _, err := f.AddFees(math.NewInt(n))
			require.NoError(t, err)
			net, fee, err := f.SubtractFees(gross)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, net.Int64(), n, "bps %d net %d", bps, n)
			assert.Equal(t, gross.String(), net.Add(fee).String())
		}
	}
}

func TestFeesValidate(t *testing.T) {
	assert.ErrorIs(t, Fees{SwapFeeBps: types.BpsDenominator, FlatFee: math.ZeroInt()}.Validate(), types.ErrInvalidParams)
	assert.ErrorIs(t, Fees{SwapFeeBps: 1, FlatFee: math.NewInt(-1)}.Validate(), types.ErrInvalidParams)
	assert.ErrorIs(t, Fees{SwapFeeBps: 1}.Validate(), types.ErrInvalidParams)

	m := types.NewMasterAccount("admin")
	m.FlatFee = math.Int{}
	f := FeesFromMaster(m)
	assert.True(t, f.FlatFee.IsZero())
	assert.NoError(t, f.Validate())
}

func TestCalcProportionalJoin(t *testing.T) {
	balances := [2]math.Int{math.NewInt(1_000), math.NewInt(500)}

	shares, amounts, err := CalcProportionalJoin(balances, types.InputIndex, math.NewInt(100), math.NewInt(300))
	require.NoError(t, err)
	assert.Equal(t, int64(30), shares.Int64())
	assert.Equal(t, int64(100), amounts[0].Int64())
	assert.Equal(t, int64(50), amounts[1].Int64())

	// other leg rounds up
	shares, amounts, err = CalcProportionalJoin(balances, types.OutputIndex, math.NewInt(7), math.NewInt(300))
	require.NoError(t, err)
	assert.Equal(t, int64(4), shares.Int64())
	assert.Equal(t, int64(14), amounts[0].Int64())
	assert.Equal(t, int64(7), amounts[1].Int64())

	_, _, err = CalcProportionalJoin(balances, types.InputIndex, math.NewInt(1), math.NewInt(300))
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	_, _, err = CalcProportionalJoin(balances, 2, math.NewInt(100), math.NewInt(300))
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, _, err = CalcProportionalJoin(balances, types.InputIndex, math.NewInt(100), math.ZeroInt())
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)
}

func TestCalcSharesOutGivenExactTokenIn(t *testing.T) {
	balances := [2]math.Int{tokens(1_000), tokens(1_000)}
	w := mustWeights(t, 50, 50)

	// 1000 * (sqrt(1.1) - 1)
	free, err := CalcSharesOutGivenExactTokenIn(balances, w, types.InputIndex, tokens(100), tokens(1_000), fp.Zero)
	require.NoError(t, err)
	within(t, math.NewInt(48_808_848_170).Mul(math.NewInt(1_000_000_000)), free)

	taxed, err := CalcSharesOutGivenExactTokenIn(balances, w, types.InputIndex, tokens(100), tokens(1_000), math.NewIntWithDecimal(3, 15))
	require.NoError(t, err)
	assert.True(t, taxed.LT(free))

	// one-sided deposits mint fewer shares than the same amount joined proportionally
	proportional, _, err := CalcProportionalJoin(balances, types.InputIndex, tokens(100), tokens(1_000))
	require.NoError(t, err)
	assert.True(t, free.LT(proportional))

	_, err = CalcSharesOutGivenExactTokenIn(balances, w, types.InputIndex, math.ZeroInt(), tokens(1_000), fp.Zero)
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	_, err = CalcSharesOutGivenExactTokenIn([2]math.Int{math.ZeroInt(), tokens(1)}, w, types.InputIndex, tokens(1), tokens(1_000), fp.Zero)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)
}

func TestCalcTokensOutGivenExactSharesIn(t *testing.T) {
	balances := [2]math.Int{math.NewInt(1_000), math.NewInt(333)}

	out, err := CalcTokensOutGivenExactSharesIn(balances, math.NewInt(1), math.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, int64(333), out[0].Int64())
	assert.Equal(t, int64(111), out[1].Int64())

	out, err = CalcTokensOutGivenExactSharesIn(balances, math.NewInt(3), math.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, balances[0].String(), out[0].String())
	assert.Equal(t, balances[1].String(), out[1].String())

	_, err = CalcTokensOutGivenExactSharesIn(balances, math.NewInt(4), math.NewInt(3))
	assert.ErrorIs(t, err, types.ErrInsufficientShares)

	_, err = CalcTokensOutGivenExactSharesIn(balances, math.ZeroInt(), math.NewInt(3))
	assert.ErrorIs(t, err, types.ErrZeroAmount)
}
