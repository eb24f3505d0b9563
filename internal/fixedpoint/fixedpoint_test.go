package fixedpoint

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/lbp/internal/types"
)

func fp(s string) math.Int {
	v, ok := math.NewIntFromString(s)
	if !ok {
		panic("bad fixture " + s)
	}
	return v
}

// assertClose checks |got - want| <= want / 1e12.
func assertClose(t *testing.T, want, got math.Int) {
	t.Helper()
	tol := want.Abs().Quo(math.NewInt(1_000_000_000_000)).AddRaw(1)
	assert.True(t, got.Sub(want).Abs().LTE(tol), "want %s, got %s", want, got)
}

func TestMulRounding(t *testing.T) {
	wei := math.OneInt()

	down, err := MulDown(wei, wei)
	require.NoError(t, err)
	assert.True(t, down.IsZero())

	up, err := MulUp(wei, wei)
	require.NoError(t, err)
	assert.Equal(t, int64(1), up.Int64())

	zero, err := MulUp(Zero, One)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	half := fp("500000000000000000")
	v, err := MulDown(half, Four)
	require.NoError(t, err)
	assert.Equal(t, Two.String(), v.String())
}

func TestDivRounding(t *testing.T) {
	three := math.NewIntWithDecimal(3, Decimals)

	down, err := DivDown(One, three)
	require.NoError(t, err)
	assert.Equal(t, "333333333333333333", down.String())

	up, err := DivUp(One, three)
	require.NoError(t, err)
	assert.Equal(t, "333333333333333334", up.String())

	exact, err := DivUp(Two, Four)
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", exact.String())

	zero, err := DivUp(Zero, One)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestDivisionByZero(t *testing.T) {
	_, err := DivDown(One, Zero)
	assert.ErrorIs(t, err, types.ErrDivisionByZero)

	_, err = DivUp(One, Zero)
	assert.ErrorIs(t, err, types.ErrDivisionByZero)

	_, err = Quo(One, Zero)
	assert.ErrorIs(t, err, types.ErrDivisionByZero)

	_, err = MulDivUp(One, One, Zero)
	assert.ErrorIs(t, err, types.ErrDivisionByZero)

	_, err = MulDivDown(One, One, Zero)
	assert.ErrorIs(t, err, types.ErrDivisionByZero)
}

func TestOverflow(t *testing.T) {
	huge := maxPowBase

	_, err := Mul(huge, huge)
	assert.ErrorIs(t, err, types.ErrOverflow)

	_, err = MulDown(huge, Four)
	assert.ErrorIs(t, err, types.ErrOverflow)

	_, err = Pow(huge, Two)
	assert.ErrorIs(t, err, types.ErrOverflow)
}

func TestMulDiv(t *testing.T) {
	seven, two := math.NewInt(7), math.NewInt(2)

	down, err := MulDivDown(seven, math.OneInt(), two)
	require.NoError(t, err)
	assert.Equal(t, int64(3), down.Int64())

	up, err := MulDivUp(seven, math.OneInt(), two)
	require.NoError(t, err)
	assert.Equal(t, int64(4), up.Int64())

	exact, err := MulDivUp(math.NewInt(8), math.OneInt(), two)
	require.NoError(t, err)
	assert.Equal(t, int64(4), exact.Int64())
}

func TestComplement(t *testing.T) {
	assert.Equal(t, "700000000000000000", Complement(fp("300000000000000000")).String())
	assert.True(t, Complement(One).IsZero())
	assert.True(t, Complement(Two).IsZero())
	assert.Equal(t, One.String(), Complement(Zero).String())
}

func TestExp(t *testing.T) {
	v, err := Exp(One)
	require.NoError(t, err)
	assertClose(t, fp("2718281828459045235"), v)

	v, err = Exp(One.Neg())
	require.NoError(t, err)
	assertClose(t, fp("367879441171442321"), v)

	v, err = Exp(Zero)
	require.NoError(t, err)
	assertClose(t, One, v)

	// e^10
	v, err = Exp(math.NewIntWithDecimal(10, Decimals))
	require.NoError(t, err)
	assertClose(t, fp("22026465794806716516957"), v)

	_, err = Exp(MaxNaturalExponent.AddRaw(1))
	assert.ErrorIs(t, err, types.ErrOverflow)

	_, err = Exp(MinNaturalExponent.SubRaw(1))
	assert.ErrorIs(t, err, types.ErrOverflow)
}

func TestLn(t *testing.T) {
	v, err := Ln(fp("2718281828459045235"))
	require.NoError(t, err)
	assertClose(t, One, v)

	v, err = Ln(Two)
	require.NoError(t, err)
	assertClose(t, fp("693147180559945309"), v)

	// close to one: the 36-decimal path
	v, err = Ln(fp("1050000000000000000"))
	require.NoError(t, err)
	assertClose(t, fp("48790164169432003"), v)

	v, err = Ln(fp("500000000000000000"))
	require.NoError(t, err)
	assertClose(t, fp("-693147180559945309"), v)

	_, err = Ln(Zero)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = Ln(One.Neg())
	assert.ErrorIs(t, err, types.ErrInvalidParams)
}

func TestPow(t *testing.T) {
	half := fp("500000000000000000")

	v, err := Pow(Two, half)
	require.NoError(t, err)
	assertClose(t, fp("1414213562373095048"), v)

	v, err = Pow(math.NewIntWithDecimal(3, Decimals), One)
	require.NoError(t, err)
	assertClose(t, math.NewIntWithDecimal(3, Decimals), v)

	// 0.9^9
	v, err = Pow(fp("900000000000000000"), math.NewIntWithDecimal(9, Decimals))
	require.NoError(t, err)
	assertClose(t, fp("387420489000000000"), v)

	// 1.05^0.1 uses the 36-decimal logarithm
	v, err = Pow(fp("1050000000000000000"), fp("100000000000000000"))
	require.NoError(t, err)
	assertClose(t, fp("1004890938198511823"), v)

	v, err = Pow(Two, Zero)
	require.NoError(t, err)
	assert.Equal(t, One.String(), v.String())

	v, err = Pow(Zero, half)
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	_, err = Pow(One.Neg(), One)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = Pow(Two, One.Neg())
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	// 2^200 does not fit the exponent domain
	_, err = Pow(Two, math.NewIntWithDecimal(200, Decimals))
	assert.ErrorIs(t, err, types.ErrOverflow)
}

func TestPowDownUpBracket(t *testing.T) {
	cases := []struct{ x, y math.Int }{
		{Two, fp("500000000000000000")},
		{fp("900000000000000000"), fp("111111111111111111")},
		{math.NewIntWithDecimal(1000, Decimals), fp("250000000000000000")},
		{fp("1001000000000000000"), math.NewIntWithDecimal(3, Decimals)},
	}
	for _, tc := range cases {
		raw, err := Pow(tc.x, tc.y)
		require.NoError(t, err)
		down, err := PowDown(tc.x, tc.y)
		require.NoError(t, err)
		up, err := PowUp(tc.x, tc.y)
		require.NoError(t, err)

		assert.True(t, down.LT(raw), "x=%s y=%s", tc.x, tc.y)
		assert.True(t, up.GT(raw), "x=%s y=%s", tc.x, tc.y)
	}

	x := fp("1234567890123456789")
	square, err := MulDown(x, x)
	require.NoError(t, err)
	down, err := PowDown(x, Two)
	require.NoError(t, err)
	assert.Equal(t, square.String(), down.String())

	same, err := PowUp(x, One)
	require.NoError(t, err)
	assert.Equal(t, x.String(), same.String())
}

func TestToLegacyDec(t *testing.T) {
	assert.Equal(t, "0.500000000000000000", ToLegacyDec(fp("500000000000000000")).String())
	assert.Equal(t, "2.000000000000000000", ToLegacyDec(Two).String())
}
