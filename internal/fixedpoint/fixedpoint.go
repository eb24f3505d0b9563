// Package fixedpoint implements 18-decimal fixed-point arithmetic on 256-bit integers.
//
// All values are math.Int scaled by One (1e18). Every operation reports overflow and
// division by zero as named errors instead of panicking or truncating silently.
package fixedpoint

import (
	"errors"
	"fmt"

	"cosmossdk.io/math"

	"github.com/elys-network/lbp/internal/types"
)

const Decimals = 18

var (
	Zero = math.ZeroInt()
	One  = math.NewIntWithDecimal(1, Decimals)
	Two  = math.NewIntWithDecimal(2, Decimals)
	Four = math.NewIntWithDecimal(4, Decimals)

	// MaxPowRelativeError bounds the relative error of Pow: 10000 wei of 1e18 is 1e-14.
	MaxPowRelativeError = math.NewInt(10_000)
)

// wrapMathErr maps the math library's errors onto the engine's named failures.
func wrapMathErr(err error, op string, a, b math.Int) error {
	switch {
	case errors.Is(err, math.ErrIntOverflow):
		return fmt.Errorf("%w: %s(%s, %s)", types.ErrOverflow, op, a, b)
	case errors.Is(err, math.ErrDivideByZero):
		return fmt.Errorf("%w: %s(%s, %s)", types.ErrDivisionByZero, op, a, b)
	default:
		return fmt.Errorf("%s(%s, %s): %w", op, a, b, err)
	}
}

func Add(a, b math.Int) (math.Int, error) {
	r, err := a.SafeAdd(b)
	if err != nil {
		return Zero, wrapMathErr(err, "add", a, b)
	}
	return r, nil
}

func Sub(a, b math.Int) (math.Int, error) {
	r, err := a.SafeSub(b)
	if err != nil {
		return Zero, wrapMathErr(err, "sub", a, b)
	}
	return r, nil
}

func Mul(a, b math.Int) (math.Int, error) {
	r, err := a.SafeMul(b)
	if err != nil {
		return Zero, wrapMathErr(err, "mul", a, b)
	}
	return r, nil
}

// Quo divides truncating toward zero.
func Quo(a, b math.Int) (math.Int, error) {
	r, err := a.SafeQuo(b)
	if err != nil {
		return Zero, wrapMathErr(err, "quo", a, b)
	}
	return r, nil
}

// MulDown returns a*b/One rounded down.
func MulDown(a, b math.Int) (math.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return Zero, err
	}
	return Quo(product, One)
}

// MulUp returns a*b/One rounded up.
func MulUp(a, b math.Int) (math.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return Zero, err
	}
	if product.IsZero() {
		return Zero, nil
	}
	// (product - 1) / One + 1
	q, err := Quo(product.SubRaw(1), One)
	if err != nil {
		return Zero, err
	}
	return q.AddRaw(1), nil
}

// DivDown returns a*One/b rounded down.
func DivDown(a, b math.Int) (math.Int, error) {
	if b.IsZero() {
		return Zero, fmt.Errorf("%w: divDown(%s, 0)", types.ErrDivisionByZero, a)
	}
	if a.IsZero() {
		return Zero, nil
	}
	inflated, err := Mul(a, One)
	if err != nil {
		return Zero, err
	}
	return Quo(inflated, b)
}

// DivUp returns a*One/b rounded up.
func DivUp(a, b math.Int) (math.Int, error) {
	if b.IsZero() {
		return Zero, fmt.Errorf("%w: divUp(%s, 0)", types.ErrDivisionByZero, a)
	}
	if a.IsZero() {
		return Zero, nil
	}
	inflated, err := Mul(a, One)
	if err != nil {
		return Zero, err
	}
	q, err := Quo(inflated.SubRaw(1), b)
	if err != nil {
		return Zero, err
	}
	return q.AddRaw(1), nil
}

// MulDivDown returns floor(a*b/c) on plain integers.
func MulDivDown(a, b, c math.Int) (math.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return Zero, err
	}
	return Quo(product, c)
}

// MulDivUp returns ceil(a*b/c) on non-negative plain integers.
func MulDivUp(a, b, c math.Int) (math.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return Zero, err
	}
	if c.IsZero() {
		return Zero, fmt.Errorf("%w: mulDivUp(%s, %s, 0)", types.ErrDivisionByZero, a, b)
	}
	if product.IsZero() {
		return Zero, nil
	}
	q, err := Quo(product.SubRaw(1), c)
	if err != nil {
		return Zero, err
	}
	return q.AddRaw(1), nil
}

// Complement returns 1 - x, clamped at zero.
func Complement(x math.Int) math.Int {
	if x.LT(One) {
		return One.Sub(x)
	}
	return Zero
}

// PowDown returns x^y rounded down by the maximum relative error of Pow.
func PowDown(x, y math.Int) (math.Int, error) {
	switch {
	case y.Equal(One):
		return x, nil
	case y.Equal(Two):
		return MulDown(x, x)
	case y.Equal(Four):
		square, err := MulDown(x, x)
		if err != nil {
			return Zero, err
		}
		return MulDown(square, square)
	}

	raw, err := Pow(x, y)
	if err != nil {
		return Zero, err
	}
	maxError, err := powMaxError(raw)
	if err != nil {
		return Zero, err
	}
	if raw.LT(maxError) {
		return Zero, nil
	}
	return raw.Sub(maxError), nil
}

// PowUp returns x^y rounded up by the maximum relative error of Pow.
func PowUp(x, y math.Int) (math.Int, error) {
	switch {
	case y.Equal(One):
		return x, nil
	case y.Equal(Two):
		return MulUp(x, x)
	case y.Equal(Four):
		square, err := MulUp(x, x)
		if err != nil {
			return Zero, err
		}
		return MulUp(square, square)
	}

	raw, err := Pow(x, y)
	if err != nil {
		return Zero, err
	}
	maxError, err := powMaxError(raw)
	if err != nil {
		return Zero, err
	}
	return Add(raw, maxError)
}

func powMaxError(raw math.Int) (math.Int, error) {
	e, err := MulUp(raw, MaxPowRelativeError)
	if err != nil {
		return Zero, err
	}
	return e.AddRaw(1), nil
}

// ToLegacyDec renders a fixed-point value as a decimal for display.
func ToLegacyDec(x math.Int) math.LegacyDec {
	return math.LegacyNewDecFromIntWithPrec(x, Decimals)
}
