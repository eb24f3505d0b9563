// Package utils converts amounts between base units, 18-decimal fixed point and floats.
package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

func checkPrecision(precision int) error {
	if precision < 0 || precision > 18 {
		return fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	return nil
}

// SDKIntToFloat64 renders a base-unit amount with the given decimals as a float, for display only.
func SDKIntToFloat64(amount sdkmath.Int, precision int) (float64, error) {
	if err := checkPrecision(precision); err != nil {
		return 0, err
	}
	switch {
	case amount.IsNil():
		return 0, ErrAmountNil
	case amount.IsNegative():
		return 0, ErrAmountNegative
	}

	f, err := sdkmath.LegacyNewDecFromIntWithPrec(amount, int64(precision)).Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, f)
	}
	return f, nil
}

// Float64ToSDKInt parses a human amount into base units, truncating digits past precision.
// The float goes through its decimal string form so 0.1 becomes exactly 10^(precision-1).
func Float64ToSDKInt(amount float64, precision int) (sdkmath.Int, error) {
	if err := checkPrecision(precision); err != nil {
		return sdkmath.ZeroInt(), err
	}
	switch {
	case math.IsNaN(amount) || math.IsInf(amount, 0):
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	case amount < 0:
		return sdkmath.ZeroInt(), ErrAmountNegative
	case amount == 0:
		return sdkmath.ZeroInt(), nil
	}

	dec, err := sdkmath.LegacyNewDecFromStr(strconv.FormatFloat(amount, 'f', precision, 64))
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	unit := sdkmath.LegacyNewDecFromInt(sdkmath.NewIntWithDecimal(1, precision))
	return dec.Mul(unit).TruncateInt(), nil
}

// ScalingFactor returns 10^(18-decimals), the multiplier that lifts a base-unit amount
// of an asset with the given decimals into 18-decimal fixed point.
func ScalingFactor(decimals uint8) (sdkmath.Int, error) {
	if decimals > 18 {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, decimals)
	}
	return sdkmath.NewIntWithDecimal(1, int(18-decimals)), nil
}

// Upscale converts a base-unit amount into 18-decimal fixed point.
func Upscale(amount sdkmath.Int, decimals uint8) (sdkmath.Int, error) {
	factor, err := ScalingFactor(decimals)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	scaled, err := amount.SafeMul(factor)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: upscale %s: %w", ErrConversionFailed, amount, err)
	}
	return scaled, nil
}

// DownscaleDown converts an 18-decimal amount back to base units, rounding down.
func DownscaleDown(amount sdkmath.Int, decimals uint8) (sdkmath.Int, error) {
	factor, err := ScalingFactor(decimals)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return amount.Quo(factor), nil
}

// DownscaleUp converts an 18-decimal amount back to base units, rounding up.
func DownscaleUp(amount sdkmath.Int, decimals uint8) (sdkmath.Int, error) {
	factor, err := ScalingFactor(decimals)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	q := amount.Quo(factor)
	if !q.Mul(factor).Equal(amount) {
		q = q.AddRaw(1)
	}
	return q, nil
}
