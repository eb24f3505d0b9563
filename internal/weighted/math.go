// Package weighted implements the weighted-product invariant V = Π b_i^w_i and the
// swap, join and exit formulas derived from it.
//
// Balances and amounts passed here are upscaled to 18 decimals; weights are normalized
// 18-decimal fractions summing to fixedpoint.One. Every formula rounds in the pool's favour.
package weighted

import (
	"fmt"

	"cosmossdk.io/math"

	fp "github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/types"
)

// NormalizeWeights converts integer weights summing to normalization into 18-decimal fractions.
// The last weight takes the remainder so the fractions sum to exactly One.
func NormalizeWeights(weights [2]uint64, normalization uint64) ([2]math.Int, error) {
	if normalization == 0 {
		return [2]math.Int{}, fmt.Errorf("%w: weight normalization is zero", types.ErrDivisionByZero)
	}
	if !types.WeightsNormalized(weights, normalization) {
		return [2]math.Int{}, fmt.Errorf("%w: weights %v must be positive and sum to %d", types.ErrInvalidParams, weights, normalization)
	}
	w0, err := fp.MulDivDown(math.NewIntFromUint64(weights[0]), fp.One, math.NewIntFromUint64(normalization))
	if err != nil {
		return [2]math.Int{}, err
	}
	return [2]math.Int{w0, fp.One.Sub(w0)}, nil
}

// CalculateInvariant returns V = Π balance_i ^ weight_i, rounded down.
func CalculateInvariant(balances, normalizedWeights [2]math.Int) (math.Int, error) {
	invariant := fp.One
	for i := range balances {
		if balances[i].IsNegative() {
			return fp.Zero, fmt.Errorf("%w: negative balance %s", types.ErrInvalidParams, balances[i])
		}
		power, err := fp.PowDown(balances[i], normalizedWeights[i])
		if err != nil {
			return fp.Zero, err
		}
		if invariant, err = fp.MulDown(invariant, power); err != nil {
			return fp.Zero, err
		}
	}
	if invariant.IsZero() {
		return fp.Zero, fmt.Errorf("%w: zero invariant", types.ErrInsufficientLiquidity)
	}
	return invariant, nil
}

// InvariantLog returns ln V = Σ w_i·ln(b_i). It keeps full precision at any pool size,
// which makes it the quantity compared before and after a trade.
func InvariantLog(balances, normalizedWeights [2]math.Int) (math.Int, error) {
	sum := fp.Zero
	for i := range balances {
		if !balances[i].IsPositive() {
			return fp.Zero, fmt.Errorf("%w: reserve %d is empty", types.ErrInsufficientLiquidity, i)
		}
		lnb, err := fp.Ln(balances[i])
		if err != nil {
			return fp.Zero, err
		}
		term, err := fp.Mul(lnb, normalizedWeights[i])
		if err != nil {
			return fp.Zero, err
		}
		if sum, err = fp.Add(sum, term.Quo(fp.One)); err != nil {
			return fp.Zero, err
		}
	}
	return sum, nil
}

// CheckInvariant fails with ErrInvariantViolation when the post-trade invariant decreased.
func CheckInvariant(before, after [2]math.Int, normalizedWeights [2]math.Int) error {
	lnBefore, err := InvariantLog(before, normalizedWeights)
	if err != nil {
		return err
	}
	lnAfter, err := InvariantLog(after, normalizedWeights)
	if err != nil {
		return err
	}
	if lnAfter.LT(lnBefore) {
		return fmt.Errorf("%w: ln V %s -> %s", types.ErrInvariantViolation, lnBefore, lnAfter)
	}
	return nil
}

// CalcOutGivenIn returns balanceOut * (1 - (balanceIn / (balanceIn + amountIn))^(weightIn/weightOut)).
// amountIn must already be net of fees.
func CalcOutGivenIn(balanceIn, weightIn, balanceOut, weightOut, amountIn math.Int) (math.Int, error) {
	if !amountIn.IsPositive() {
		return fp.Zero, fmt.Errorf("%w: amount in", types.ErrZeroAmount)
	}
	if !balanceIn.IsPositive() || !balanceOut.IsPositive() {
		return fp.Zero, fmt.Errorf("%w: empty reserve", types.ErrInsufficientLiquidity)
	}
	denominator, err := fp.Add(balanceIn, amountIn)
	if err != nil {
		return fp.Zero, err
	}
	base, err := fp.DivUp(balanceIn, denominator)
	if err != nil {
		return fp.Zero, err
	}
	exponent, err := fp.DivDown(weightIn, weightOut)
	if err != nil {
		return fp.Zero, err
	}
	power, err := fp.PowUp(base, exponent)
	if err != nil {
		return fp.Zero, err
	}
	return fp.MulDown(balanceOut, fp.Complement(power))
}

// CalcInGivenOut returns balanceIn * ((balanceOut / (balanceOut - amountOut))^(weightOut/weightIn) - 1),
// the net amount in (before fees) required to take amountOut out of the pool.
func CalcInGivenOut(balanceIn, weightIn, balanceOut, weightOut, amountOut math.Int) (math.Int, error) {
	if !amountOut.IsPositive() {
		return fp.Zero, fmt.Errorf("%w: amount out", types.ErrZeroAmount)
	}
	if amountOut.GTE(balanceOut) {
		return fp.Zero, fmt.Errorf("%w: amount out %s >= balance %s", types.ErrInsufficientLiquidity, amountOut, balanceOut)
	}
	if !balanceIn.IsPositive() {
		return fp.Zero, fmt.Errorf("%w: empty reserve", types.ErrInsufficientLiquidity)
	}
	base, err := fp.DivUp(balanceOut, balanceOut.Sub(amountOut))
	if err != nil {
		return fp.Zero, err
	}
	exponent, err := fp.DivUp(weightOut, weightIn)
	if err != nil {
		return fp.Zero, err
	}
	power, err := fp.PowUp(base, exponent)
	if err != nil {
		return fp.Zero, err
	}
	ratio, err := fp.Sub(power, fp.One)
	if err != nil {
		return fp.Zero, err
	}
	return fp.MulUp(balanceIn, ratio)
}

// SpotPrice returns the marginal price of the out asset in units of the in asset:
// (balanceIn / weightIn) / (balanceOut / weightOut).
func SpotPrice(balanceIn, weightIn, balanceOut, weightOut math.Int) (math.Int, error) {
	numerator, err := fp.DivDown(balanceIn, weightIn)
	if err != nil {
		return fp.Zero, err
	}
	denominator, err := fp.DivDown(balanceOut, weightOut)
	if err != nil {
		return fp.Zero, err
	}
	return fp.DivDown(numerator, denominator)
}
