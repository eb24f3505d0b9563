package weighted

import (
	"fmt"

	"cosmossdk.io/math"

	fp "github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/types"
)

// CalcSharesOutGivenExactTokenIn prices a single-asset deposit of amountIn into asset index.
//
// The part of the deposit that keeps the pool's ratios pays no fee; the remainder behaves
// like a swap into the other asset and is charged swapFee (an 18-decimal fraction). Shares are
// minted for the resulting invariant growth: totalShares * (Π (b_i'/b_i)^w_i - 1).
func CalcSharesOutGivenExactTokenIn(balances, normalizedWeights [2]math.Int, index int, amountIn, totalShares, swapFee math.Int) (math.Int, error) {
	if !amountIn.IsPositive() {
		return fp.Zero, fmt.Errorf("%w: join amount", types.ErrZeroAmount)
	}
	if index != types.InputIndex && index != types.OutputIndex {
		return fp.Zero, fmt.Errorf("%w: asset index %d", types.ErrInvalidParams, index)
	}
	if !balances[index].IsPositive() {
		return fp.Zero, fmt.Errorf("%w: empty reserve", types.ErrInsufficientLiquidity)
	}

	grown, err := fp.Add(balances[index], amountIn)
	if err != nil {
		return fp.Zero, err
	}
	balanceRatioWithFee, err := fp.DivDown(grown, balances[index])
	if err != nil {
		return fp.Zero, err
	}

	// The untouched asset keeps a ratio of exactly one.
	weighted, err := fp.MulDown(balanceRatioWithFee, normalizedWeights[index])
	if err != nil {
		return fp.Zero, err
	}
	invariantRatioWithFees, err := fp.Add(weighted, normalizedWeights[1-index])
	if err != nil {
		return fp.Zero, err
	}

	amountInWithoutFee := amountIn
	if balanceRatioWithFee.GT(invariantRatioWithFees) {
		nonTaxable, err := fp.MulDown(balances[index], invariantRatioWithFees.Sub(fp.One))
		if err != nil {
			return fp.Zero, err
		}
		taxable := amountIn.Sub(nonTaxable)
		taxedDown, err := fp.MulDown(taxable, fp.Complement(swapFee))
		if err != nil {
			return fp.Zero, err
		}
		amountInWithoutFee = nonTaxable.Add(taxedDown)
	}

	grownNet, err := fp.Add(balances[index], amountInWithoutFee)
	if err != nil {
		return fp.Zero, err
	}
	balanceRatio, err := fp.DivDown(grownNet, balances[index])
	if err != nil {
		return fp.Zero, err
	}
	invariantRatio, err := fp.PowDown(balanceRatio, normalizedWeights[index])
	if err != nil {
		return fp.Zero, err
	}
	if invariantRatio.LTE(fp.One) {
		return fp.Zero, nil
	}
	return fp.MulDown(totalShares, invariantRatio.Sub(fp.One))
}

// CalcProportionalJoin returns the shares minted for depositing amountIn of asset index
// together with the pro-rata amount of the other asset, both rounded in the pool's favour.
// Inputs are base units: proportions do not depend on scaling.
func CalcProportionalJoin(balances [2]math.Int, index int, amountIn, totalShares math.Int) (shares math.Int, amountsIn [2]math.Int, err error) {
	if !amountIn.IsPositive() {
		return fp.Zero, amountsIn, fmt.Errorf("%w: join amount", types.ErrZeroAmount)
	}
	if index != types.InputIndex && index != types.OutputIndex {
		return fp.Zero, amountsIn, fmt.Errorf("%w: asset index %d", types.ErrInvalidParams, index)
	}
	if !balances[index].IsPositive() || !totalShares.IsPositive() {
		return fp.Zero, amountsIn, fmt.Errorf("%w: empty pool", types.ErrInsufficientLiquidity)
	}

	shares, err = fp.MulDivDown(totalShares, amountIn, balances[index])
	if err != nil {
		return fp.Zero, amountsIn, err
	}
	if shares.IsZero() {
		return fp.Zero, amountsIn, fmt.Errorf("%w: deposit %s mints no shares", types.ErrZeroAmount, amountIn)
	}

	other := 1 - index
	amountsIn[index] = amountIn
	amountsIn[other], err = fp.MulDivUp(balances[other], shares, totalShares)
	if err != nil {
		return fp.Zero, amountsIn, err
	}
	return shares, amountsIn, nil
}

// CalcTokensOutGivenExactSharesIn returns each reserve's pro-rata share of sharesIn, rounded down.
// Redeeming the whole supply returns the reserves exactly.
func CalcTokensOutGivenExactSharesIn(balances [2]math.Int, sharesIn, totalShares math.Int) ([2]math.Int, error) {
	var out [2]math.Int
	if !sharesIn.IsPositive() {
		return out, fmt.Errorf("%w: shares in", types.ErrZeroAmount)
	}
	if sharesIn.GT(totalShares) {
		return out, fmt.Errorf("%w: %s exceeds supply %s", types.ErrInsufficientShares, sharesIn, totalShares)
	}
	for i := range balances {
		if sharesIn.Equal(totalShares) {
			out[i] = balances[i]
			continue
		}
		amount, err := fp.MulDivDown(balances[i], sharesIn, totalShares)
		if err != nil {
			return out, err
		}
		out[i] = amount
	}
	return out, nil
}
