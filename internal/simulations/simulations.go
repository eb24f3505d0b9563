package simulations

import (
	"fmt"

	"cosmossdk.io/math"

	fp "github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/ledger"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/utils"
	"github.com/elys-network/lbp/internal/weighted"
)

// Simulations run the real ledger code against a clone of the pool, so a quote is exactly
// what the same operation would commit at the same timestamp.

// SwapEstimationResult contains the result of a swap simulation
type SwapEstimationResult struct {
	Side      types.SwapSide `json:"side"`
	TokenIn   types.AssetID  `json:"token_in"`
	TokenOut  types.AssetID  `json:"token_out"`
	AmountIn  math.Int       `json:"amount_in"` // gross, fees included
	Fee       math.Int       `json:"fee"`
	AmountOut math.Int       `json:"amount_out"`

	SpotPriceBefore math.LegacyDec `json:"spot_price_before"` // out asset priced in in asset
	SpotPriceAfter  math.LegacyDec `json:"spot_price_after"`
	EffectivePrice  math.LegacyDec `json:"effective_price"`
	Slippage        float64        `json:"slippage"` // effective vs spot, in percent
}

// JoinPoolEstimationResult contains the result of a join pool simulation
type JoinPoolEstimationResult struct {
	ShareAmountOut math.Int                   `json:"share_amount_out"`
	AmountsIn      map[types.AssetID]math.Int `json:"amounts_in"`
	// ShareOfPool is the fraction of the supply held by the new shares, in percent.
	ShareOfPool float64 `json:"share_of_pool"`
}

// ExitPoolEstimationResult contains the result of an exit pool simulation
type ExitPoolEstimationResult struct {
	AmountsOut map[types.AssetID]math.Int `json:"amounts_out"`
}

// SimulateSwap prices a swap on a copy of pool.
func SimulateSwap(pool *types.PoolAccount, normalizedWeights [2]math.Int, fees weighted.Fees, side types.SwapSide, amount math.Int, exactOutput bool) (SwapEstimationResult, error) {
	staged := pool.Clone()
	l := ledger.New(staged)
	in, out := side.Indices()

	before, err := SpotPrice(pool, normalizedWeights, side)
	if err != nil {
		return SwapEstimationResult{}, err
	}
	res, err := l.Swap(side, amount, exactOutput, normalizedWeights, fees)
	if err != nil {
		return SwapEstimationResult{}, err
	}
	after, err := SpotPrice(staged, normalizedWeights, side)
	if err != nil {
		return SwapEstimationResult{}, err
	}

	// Effective price of one whole out-asset unit in in-asset units, fees excluded.
	netInUp, err := utils.Upscale(res.NetIn, pool.Decimals[in])
	if err != nil {
		return SwapEstimationResult{}, err
	}
	outUp, err := utils.Upscale(res.AmountOut, pool.Decimals[out])
	if err != nil {
		return SwapEstimationResult{}, err
	}
	effective, err := fp.DivDown(netInUp, outUp)
	if err != nil {
		return SwapEstimationResult{}, err
	}

	result := SwapEstimationResult{
		Side:            side,
		TokenIn:         pool.Assets()[in],
		TokenOut:        pool.Assets()[out],
		AmountIn:        res.GrossIn,
		Fee:             res.Fee,
		AmountOut:       res.AmountOut,
		SpotPriceBefore: fp.ToLegacyDec(before),
		SpotPriceAfter:  fp.ToLegacyDec(after),
		EffectivePrice:  fp.ToLegacyDec(effective),
	}
	if before.IsPositive() {
		diff := fp.ToLegacyDec(effective).Sub(result.SpotPriceBefore).Quo(result.SpotPriceBefore)
		slippage, err := diff.Abs().MulInt64(100).Float64()
		if err != nil {
			return SwapEstimationResult{}, fmt.Errorf("%w: %w", utils.ErrConversionFailed, err)
		}
		result.Slippage = slippage
	}
	return result, nil
}

// SimulateJoin prices a single-asset join on a copy of pool.
func SimulateJoin(pool *types.PoolAccount, normalizedWeights [2]math.Int, fees weighted.Fees, mode types.JoinMode, index int, amount math.Int) (JoinPoolEstimationResult, error) {
	staged := pool.Clone()
	res, err := ledger.New(staged).Join("simulation", index, amount, normalizedWeights, fees, mode)
	if err != nil {
		return JoinPoolEstimationResult{}, err
	}
	amounts := make(map[types.AssetID]math.Int, 2)
	for i, asset := range pool.Assets() {
		if res.AmountsIn[i].IsPositive() {
			amounts[asset] = res.AmountsIn[i]
		}
	}
	share, err := math.LegacyNewDecFromInt(res.Shares).Quo(math.LegacyNewDecFromInt(staged.TotalShares)).MulInt64(100).Float64()
	if err != nil {
		return JoinPoolEstimationResult{}, fmt.Errorf("%w: %w", utils.ErrConversionFailed, err)
	}
	return JoinPoolEstimationResult{ShareAmountOut: res.Shares, AmountsIn: amounts, ShareOfPool: share}, nil
}

// SimulateExit prices the redemption of shares.
func SimulateExit(pool *types.PoolAccount, shares math.Int) (ExitPoolEstimationResult, error) {
	out, err := weighted.CalcTokensOutGivenExactSharesIn(pool.Balances, shares, pool.TotalShares)
	if err != nil {
		return ExitPoolEstimationResult{}, err
	}
	amounts := make(map[types.AssetID]math.Int, 2)
	for i, asset := range pool.Assets() {
		amounts[asset] = out[i]
	}
	return ExitPoolEstimationResult{AmountsOut: amounts}, nil
}

// SpotPrice returns the price of one unit of the side's out asset in units of its in asset,
// both upscaled to 18 decimals.
func SpotPrice(pool *types.PoolAccount, normalizedWeights [2]math.Int, side types.SwapSide) (math.Int, error) {
	in, out := side.Indices()
	balances, err := ledger.New(pool.Clone()).UpscaledBalances()
	if err != nil {
		return fp.Zero, err
	}
	return weighted.SpotPrice(balances[in], normalizedWeights[in], balances[out], normalizedWeights[out])
}
