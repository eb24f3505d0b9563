// Package ledger applies seed, join, swap and redeem bookkeeping to a pool account.
//
// A Ledger mutates the account it wraps in place; callers hand it a staged clone and
// only publish the clone once every step of the operation has succeeded.
package ledger

import (
	"fmt"

	"cosmossdk.io/math"

	fp "github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/utils"
	"github.com/elys-network/lbp/internal/weighted"
)

type Ledger struct {
	pool *types.PoolAccount
}

// New wraps pool. The ledger writes to pool directly.
func New(pool *types.PoolAccount) *Ledger {
	if pool.Shares == nil {
		pool.Shares = make(map[types.Identity]math.Int)
	}
	if pool.TotalShares.IsNil() {
		pool.TotalShares = math.ZeroInt()
	}
	if pool.Invariant.IsNil() {
		pool.Invariant = math.ZeroInt()
	}
	for i := range pool.Balances {
		if pool.Balances[i].IsNil() {
			pool.Balances[i] = math.ZeroInt()
		}
	}
	return &Ledger{pool: pool}
}

func (l *Ledger) Pool() *types.PoolAccount {
	return l.pool
}

// ShareBalance returns the shares held by holder.
func (l *Ledger) ShareBalance(holder types.Identity) math.Int {
	return l.pool.ShareBalance(holder)
}

// UpscaledBalances returns the reserves in 18-decimal fixed point.
func (l *Ledger) UpscaledBalances() ([2]math.Int, error) {
	return l.upscalePair(l.pool.Balances)
}

func (l *Ledger) upscalePair(amounts [2]math.Int) ([2]math.Int, error) {
	var out [2]math.Int
	for i := range amounts {
		v, err := utils.Upscale(amounts[i], l.pool.Decimals[i])
		if err != nil {
			return out, fmt.Errorf("%w: %w", types.ErrOverflow, err)
		}
		out[i] = v
	}
	return out, nil
}

// Seed performs the first funding of the pool and mints V * normalization shares to depositor.
// V stays in 18-decimal fixed point, so shares carry 18 decimals as well.
func (l *Ledger) Seed(depositor types.Identity, balances [2]math.Int, normalizedWeights [2]math.Int, normalization uint64) (math.Int, error) {
	if l.pool.Seeded || l.pool.TotalShares.IsPositive() {
		return fp.Zero, fmt.Errorf("%w: pool %s has %s shares", types.ErrAlreadySeeded, l.pool.Key(), l.pool.TotalShares)
	}
	for i := range balances {
		if balances[i].IsNil() || !balances[i].IsPositive() {
			return fp.Zero, fmt.Errorf("%w: seed balance %d", types.ErrZeroAmount, i)
		}
	}

	upscaled, err := l.upscalePair(balances)
	if err != nil {
		return fp.Zero, err
	}
	invariant, err := weighted.CalculateInvariant(upscaled, normalizedWeights)
	if err != nil {
		return fp.Zero, err
	}
	shares, err := fp.Mul(invariant, math.NewIntFromUint64(normalization))
	if err != nil {
		return fp.Zero, err
	}

	l.pool.Balances = balances
	l.pool.Invariant = invariant
	l.pool.TotalShares = shares
	l.pool.Shares[depositor] = shares
	l.pool.Seeded = true
	return shares, nil
}

// JoinResult describes a committed join.
type JoinResult struct {
	Shares    math.Int
	AmountsIn [2]math.Int // base units pulled from the depositor, per asset index
}

// Join deposits amount of asset index for depositor and mints the resulting shares.
func (l *Ledger) Join(depositor types.Identity, index int, amount math.Int, normalizedWeights [2]math.Int, fees weighted.Fees, mode types.JoinMode) (JoinResult, error) {
	res := JoinResult{Shares: fp.Zero, AmountsIn: [2]math.Int{fp.Zero, fp.Zero}}
	if amount.IsNil() || !amount.IsPositive() {
		return res, fmt.Errorf("%w: join amount", types.ErrZeroAmount)
	}
	if index != types.InputIndex && index != types.OutputIndex {
		return res, fmt.Errorf("%w: asset index %d", types.ErrInvalidParams, index)
	}
	if !l.pool.TotalShares.IsPositive() {
		return res, fmt.Errorf("%w: pool %s has no shares", types.ErrInsufficientLiquidity, l.pool.Key())
	}

	switch mode {
	case types.JoinProportional:
		shares, amountsIn, err := weighted.CalcProportionalJoin(l.pool.Balances, index, amount, l.pool.TotalShares)
		if err != nil {
			return res, err
		}
		res.Shares, res.AmountsIn = shares, amountsIn

	case types.JoinSingleSided, "":
		balances, err := l.UpscaledBalances()
		if err != nil {
			return res, err
		}
		amountUp, err := utils.Upscale(amount, l.pool.Decimals[index])
		if err != nil {
			return res, fmt.Errorf("%w: %w", types.ErrOverflow, err)
		}
		shares, err := weighted.CalcSharesOutGivenExactTokenIn(balances, normalizedWeights, index, amountUp, l.pool.TotalShares, fees.ProportionalRate())
		if err != nil {
			return res, err
		}
		if !shares.IsPositive() {
			return res, fmt.Errorf("%w: deposit %s mints no shares", types.ErrZeroAmount, amount)
		}
		res.Shares = shares
		res.AmountsIn[index] = amount

	default:
		return res, fmt.Errorf("%w: join mode %q", types.ErrInvalidParams, mode)
	}

	for i := range l.pool.Balances {
		grown, err := fp.Add(l.pool.Balances[i], res.AmountsIn[i])
		if err != nil {
			return res, err
		}
		l.pool.Balances[i] = grown
	}
	if err := l.mint(depositor, res.Shares); err != nil {
		return res, err
	}
	return res, l.refreshInvariant(normalizedWeights)
}

// SwapResult describes a committed swap. Amounts are base units.
type SwapResult struct {
	InIndex   int
	OutIndex  int
	GrossIn   math.Int // paid by the trader
	NetIn     math.Int // added to the reserve
	Fee       math.Int // accrued to the fee ledger, in the in-asset
	AmountOut math.Int
}

// Swap trades against the pool. With exactOutput the amount is what the trader receives,
// otherwise it is what the trader pays (fees included).
func (l *Ledger) Swap(side types.SwapSide, amount math.Int, exactOutput bool, normalizedWeights [2]math.Int, fees weighted.Fees) (SwapResult, error) {
	in, out := side.Indices()
	res := SwapResult{InIndex: in, OutIndex: out, GrossIn: fp.Zero, NetIn: fp.Zero, Fee: fp.Zero, AmountOut: fp.Zero}
	if amount.IsNil() || !amount.IsPositive() {
		return res, fmt.Errorf("%w: swap amount", types.ErrZeroAmount)
	}
	if err := fees.Validate(); err != nil {
		return res, err
	}

	before, err := l.UpscaledBalances()
	if err != nil {
		return res, err
	}
	decIn, decOut := l.pool.Decimals[in], l.pool.Decimals[out]

	if exactOutput {
		if amount.GTE(l.pool.Balances[out]) {
			return res, fmt.Errorf("%w: amount out %s >= balance %s", types.ErrInsufficientLiquidity, amount, l.pool.Balances[out])
		}
		amountOutUp, err := utils.Upscale(amount, decOut)
		if err != nil {
			return res, fmt.Errorf("%w: %w", types.ErrOverflow, err)
		}
		netInUp, err := weighted.CalcInGivenOut(before[in], normalizedWeights[in], before[out], normalizedWeights[out], amountOutUp)
		if err != nil {
			return res, err
		}
		netIn, err := utils.DownscaleUp(netInUp, decIn)
		if err != nil {
			return res, err
		}
		gross, fee, err := fees.AddFees(netIn)
		if err != nil {
			return res, err
		}
		res.GrossIn, res.NetIn, res.Fee, res.AmountOut = gross, netIn, fee, amount
	} else {
		netIn, fee, err := fees.SubtractFees(amount)
		if err != nil {
			return res, err
		}
		netInUp, err := utils.Upscale(netIn, decIn)
		if err != nil {
			return res, fmt.Errorf("%w: %w", types.ErrOverflow, err)
		}
		amountOutUp, err := weighted.CalcOutGivenIn(before[in], normalizedWeights[in], before[out], normalizedWeights[out], netInUp)
		if err != nil {
			return res, err
		}
		amountOut, err := utils.DownscaleDown(amountOutUp, decOut)
		if err != nil {
			return res, err
		}
		if !amountOut.IsPositive() {
			return res, fmt.Errorf("%w: swap of %s yields nothing", types.ErrZeroAmount, amount)
		}
		if amountOut.GTE(l.pool.Balances[out]) {
			return res, fmt.Errorf("%w: amount out %s >= balance %s", types.ErrInsufficientLiquidity, amountOut, l.pool.Balances[out])
		}
		res.GrossIn, res.NetIn, res.Fee, res.AmountOut = amount, netIn, fee, amountOut
	}

	newIn, err := fp.Add(l.pool.Balances[in], res.NetIn)
	if err != nil {
		return res, err
	}
	newOut := l.pool.Balances[out].Sub(res.AmountOut)

	var next [2]math.Int
	next[in], next[out] = newIn, newOut
	after, err := l.upscalePair(next)
	if err != nil {
		return res, err
	}
	if err := weighted.CheckInvariant(before, after, normalizedWeights); err != nil {
		return res, err
	}

	l.pool.Balances = next
	return res, l.refreshInvariant(normalizedWeights)
}

// Redeem burns shares of holder and returns the pro-rata reserve amounts paid out.
func (l *Ledger) Redeem(holder types.Identity, shares math.Int) ([2]math.Int, error) {
	if shares.IsNil() || !shares.IsPositive() {
		return [2]math.Int{fp.Zero, fp.Zero}, fmt.Errorf("%w: shares to redeem", types.ErrZeroAmount)
	}
	held := l.pool.ShareBalance(holder)
	if shares.GT(held) {
		return [2]math.Int{fp.Zero, fp.Zero}, fmt.Errorf("%w: %s holds %s, requested %s", types.ErrInsufficientShares, holder, held, shares)
	}

	amountsOut, err := weighted.CalcTokensOutGivenExactSharesIn(l.pool.Balances, shares, l.pool.TotalShares)
	if err != nil {
		return [2]math.Int{fp.Zero, fp.Zero}, err
	}
	for i := range l.pool.Balances {
		l.pool.Balances[i] = l.pool.Balances[i].Sub(amountsOut[i])
	}
	l.burn(holder, shares)
	return amountsOut, nil
}

// RefreshInvariant recomputes the stored invariant with the given weights.
func (l *Ledger) RefreshInvariant(normalizedWeights [2]math.Int) error {
	return l.refreshInvariant(normalizedWeights)
}

func (l *Ledger) refreshInvariant(normalizedWeights [2]math.Int) error {
	if !l.pool.Balances[0].IsPositive() || !l.pool.Balances[1].IsPositive() {
		l.pool.Invariant = fp.Zero
		return nil
	}
	balances, err := l.UpscaledBalances()
	if err != nil {
		return err
	}
	invariant, err := weighted.CalculateInvariant(balances, normalizedWeights)
	if err != nil {
		return err
	}
	l.pool.Invariant = invariant
	return nil
}

func (l *Ledger) mint(holder types.Identity, shares math.Int) error {
	total, err := fp.Add(l.pool.TotalShares, shares)
	if err != nil {
		return err
	}
	held, err := fp.Add(l.pool.ShareBalance(holder), shares)
	if err != nil {
		return err
	}
	l.pool.TotalShares = total
	l.pool.Shares[holder] = held
	return nil
}

func (l *Ledger) burn(holder types.Identity, shares math.Int) {
	l.pool.TotalShares = l.pool.TotalShares.Sub(shares)
	remaining := l.pool.ShareBalance(holder).Sub(shares)
	if remaining.IsZero() {
		delete(l.pool.Shares, holder)
		return
	}
	l.pool.Shares[holder] = remaining
}
