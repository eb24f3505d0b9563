package controller

import (
	"fmt"

	"cosmossdk.io/math"

	fp "github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/simulations"
	"github.com/elys-network/lbp/internal/types"
)

// Quotes price an operation against the committed state at the controller clock without
// committing anything.

// QuoteSwap prices a swap under the same rules BuySwap and SellSwap enforce.
func (c *Controller) QuoteSwap(key types.PoolKey, side types.SwapSide, amount math.Int, exactOutput bool) (simulations.SwapEstimationResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.master == nil {
		return simulations.SwapEstimationResult{}, types.ErrMasterNotInitialized
	}
	p, err := c.lookup(key)
	if err != nil {
		return simulations.SwapEstimationResult{}, err
	}
	now := c.Now()
	if err := c.checkSwappable(p, now, side); err != nil {
		return simulations.SwapEstimationResult{}, err
	}
	normalized, err := c.normalizedAt(p, now)
	if err != nil {
		return simulations.SwapEstimationResult{}, err
	}
	return simulations.SimulateSwap(p, normalized, swapFees(c.master), side, amount, exactOutput)
}

// QuoteJoin prices a join of amount of asset.
func (c *Controller) QuoteJoin(key types.PoolKey, asset types.AssetID, amount math.Int) (simulations.JoinPoolEstimationResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, err := c.lookup(key)
	if err != nil {
		return simulations.JoinPoolEstimationResult{}, err
	}
	now := c.Now()
	if phase := c.phaseOf(p, now); phase != types.PhaseSeeded {
		return simulations.JoinPoolEstimationResult{}, fmt.Errorf("%w: pool %s is %s", types.ErrInvalidPhase, key, phase)
	}
	index := p.AssetIndex(asset)
	if index < 0 {
		return simulations.JoinPoolEstimationResult{}, fmt.Errorf("%w: asset %s is not in pool %s", types.ErrInvalidParams, asset, key)
	}
	normalized, err := c.normalizedAt(p, now)
	if err != nil {
		return simulations.JoinPoolEstimationResult{}, err
	}
	return simulations.SimulateJoin(p, normalized, swapFees(c.master), c.params.JoinMode, index, amount)
}

// QuoteRedeem prices the redemption of shares.
func (c *Controller) QuoteRedeem(key types.PoolKey, shares math.Int) (simulations.ExitPoolEstimationResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, err := c.lookup(key)
	if err != nil {
		return simulations.ExitPoolEstimationResult{}, err
	}
	if !p.Seeded {
		return simulations.ExitPoolEstimationResult{}, fmt.Errorf("%w: pool %s is not seeded", types.ErrInvalidPhase, key)
	}
	if shares.IsNil() || !shares.IsPositive() {
		return simulations.ExitPoolEstimationResult{}, fmt.Errorf("%w: shares to redeem", types.ErrZeroAmount)
	}
	return simulations.SimulateExit(p, shares)
}

// SpotPrice returns the price of one output asset unit in input asset units for a buy, or the
// reverse for a sell, at the current weights.
func (c *Controller) SpotPrice(key types.PoolKey, side types.SwapSide) (math.LegacyDec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, err := c.lookup(key)
	if err != nil {
		return math.LegacyZeroDec(), err
	}
	if !p.Seeded {
		return math.LegacyZeroDec(), fmt.Errorf("%w: pool %s is not seeded", types.ErrInvalidPhase, key)
	}
	normalized, err := c.normalizedAt(p, c.Now())
	if err != nil {
		return math.LegacyZeroDec(), err
	}
	price, err := simulations.SpotPrice(p, normalized, side)
	if err != nil {
		return math.LegacyZeroDec(), err
	}
	return fp.ToLegacyDec(price), nil
}

func (c *Controller) lookup(key types.PoolKey) (*types.PoolAccount, error) {
	p, ok := c.pools[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrPoolNotFound, key)
	}
	return p, nil
}
