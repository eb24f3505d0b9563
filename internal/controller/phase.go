package controller

import (
	"fmt"

	"cosmossdk.io/math"

	"github.com/elys-network/lbp/internal/schedule"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/weighted"
)

// phaseOf derives the lifecycle phase of p at now. Closed is only reachable under the
// restricted trading window policy; otherwise a seeded pool past its end keeps trading.
func (c *Controller) phaseOf(p *types.PoolAccount, now int64) types.Phase {
	switch {
	case !p.Seeded:
		return types.PhaseUninitialized
	case now < p.StartTime:
		return types.PhaseSeeded
	case now > p.EndTime && c.params.TradingWindow == types.TradingWindowRestricted:
		return types.PhaseClosed
	default:
		return types.PhaseTrading
	}
}

func (c *Controller) scheduleOf(p *types.PoolAccount) schedule.Schedule {
	return schedule.FromPool(p, c.params.WeightNormalization)
}

func (c *Controller) weightsAt(p *types.PoolAccount, now int64) ([2]uint64, error) {
	return schedule.CurrentWeights(c.scheduleOf(p), now)
}

func (c *Controller) normalizedAt(p *types.PoolAccount, now int64) ([2]math.Int, error) {
	_, normalized, err := schedule.NormalizedWeights(c.scheduleOf(p), now)
	return normalized, err
}

// checkSwappable applies the phase, pause and direction rules of a swap.
func (c *Controller) checkSwappable(p *types.PoolAccount, now int64, side types.SwapSide) error {
	phase := c.phaseOf(p, now)
	if phase == types.PhaseUninitialized {
		return fmt.Errorf("%w: pool %s is not seeded", types.ErrInvalidPhase, p.Key())
	}
	if c.params.TradingWindow == types.TradingWindowRestricted && phase != types.PhaseTrading {
		return fmt.Errorf("%w: pool %s is %s, window is [%d, %d], now %d",
			types.ErrTradingWindowClosed, p.Key(), phase, p.StartTime, p.EndTime, now)
	}
	if !p.SwapEnabled {
		return fmt.Errorf("%w: %s", types.ErrPoolPaused, p.Key())
	}
	if side == types.SwapSell && p.IsBuyOnly {
		return fmt.Errorf("%w: %s", types.ErrBuyOnly, p.Key())
	}
	return nil
}

// Phase returns the phase of the pool at the controller clock.
func (c *Controller) Phase(key types.PoolKey) (types.Phase, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pools[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", types.ErrPoolNotFound, key)
	}
	return c.phaseOf(p, c.Now()), nil
}

// CurrentWeights returns the weights of the pool at the unix time at.
func (c *Controller) CurrentWeights(key types.PoolKey, at int64) ([2]uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pools[key]
	if !ok {
		return [2]uint64{}, fmt.Errorf("%w: %s", types.ErrPoolNotFound, key)
	}
	return c.weightsAt(p, at)
}

// CalculateInvariant computes the invariant of balances under integer weights summing to
// normalization. Balances are 18-decimal values; nothing is read or written.
func CalculateInvariant(balances [2]math.Int, weights [2]uint64, normalization uint64) (math.Int, error) {
	for i := range balances {
		if balances[i].IsNil() || !balances[i].IsPositive() {
			return math.ZeroInt(), fmt.Errorf("%w: balance %d", types.ErrZeroAmount, i)
		}
	}
	if !types.WeightsNormalized(weights, normalization) {
		return math.ZeroInt(), fmt.Errorf("%w: weights %v must be positive and sum to %d", types.ErrInvalidParams, weights, normalization)
	}
	normalized, err := weighted.NormalizeWeights(weights, normalization)
	if err != nil {
		return math.ZeroInt(), err
	}
	return weighted.CalculateInvariant(balances, normalized)
}
