package controller

import (
	"context"
	"fmt"

	"cosmossdk.io/math"

	"github.com/elys-network/lbp/internal/ledger"
	"github.com/elys-network/lbp/internal/schedule"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/vault"
	"github.com/elys-network/lbp/internal/weighted"
)

// InitializePool registers an unseeded pool for creator. A creator has at most one pool per
// input asset.
func (c *Controller) InitializePool(ctx context.Context, creator types.Identity, params types.InitializePoolParams) (types.Receipt, error) {
	return c.execute(ctx, types.OpInitializePool, creator, nil, func(tx *txn) (types.Receipt, error) {
		if tx.master == nil {
			return types.Receipt{}, types.ErrMasterNotInitialized
		}
		if creator == "" {
			return types.Receipt{}, fmt.Errorf("%w: creator cannot be empty", types.ErrInvalidParams)
		}
		for _, a := range []types.Asset{params.InputAsset, params.OutputAsset} {
			if err := a.Validate(); err != nil {
				return types.Receipt{}, err
			}
		}
		if params.InputAsset.ID == params.OutputAsset.ID {
			return types.Receipt{}, fmt.Errorf("%w: input and output asset are both %s", types.ErrInvalidParams, params.InputAsset.ID)
		}

		key := types.PoolKey{Creator: creator, InputAsset: params.InputAsset.ID}
		if _, exists := c.pools[key]; exists {
			return types.Receipt{}, fmt.Errorf("%w: %s", types.ErrPoolExists, key)
		}

		pool := &types.PoolAccount{
			AccountType:      types.AccountTypePool,
			Version:          types.PoolAccountVersion,
			Creator:          creator,
			InputAsset:       params.InputAsset.ID,
			OutputAsset:      params.OutputAsset.ID,
			Decimals:         [2]uint8{params.InputAsset.Decimals, params.OutputAsset.Decimals},
			StartTime:        params.StartTime,
			EndTime:          params.EndTime,
			StartWeights:     params.StartWeights,
			EndWeights:       params.EndWeights,
			IsSolDenominated: params.IsSolDenominated,
			IsVesting:        params.IsVesting,
			IsBuyOnly:        params.IsBuyOnly,
			SwapEnabled:      true,
			Custody:          vault.CustodyFor(key, params.OutputAsset.ID),
		}
		if err := c.scheduleOf(pool).Validate(); err != nil {
			return types.Receipt{}, err
		}
		ledger.New(pool)

		tx.pool = pool
		return types.Receipt{}, nil
	})
}

// SeedPool funds an initialized pool with both reserves and mints the first shares to the
// creator. weights must equal the scheduled weights at the seed time; the seed invariant is
// priced with them so later refreshes continue from the same curve.
func (c *Controller) SeedPool(ctx context.Context, caller types.Identity, key types.PoolKey, balances [2]math.Int, weights [2]uint64) (types.Receipt, error) {
	return c.execute(ctx, types.OpSeedPool, caller, &key, func(tx *txn) (types.Receipt, error) {
		p := tx.pool
		if caller != p.Creator {
			return types.Receipt{}, fmt.Errorf("%w: %s is not the creator of %s", types.ErrUnauthorized, caller, key)
		}
		if p.Seeded {
			return types.Receipt{}, fmt.Errorf("%w: %s", types.ErrAlreadySeeded, key)
		}
		n := c.params.WeightNormalization
		if !types.WeightsNormalized(weights, n) {
			return types.Receipt{}, fmt.Errorf("%w: seed weights %v must be positive and sum to %d", types.ErrInvalidParams, weights, n)
		}
		scheduled, normalized, err := schedule.NormalizedWeights(c.scheduleOf(p), tx.now)
		if err != nil {
			return types.Receipt{}, err
		}
		if weights != scheduled {
			return types.Receipt{}, fmt.Errorf("%w: seed weights %v differ from the scheduled %v at %d", types.ErrInvalidParams, weights, scheduled, tx.now)
		}

		shares, err := ledger.New(p).Seed(caller, balances, normalized, n)
		if err != nil {
			return types.Receipt{}, err
		}
		amountsIn := make(map[types.AssetID]math.Int, 2)
		for i, asset := range p.Assets() {
			tx.move(asset, caller, p.Custody.Reserve(i), balances[i])
			amountsIn[asset] = balances[i]
		}
		return types.Receipt{AmountsIn: amountsIn, SharesOut: shares}, nil
	})
}

// JoinPool deposits amount of asset before the sale starts and mints shares to caller.
// Under proportional joins the other asset is pulled as well.
func (c *Controller) JoinPool(ctx context.Context, caller types.Identity, key types.PoolKey, asset types.AssetID, amount math.Int) (types.Receipt, error) {
	return c.execute(ctx, types.OpJoinPool, caller, &key, func(tx *txn) (types.Receipt, error) {
		p := tx.pool
		if phase := c.phaseOf(p, tx.now); phase != types.PhaseSeeded {
			return types.Receipt{}, fmt.Errorf("%w: join requires %s, pool %s is %s", types.ErrInvalidPhase, types.PhaseSeeded, key, phase)
		}
		index := p.AssetIndex(asset)
		if index < 0 {
			return types.Receipt{}, fmt.Errorf("%w: asset %s is not in pool %s", types.ErrInvalidParams, asset, key)
		}
		normalized, err := c.normalizedAt(p, tx.now)
		if err != nil {
			return types.Receipt{}, err
		}

		res, err := ledger.New(p).Join(caller, index, amount, normalized, swapFees(tx.master), c.params.JoinMode)
		if err != nil {
			return types.Receipt{}, err
		}
		amountsIn := make(map[types.AssetID]math.Int, 2)
		for i, a := range p.Assets() {
			if res.AmountsIn[i].IsPositive() {
				tx.move(a, caller, p.Custody.Reserve(i), res.AmountsIn[i])
				amountsIn[a] = res.AmountsIn[i]
			}
		}
		return types.Receipt{AmountsIn: amountsIn, SharesOut: res.Shares}, nil
	})
}

// BuySwap pays the input asset for the output asset. With exactOutput the amount is what
// caller receives; otherwise it is what caller pays, fees included.
func (c *Controller) BuySwap(ctx context.Context, caller types.Identity, key types.PoolKey, amount math.Int, exactOutput bool) (types.Receipt, error) {
	return c.swap(ctx, caller, key, types.SwapBuy, amount, exactOutput)
}

// SellSwap pays the output asset back for the input asset. Buy-only pools reject it.
func (c *Controller) SellSwap(ctx context.Context, caller types.Identity, key types.PoolKey, amount math.Int, exactOutput bool) (types.Receipt, error) {
	return c.swap(ctx, caller, key, types.SwapSell, amount, exactOutput)
}

func (c *Controller) swap(ctx context.Context, caller types.Identity, key types.PoolKey, side types.SwapSide, amount math.Int, exactOutput bool) (types.Receipt, error) {
	return c.execute(ctx, types.OpSwap, caller, &key, func(tx *txn) (types.Receipt, error) {
		if tx.master == nil {
			return types.Receipt{}, types.ErrMasterNotInitialized
		}
		p := tx.pool
		if err := c.checkSwappable(p, tx.now, side); err != nil {
			return types.Receipt{}, err
		}
		normalized, err := c.normalizedAt(p, tx.now)
		if err != nil {
			return types.Receipt{}, err
		}

		res, err := ledger.New(p).Swap(side, amount, exactOutput, normalized, weighted.FeesFromMaster(tx.master))
		if err != nil {
			return types.Receipt{}, err
		}
		assets := p.Assets()
		assetIn, assetOut := assets[res.InIndex], assets[res.OutIndex]
		if err := tx.fees.Accrue(assetIn, res.Fee); err != nil {
			return types.Receipt{}, err
		}

		tx.move(assetIn, caller, p.Custody.Reserve(res.InIndex), res.NetIn)
		tx.move(assetIn, caller, p.Custody.FeeVault(res.InIndex), res.Fee)
		tx.move(assetOut, p.Custody.Reserve(res.OutIndex), caller, res.AmountOut)

		return types.Receipt{
			Side:       side,
			AmountsIn:  map[types.AssetID]math.Int{assetIn: res.GrossIn},
			AmountsOut: map[types.AssetID]math.Int{assetOut: res.AmountOut},
			Fees:       map[types.AssetID]math.Int{assetIn: res.Fee},
		}, nil
	})
}

// RedeemShares burns shares of caller for the pro-rata share of both reserves. Any seeded
// pool accepts redemptions.
func (c *Controller) RedeemShares(ctx context.Context, caller types.Identity, key types.PoolKey, shares math.Int) (types.Receipt, error) {
	return c.execute(ctx, types.OpRedeem, caller, &key, func(tx *txn) (types.Receipt, error) {
		p := tx.pool
		if phase := c.phaseOf(p, tx.now); phase == types.PhaseUninitialized {
			return types.Receipt{}, fmt.Errorf("%w: pool %s is not seeded", types.ErrInvalidPhase, key)
		}
		normalized, err := c.normalizedAt(p, tx.now)
		if err != nil {
			return types.Receipt{}, err
		}

		l := ledger.New(p)
		amountsOut, err := l.Redeem(caller, shares)
		if err != nil {
			return types.Receipt{}, err
		}
		if err := l.RefreshInvariant(normalized); err != nil {
			return types.Receipt{}, err
		}

		out := make(map[types.AssetID]math.Int, 2)
		for i, asset := range p.Assets() {
			tx.move(asset, p.Custody.Reserve(i), caller, amountsOut[i])
			out[asset] = amountsOut[i]
		}
		return types.Receipt{AmountsOut: out, SharesIn: shares}, nil
	})
}

// PausePool disables swaps on the pool. Only its creator may pause it.
func (c *Controller) PausePool(ctx context.Context, caller types.Identity, key types.PoolKey) (types.Receipt, error) {
	return c.setSwapEnabled(ctx, types.OpPausePool, caller, key, false)
}

// UnpausePool re-enables swaps on the pool.
func (c *Controller) UnpausePool(ctx context.Context, caller types.Identity, key types.PoolKey) (types.Receipt, error) {
	return c.setSwapEnabled(ctx, types.OpUnpausePool, caller, key, true)
}

func (c *Controller) setSwapEnabled(ctx context.Context, op types.OperationType, caller types.Identity, key types.PoolKey, enabled bool) (types.Receipt, error) {
	return c.execute(ctx, op, caller, &key, func(tx *txn) (types.Receipt, error) {
		if caller != tx.pool.Creator {
			return types.Receipt{}, fmt.Errorf("%w: %s is not the creator of %s", types.ErrUnauthorized, caller, key)
		}
		tx.pool.SwapEnabled = enabled
		return types.Receipt{Message: fmt.Sprintf("swaps enabled: %t", enabled)}, nil
	})
}

// PoolSchedule returns the weight schedule of the pool under the configured normalization.
func (c *Controller) PoolSchedule(key types.PoolKey) (schedule.Schedule, error) {
	p, err := c.Pool(key)
	if err != nil {
		return schedule.Schedule{}, err
	}
	return c.scheduleOf(p), nil
}
