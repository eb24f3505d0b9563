package controller

import (
	"context"
	"fmt"

	"cosmossdk.io/math"

	"github.com/elys-network/lbp/internal/metrics"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/vault"
	"github.com/elys-network/lbp/internal/weighted"
)

// InitializeMaster creates the master account. It can run exactly once.
func (c *Controller) InitializeMaster(ctx context.Context, admin types.Identity) (types.Receipt, error) {
	return c.execute(ctx, types.OpInitializeMaster, admin, nil, func(tx *txn) (types.Receipt, error) {
		if tx.master != nil {
			return types.Receipt{}, fmt.Errorf("%w: admin is %s", types.ErrAlreadyInitialized, tx.master.Admin)
		}
		if admin == "" {
			return types.Receipt{}, fmt.Errorf("%w: admin cannot be empty", types.ErrInvalidParams)
		}
		tx.master = types.NewMasterAccount(admin)
		return types.Receipt{}, nil
	})
}

// SetFeePercentage replaces the swap fee schedule.
func (c *Controller) SetFeePercentage(ctx context.Context, caller types.Identity, swapFeeBps uint16, flatFee math.Int) (types.Receipt, error) {
	return c.execute(ctx, types.OpSetFees, caller, nil, func(tx *txn) (types.Receipt, error) {
		if err := requireAdmin(tx.master, caller); err != nil {
			return types.Receipt{}, err
		}
		fees := weighted.Fees{SwapFeeBps: swapFeeBps, FlatFee: flatFee}
		if err := fees.Validate(); err != nil {
			return types.Receipt{}, err
		}
		tx.master.SwapFeeBps = swapFeeBps
		tx.master.FlatFee = flatFee
		return types.Receipt{Message: fmt.Sprintf("swap fee %d bps, flat fee %s", swapFeeBps, flatFee)}, nil
	})
}

// SetAdmin hands the admin role to newAdmin.
func (c *Controller) SetAdmin(ctx context.Context, caller, newAdmin types.Identity) (types.Receipt, error) {
	return c.execute(ctx, types.OpSetAdmin, caller, nil, func(tx *txn) (types.Receipt, error) {
		if err := requireAdmin(tx.master, caller); err != nil {
			return types.Receipt{}, err
		}
		if newAdmin == "" {
			return types.Receipt{}, fmt.Errorf("%w: admin cannot be empty", types.ErrInvalidParams)
		}
		tx.master.Admin = newAdmin
		return types.Receipt{Message: "admin set to " + string(newAdmin)}, nil
	})
}

// SetFeeCollector changes who may collect accrued fees.
func (c *Controller) SetFeeCollector(ctx context.Context, caller, collector types.Identity) (types.Receipt, error) {
	return c.execute(ctx, types.OpSetFeeCollector, caller, nil, func(tx *txn) (types.Receipt, error) {
		if err := requireAdmin(tx.master, caller); err != nil {
			return types.Receipt{}, err
		}
		if collector == "" {
			return types.Receipt{}, fmt.Errorf("%w: fee collector cannot be empty", types.ErrInvalidParams)
		}
		tx.master.FeeCollector = collector
		return types.Receipt{Message: "fee collector set to " + string(collector)}, nil
	})
}

// CollectFees pays the whole accrued balance of asset out of the fee vault to the fee collector.
func (c *Controller) CollectFees(ctx context.Context, caller types.Identity, asset types.AssetID) (types.Receipt, error) {
	receipt, err := c.execute(ctx, types.OpCollectFees, caller, nil, func(tx *txn) (types.Receipt, error) {
		amount, err := tx.fees.Collect(tx.master, caller, asset)
		if err != nil {
			return types.Receipt{}, err
		}
		if !amount.IsPositive() {
			return types.Receipt{}, fmt.Errorf("%w: no fees accrued in %s", types.ErrZeroAmount, asset)
		}
		tx.move(asset, vault.FeeVaultAccount(asset), caller, amount)
		return types.Receipt{AmountsOut: map[types.AssetID]math.Int{asset: amount}}, nil
	})
	if err == nil {
		metrics.FeesAccrued.WithLabelValues(string(asset)).Set(0)
	}
	return receipt, err
}

func requireAdmin(master *types.MasterAccount, caller types.Identity) error {
	if master == nil {
		return types.ErrMasterNotInitialized
	}
	if caller != master.Admin {
		return fmt.Errorf("%w: %s is not the admin", types.ErrUnauthorized, caller)
	}
	return nil
}

// swapFees returns the fee schedule of the master account, or no fees before it exists.
func swapFees(master *types.MasterAccount) weighted.Fees {
	if master == nil {
		return weighted.Fees{FlatFee: math.ZeroInt()}
	}
	return weighted.FeesFromMaster(master)
}
