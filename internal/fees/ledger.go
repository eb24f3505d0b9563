// Package fees keeps the protocol fee balances accrued by swaps, segregated from pool reserves.
package fees

import (
	"fmt"
	"sort"

	"cosmossdk.io/math"

	"github.com/elys-network/lbp/internal/types"
)

// Ledger maps each asset to its accrued, uncollected fee balance.
type Ledger struct {
	AccountType types.AccountType          `json:"account_type"`
	Balances    map[types.AssetID]math.Int `json:"balances"`
}

func NewLedger() *Ledger {
	return &Ledger{
		AccountType: types.AccountTypeFeeLedger,
		Balances:    make(map[types.AssetID]math.Int),
	}
}

// Balance returns the accrued fees for asset.
func (l *Ledger) Balance(asset types.AssetID) math.Int {
	if b, ok := l.Balances[asset]; ok {
		return b
	}
	return math.ZeroInt()
}

// Accrue adds a swap fee. Zero amounts are a no-op.
func (l *Ledger) Accrue(asset types.AssetID, amount math.Int) error {
	if amount.IsNil() || amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative fee %s", types.ErrInvalidParams, amount)
	}
	total, err := l.Balance(asset).SafeAdd(amount)
	if err != nil {
		return fmt.Errorf("%w: fee balance of %s", types.ErrOverflow, asset)
	}
	l.Balances[asset] = total
	return nil
}

// Collect releases the whole accrued balance of asset to the master's fee collector.
// Only the fee collector may call it.
func (l *Ledger) Collect(master *types.MasterAccount, caller types.Identity, asset types.AssetID) (math.Int, error) {
	if master == nil {
		return math.ZeroInt(), types.ErrMasterNotInitialized
	}
	if caller != master.FeeCollector {
		return math.ZeroInt(), fmt.Errorf("%w: %s is not the fee collector", types.ErrUnauthorized, caller)
	}
	amount := l.Balance(asset)
	delete(l.Balances, asset)
	return amount, nil
}

// Assets returns the assets with a non-zero balance, sorted.
func (l *Ledger) Assets() []types.AssetID {
	assets := make([]types.AssetID, 0, len(l.Balances))
	for a, b := range l.Balances {
		if b.IsPositive() {
			assets = append(assets, a)
		}
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	return assets
}

// Snapshot returns a copy of the balances.
func (l *Ledger) Snapshot() map[types.AssetID]math.Int {
	out := make(map[types.AssetID]math.Int, len(l.Balances))
	for a, b := range l.Balances {
		out[a] = b
	}
	return out
}

// Clone returns an independent copy for staging.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{AccountType: l.AccountType, Balances: l.Snapshot()}
}
