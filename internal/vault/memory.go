package vault

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cosmossdk.io/math"

	"github.com/elys-network/lbp/internal/logger"
	"github.com/elys-network/lbp/internal/types"
	"github.com/rs/zerolog"
)

// MemoryVault is an in-process Custodian. It backs tests, the dev faucet and the daemon
// when no external custody is wired in; its balances are checkpointed by the daemon.
type MemoryVault struct {
	mu       sync.Mutex
	balances map[types.Identity]map[types.AssetID]math.Int
	logger   zerolog.Logger
}

var _ Custodian = (*MemoryVault)(nil)

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		balances: make(map[types.Identity]map[types.AssetID]math.Int),
		logger:   logger.GetForComponent("memory_vault"),
	}
}

// Deposit credits account with amount of asset from outside the system.
func (v *MemoryVault) Deposit(account types.Identity, asset types.AssetID, amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: deposit amount must be positive", ErrInvalidTransfer)
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	next, err := v.balanceLocked(account, asset).SafeAdd(amount)
	if err != nil {
		return fmt.Errorf("%w: deposit to %s", types.ErrOverflow, account)
	}
	v.setLocked(account, asset, next)
	v.logger.Debug().Str("account", string(account)).Str("asset", string(asset)).Str("amount", amount.String()).Msg("Deposit credited")
	return nil
}

// Settle applies the batch atomically. Balances are checked against the running result of
// the batch, so a transfer may spend what an earlier transfer of the same batch credited.
func (v *MemoryVault) Settle(ctx context.Context, transfers []Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	staged := make(map[types.Identity]map[types.AssetID]math.Int)
	get := func(account types.Identity, asset types.AssetID) math.Int {
		if assets, ok := staged[account]; ok {
			if b, ok := assets[asset]; ok {
				return b
			}
		}
		return v.balanceLocked(account, asset)
	}
	set := func(account types.Identity, asset types.AssetID, amount math.Int) {
		if staged[account] == nil {
			staged[account] = make(map[types.AssetID]math.Int)
		}
		staged[account][asset] = amount
	}

	for i, t := range transfers {
		if t.Amount.IsNil() || t.Amount.IsNegative() || t.From == "" || t.To == "" || t.Asset == "" {
			return fmt.Errorf("%w: transfer %d", ErrInvalidTransfer, i)
		}
		if t.Amount.IsZero() || t.From == t.To {
			continue
		}
		from := get(t.From, t.Asset)
		if from.LT(t.Amount) {
			return fmt.Errorf("%w: %s holds %s %s, needs %s", ErrInsufficientFunds, t.From, from, t.Asset, t.Amount)
		}
		to, err := get(t.To, t.Asset).SafeAdd(t.Amount)
		if err != nil {
			return fmt.Errorf("%w: transfer %d to %s", types.ErrOverflow, i, t.To)
		}
		set(t.From, t.Asset, from.Sub(t.Amount))
		set(t.To, t.Asset, to)
	}

	for account, assets := range staged {
		for asset, amount := range assets {
			v.setLocked(account, asset, amount)
		}
	}
	v.logger.Debug().Int("transfers", len(transfers)).Msg("Batch settled")
	return nil
}

func (v *MemoryVault) Balance(_ context.Context, account types.Identity, asset types.AssetID) (math.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balanceLocked(account, asset), nil
}

// Holding is one non-zero custody balance.
type Holding struct {
	Account types.Identity `json:"account"`
	Asset   types.AssetID  `json:"asset"`
	Amount  math.Int       `json:"amount"`
}

// Snapshot returns every non-zero balance, sorted by account then asset.
func (v *MemoryVault) Snapshot() []Holding {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Holding, 0, len(v.balances))
	for account, assets := range v.balances {
		for asset, amount := range assets {
			if amount.IsPositive() {
				out = append(out, Holding{Account: account, Asset: asset, Amount: amount})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Account != out[j].Account {
			return out[i].Account < out[j].Account
		}
		return out[i].Asset < out[j].Asset
	})
	return out
}

// Restore replaces every balance with holdings.
func (v *MemoryVault) Restore(holdings []Holding) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.balances = make(map[types.Identity]map[types.AssetID]math.Int)
	for _, h := range holdings {
		v.setLocked(h.Account, h.Asset, h.Amount)
	}
}

func (v *MemoryVault) Close() error {
	return nil
}

func (v *MemoryVault) balanceLocked(account types.Identity, asset types.AssetID) math.Int {
	if assets, ok := v.balances[account]; ok {
		if b, ok := assets[asset]; ok {
			return b
		}
	}
	return math.ZeroInt()
}

func (v *MemoryVault) setLocked(account types.Identity, asset types.AssetID, amount math.Int) {
	if v.balances[account] == nil {
		v.balances[account] = make(map[types.AssetID]math.Int)
	}
	v.balances[account][asset] = amount
}
