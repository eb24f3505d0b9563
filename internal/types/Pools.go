/*

This is the pool account type which contains all the state of one liquidity bootstrapping pool.
Index 0 of every pair is the input asset (what buyers pay), index 1 the output asset (what is sold).

*/

package types

import (
	"fmt"

	"cosmossdk.io/math"
)

const (
	InputIndex  = 0
	OutputIndex = 1
)

// PoolAccountVersion is bumped whenever the persisted layout of PoolAccount changes.
const PoolAccountVersion = 1

// PoolKey is the arena key of a pool: one pool per creator and input asset.
type PoolKey struct {
	Creator    Identity `json:"creator"`
	InputAsset AssetID  `json:"input_asset"`
}

func (k PoolKey) String() string {
	return fmt.Sprintf("%s/%s", k.Creator, k.InputAsset)
}

// CustodyRefs names the external custody accounts a pool settles through.
type CustodyRefs struct {
	InputReserve   Identity `json:"input_reserve"`
	OutputReserve  Identity `json:"output_reserve"`
	ShareMint      Identity `json:"share_mint"`
	InputFeeVault  Identity `json:"input_fee_vault"`
	OutputFeeVault Identity `json:"output_fee_vault"`
}

// Reserve returns the reserve account holding asset index i.
func (c CustodyRefs) Reserve(i int) Identity {
	if i == InputIndex {
		return c.InputReserve
	}
	return c.OutputReserve
}

// FeeVault returns the fee account for asset index i.
func (c CustodyRefs) FeeVault(i int) Identity {
	if i == InputIndex {
		return c.InputFeeVault
	}
	return c.OutputFeeVault
}

type PoolAccount struct {
	AccountType AccountType `json:"account_type"`
	Version     uint8       `json:"version"`

	Creator     Identity `json:"creator"`
	InputAsset  AssetID  `json:"input_asset"`
	OutputAsset AssetID  `json:"output_asset"`
	Decimals    [2]uint8 `json:"decimals"`

	StartTime    int64     `json:"start_time"` // unix seconds
	EndTime      int64     `json:"end_time"`   // unix seconds, > StartTime
	StartWeights [2]uint64 `json:"start_weights"`
	EndWeights   [2]uint64 `json:"end_weights"`

	Balances    [2]math.Int           `json:"balances"` // base units, never negative
	TotalShares math.Int              `json:"total_shares"`
	Shares      map[Identity]math.Int `json:"shares"`
	Invariant   math.Int              `json:"invariant"` // last committed V, 18 decimals

	IsSolDenominated bool `json:"is_sol_denominated"`
	IsVesting        bool `json:"is_vesting"`
	IsBuyOnly        bool `json:"is_buy_only"`
	SwapEnabled      bool `json:"swap_enabled"`
	Seeded           bool `json:"seeded"`

	Custody CustodyRefs `json:"custody"`
}

// Key returns the arena key of the pool.
func (p *PoolAccount) Key() PoolKey {
	return PoolKey{Creator: p.Creator, InputAsset: p.InputAsset}
}

// Assets returns the (input, output) asset pair.
func (p *PoolAccount) Assets() [2]AssetID {
	return [2]AssetID{p.InputAsset, p.OutputAsset}
}

// AssetIndex returns the index of asset in the pool, or -1.
func (p *PoolAccount) AssetIndex(asset AssetID) int {
	switch asset {
	case p.InputAsset:
		return InputIndex
	case p.OutputAsset:
		return OutputIndex
	default:
		return -1
	}
}

// ShareBalance returns the shares held by holder (zero if none).
func (p *PoolAccount) ShareBalance(holder Identity) math.Int {
	if s, ok := p.Shares[holder]; ok {
		return s
	}
	return math.ZeroInt()
}

// IsDrained reports whether every reserve and the share supply reached zero.
func (p *PoolAccount) IsDrained() bool {
	return p.Seeded && p.TotalShares.IsZero() && p.Balances[0].IsZero() && p.Balances[1].IsZero()
}

// Clone returns a deep copy that can be mutated without touching p.
func (p *PoolAccount) Clone() *PoolAccount {
	if p == nil {
		return nil
	}
	c := *p
	c.Shares = make(map[Identity]math.Int, len(p.Shares))
	for holder, amount := range p.Shares {
		c.Shares[holder] = amount
	}
	return &c
}

// WeightsNormalized reports whether w is a pair of positive weights summing to normalization.
// The sum is checked by subtraction so that weights near the uint64 limit cannot wrap into it.
func WeightsNormalized(w [2]uint64, normalization uint64) bool {
	return w[0] != 0 && w[0] < normalization && w[1] == normalization-w[0]
}
