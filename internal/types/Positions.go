/*

This file contains the lifecycle, policy and receipt types shared by the ledger, the controller and the API.

*/

package types

import (
	"time"

	"cosmossdk.io/math"
)

// Phase is the lifecycle state of a pool, always derived from the seeded flag and timestamps.
type Phase string

const (
	PhaseUninitialized Phase = "UNINITIALIZED"
	PhaseSeeded        Phase = "SEEDED"
	PhaseTrading       Phase = "TRADING"
	PhaseClosed        Phase = "CLOSED"
)

// TradingWindowPolicy decides whether swaps are confined to [StartTime, EndTime].
type TradingWindowPolicy string

const (
	TradingWindowRestricted   TradingWindowPolicy = "restricted"
	TradingWindowUnrestricted TradingWindowPolicy = "unrestricted"
)

// JoinMode selects the pricing of a single-asset join.
type JoinMode string

const (
	// JoinSingleSided mints shares for the invariant growth of a one-sided deposit,
	// charging the swap fee on the part that behaves like a swap.
	JoinSingleSided JoinMode = "single"
	// JoinProportional pulls the other asset pro rata so the deposit keeps pool ratios; no fee.
	JoinProportional JoinMode = "proportional"
)

// SwapSide is the direction of a swap relative to the pool's input asset.
type SwapSide string

const (
	SwapBuy  SwapSide = "BUY"  // pay input asset, receive output asset
	SwapSell SwapSide = "SELL" // pay output asset, receive input asset
)

// Indices returns the (in, out) asset indices for the side.
func (s SwapSide) Indices() (int, int) {
	if s == SwapSell {
		return OutputIndex, InputIndex
	}
	return InputIndex, OutputIndex
}

// OperationType labels receipts, metrics and journal rows.
type OperationType string

const (
	OpInitializeMaster OperationType = "INITIALIZE_MASTER"
	OpSetFees          OperationType = "SET_FEE_PERCENTAGE"
	OpSetAdmin         OperationType = "SET_ADMIN"
	OpSetFeeCollector  OperationType = "SET_FEE_COLLECTOR"
	OpInitializePool   OperationType = "INITIALIZE_POOL"
	OpSeedPool         OperationType = "SEED_POOL"
	OpJoinPool         OperationType = "JOIN_POOL"
	OpSwap             OperationType = "SWAP"
	OpRedeem           OperationType = "REDEEM_SHARES"
	OpCollectFees      OperationType = "COLLECT_FEES"
	OpPausePool        OperationType = "PAUSE_POOL"
	OpUnpausePool      OperationType = "UNPAUSE_POOL"
)

// Receipt is returned by every committed operation and journaled by the daemon.
type Receipt struct {
	ID        string        `json:"id"`
	Operation OperationType `json:"operation"`
	Caller    Identity      `json:"caller"`
	Pool      *PoolKey      `json:"pool,omitempty"`
	Timestamp time.Time     `json:"timestamp"`

	// Post-operation pool state
	Balances    [2]math.Int `json:"balances,omitempty"`
	TotalShares math.Int    `json:"total_shares,omitempty"`
	Invariant   math.Int    `json:"invariant,omitempty"`

	// Operation specific amounts, keyed by asset (shares are keyed by the pool's share mint)
	AmountsIn  map[AssetID]math.Int `json:"amounts_in,omitempty"`
	AmountsOut map[AssetID]math.Int `json:"amounts_out,omitempty"`
	Fees       map[AssetID]math.Int `json:"fees,omitempty"`
	SharesIn   math.Int             `json:"shares_in,omitempty"`
	SharesOut  math.Int             `json:"shares_out,omitempty"`

	Side    SwapSide `json:"side,omitempty"`
	Message string   `json:"message,omitempty"`
}

// InitializePoolParams are the creation arguments of a pool.
type InitializePoolParams struct {
	InputAsset       Asset     `json:"input_asset"`
	OutputAsset      Asset     `json:"output_asset"`
	StartTime        int64     `json:"start_time"`
	EndTime          int64     `json:"end_time"`
	StartWeights     [2]uint64 `json:"start_weights"`
	EndWeights       [2]uint64 `json:"end_weights"`
	IsSolDenominated bool      `json:"is_sol"`
	IsVesting        bool      `json:"is_vesting"`
	IsBuyOnly        bool      `json:"is_buy_only"`
}
