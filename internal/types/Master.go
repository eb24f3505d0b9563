package types

import (
	"cosmossdk.io/math"
)

// AccountType is the discriminant stored alongside every persisted account.
type AccountType uint8

const (
	AccountTypeUnknown   AccountType = 0
	AccountTypeMaster    AccountType = 1
	AccountTypePool      AccountType = 2
	AccountTypeFeeLedger AccountType = 3
)

func (t AccountType) String() string {
	switch t {
	case AccountTypeMaster:
		return "master"
	case AccountTypePool:
		return "pool"
	case AccountTypeFeeLedger:
		return "fee_ledger"
	default:
		return "unknown"
	}
}

// MasterAccountVersion is bumped whenever the persisted layout of MasterAccount changes.
const MasterAccountVersion = 1

// BpsDenominator is the basis-point scale of SwapFeeBps.
const BpsDenominator = 10_000

// MasterAccount is the singleton protocol configuration. Only Admin may change it.
type MasterAccount struct {
	AccountType  AccountType `json:"account_type"`
	Version      uint8       `json:"version"`
	Admin        Identity    `json:"admin"`
	FeeCollector Identity    `json:"fee_collector"`
	SwapFeeBps   uint16      `json:"swap_fee_bps"` // proportional fee on the input leg
	FlatFee      math.Int    `json:"flat_fee"`     // fixed fee, in base units of the asset paid in
}

// NewMasterAccount creates the master record with the admin also acting as fee collector.
func NewMasterAccount(admin Identity) *MasterAccount {
	return &MasterAccount{
		AccountType:  AccountTypeMaster,
		Version:      MasterAccountVersion,
		Admin:        admin,
		FeeCollector: admin,
		FlatFee:      math.ZeroInt(),
	}
}

// Clone returns an independent copy.
func (m *MasterAccount) Clone() *MasterAccount {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}
