package vault

import (
	"context"
	"errors"

	"cosmossdk.io/math"

	"github.com/elys-network/lbp/internal/types"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds in custody account")
	ErrInvalidTransfer   = errors.New("invalid transfer")
)

// Transfer moves Amount of Asset between two custody accounts.
type Transfer struct {
	Asset  types.AssetID  `json:"asset"`
	From   types.Identity `json:"from"`
	To     types.Identity `json:"to"`
	Amount math.Int       `json:"amount"`
}

// Custodian defines the interface to the external custody system holding the real tokens.
// The engine decides what moves; the custodian moves it. Implementations must apply a batch
// atomically: either every transfer settles or none does.
type Custodian interface {
	// Settle applies every transfer of the batch, or none of them.
	Settle(ctx context.Context, transfers []Transfer) error

	// Balance returns the amount of asset held by account.
	Balance(ctx context.Context, account types.Identity, asset types.AssetID) (math.Int, error)

	// Close cleans up any resources used by the custodian.
	Close() error
}

// Naming of the custody accounts the engine settles through.

func ReserveAccount(key types.PoolKey, asset types.AssetID) types.Identity {
	return types.Identity("pool/" + key.String() + "/reserve/" + string(asset))
}

func ShareMintAccount(key types.PoolKey) types.Identity {
	return types.Identity("pool/" + key.String() + "/shares")
}

func FeeVaultAccount(asset types.AssetID) types.Identity {
	return types.Identity("master/fees/" + string(asset))
}

// CustodyFor returns the custody references of a pool.
func CustodyFor(key types.PoolKey, output types.AssetID) types.CustodyRefs {
	return types.CustodyRefs{
		InputReserve:   ReserveAccount(key, key.InputAsset),
		OutputReserve:  ReserveAccount(key, output),
		ShareMint:      ShareMintAccount(key),
		InputFeeVault:  FeeVaultAccount(key.InputAsset),
		OutputFeeVault: FeeVaultAccount(output),
	}
}
