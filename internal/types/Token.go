/*

Identities and asset metadata used across the engine.

*/

package types

import "fmt"

// Identity names an account holder: a pool creator, admin, depositor or fee collector.
type Identity string

// AssetID names a fungible asset held in pool reserves.
type AssetID string

// Asset carries the metadata the engine needs to scale raw amounts into 18-decimal math.
type Asset struct {
	ID       AssetID `json:"id"`       // e.g., "usdc"
	Decimals uint8   `json:"decimals"` // e.g., 6
}

// MaxAssetDecimals is the precision of the fixed-point math; assets with more decimals cannot be upscaled.
const MaxAssetDecimals = 18

// Validate checks the asset can be represented by the fixed-point math.
func (a Asset) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: asset id is empty", ErrInvalidParams)
	}
	if a.Decimals > MaxAssetDecimals {
		return fmt.Errorf("%w: asset %s has %d decimals (max %d)", ErrInvalidParams, a.ID, a.Decimals, MaxAssetDecimals)
	}
	return nil
}
