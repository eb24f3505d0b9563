/*

Known assets and their decimals, used to fill in pool creation requests and CLI inputs
that name an asset without its precision.

LBP_ASSETS is a comma separated list of id:decimals pairs, e.g. "sol:9,usdc:6".

*/

package config

import (
	"errors"
	"strconv"
	"strings"

	"github.com/elys-network/lbp/internal/types"
)

var AssetDecimals = map[types.AssetID]uint8{}

// LoadAssetRegistry reads LBP_ASSETS into AssetDecimals. LoadConfig calls it; CLI commands that
// need only the registry call it directly.
func LoadAssetRegistry() error {
	registry, err := ParseAssetList(getEnvOrDefault("LBP_ASSETS", ""))
	if err != nil {
		return err
	}
	AssetDecimals = registry
	return nil
}

// ParseAssetList parses "id:decimals" pairs.
func ParseAssetList(list string) (map[types.AssetID]uint8, error) {
	registry := make(map[types.AssetID]uint8)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, decStr, found := strings.Cut(entry, ":")
		if !found || id == "" {
			return nil, errors.New("asset entry " + entry + " must be id:decimals")
		}
		dec, err := strconv.ParseUint(decStr, 10, 8)
		if err != nil || dec > types.MaxAssetDecimals {
			return nil, errors.New("asset entry " + entry + " has invalid decimals")
		}
		registry[types.AssetID(id)] = uint8(dec)
	}
	return registry, nil
}

// LookupAsset returns the asset with its registered decimals.
func LookupAsset(id types.AssetID) (types.Asset, bool) {
	dec, ok := AssetDecimals[id]
	return types.Asset{ID: id, Decimals: dec}, ok
}
