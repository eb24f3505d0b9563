/*

This file contains the default engine parameters of the LBP controller.

*/

package config

import (
	"fmt"
	"time"

	"github.com/elys-network/lbp/internal/types"
)

// DefaultCheckpointInterval is how often the daemon persists state when LBP_CHECKPOINT_INTERVAL is unset.
const DefaultCheckpointInterval = time.Minute

// EngineParameters are the policy choices of the pool controller.
type EngineParameters struct {
	// TradingWindow restricts swaps to [StartTime, EndTime] when set to restricted.
	TradingWindow types.TradingWindowPolicy `json:"trading_window"`
	// JoinMode prices single-asset joins.
	JoinMode types.JoinMode `json:"join_mode"`
	// WeightNormalization is the sum every weight pair adds up to.
	WeightNormalization uint64 `json:"weight_normalization"`
}

// DefaultEngineParameters confines trading to the bootstrap window, prices joins like a
// swap followed by a deposit and expresses weights as percentages.
var DefaultEngineParameters = EngineParameters{
	TradingWindow:       types.TradingWindowRestricted,
	JoinMode:            types.JoinSingleSided,
	WeightNormalization: 100,
}

// Validate checks every field holds a known value.
func (p EngineParameters) Validate() error {
	switch p.TradingWindow {
	case types.TradingWindowRestricted, types.TradingWindowUnrestricted:
	default:
		return fmt.Errorf("%w: trading window policy %q", types.ErrInvalidParams, p.TradingWindow)
	}
	switch p.JoinMode {
	case types.JoinSingleSided, types.JoinProportional:
	default:
		return fmt.Errorf("%w: join mode %q", types.ErrInvalidParams, p.JoinMode)
	}
	if p.WeightNormalization < 2 {
		return fmt.Errorf("%w: weight normalization must be at least 2", types.ErrInvalidParams)
	}
	return nil
}

func loadEngineParameters() (EngineParameters, error) {
	params := DefaultEngineParameters
	params.TradingWindow = types.TradingWindowPolicy(getEnvOrDefault("LBP_TRADING_WINDOW", string(params.TradingWindow)))
	params.JoinMode = types.JoinMode(getEnvOrDefault("LBP_JOIN_MODE", string(params.JoinMode)))

	n, err := getEnvAsUint64OrDefault("LBP_WEIGHT_NORMALIZATION", params.WeightNormalization)
	if err != nil {
		return params, err
	}
	params.WeightNormalization = n

	return params, params.Validate()
}
