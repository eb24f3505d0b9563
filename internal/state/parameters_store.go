// ./internal/state/parameters_store.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/elys-network/lbp/internal/config"
	"github.com/elys-network/lbp/internal/types"
)

// ErrNoActiveParameters is returned before any engine parameters were recorded.
var ErrNoActiveParameters = errors.New("no active engine parameters")

// SaveEngineParameters records params as the active engine parameters.
func SaveEngineParameters(ctx context.Context, params config.EngineParameters) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE lbp_engine_parameters SET is_active = FALSE WHERE is_active = TRUE;`); err != nil {
		return 0, fmt.Errorf("failed to deactivate existing engine parameters: %w", err)
	}

	stmt := `
		INSERT INTO lbp_engine_parameters (trading_window, join_mode, weight_normalization, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING params_id;`
	var paramsID int64
	err = tx.QueryRowContext(ctx, stmt,
		string(params.TradingWindow), string(params.JoinMode), int64(params.WeightNormalization),
	).Scan(&paramsID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert engine parameters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int64("params_id", paramsID).
		Str("tradingWindow", string(params.TradingWindow)).
		Str("joinMode", string(params.JoinMode)).
		Uint64("weightNormalization", params.WeightNormalization).
		Msg("Saved engine parameters")
	return paramsID, nil
}

// LoadActiveEngineParameters loads the most recently activated engine parameters.
func LoadActiveEngineParameters(ctx context.Context) (*config.EngineParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT trading_window, join_mode, weight_normalization
		FROM lbp_engine_parameters
		WHERE is_active = TRUE
		ORDER BY activated_at DESC
		LIMIT 1;`

	var window, mode string
	var normalization int64
	err := DB.QueryRowContext(ctx, query).Scan(&window, &mode, &normalization)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoActiveParameters
		}
		return nil, fmt.Errorf("failed to scan active engine parameters: %w", err)
	}

	p := &config.EngineParameters{
		TradingWindow:       types.TradingWindowPolicy(window),
		JoinMode:            types.JoinMode(mode),
		WeightNormalization: uint64(normalization),
	}
	log.Info().Str("tradingWindow", window).Str("joinMode", mode).Msg("Loaded active engine parameters")
	return p, nil
}

// CheckParameterCompatibility rejects a restart whose weight normalization differs from the one
// existing pools were created under. Policy changes are allowed and only reported.
func CheckParameterCompatibility(stored, current config.EngineParameters, pools int) (changed bool, err error) {
	if pools > 0 && stored.WeightNormalization != current.WeightNormalization {
		return true, fmt.Errorf("%w: weight normalization %d differs from %d used by %d existing pools",
			types.ErrInvalidParams, current.WeightNormalization, stored.WeightNormalization, pools)
	}
	return stored != current, nil
}
