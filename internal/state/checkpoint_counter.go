/*

This file manages the persistent checkpoint counter of the daemon together with the
custody snapshot taken at each checkpoint. Both live in a single row so they advance together.

*/

package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/elys-network/lbp/internal/vault"
)

// GetCurrentCheckpoint retrieves the current checkpoint number from the database
func GetCurrentCheckpoint(ctx context.Context) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `SELECT current_checkpoint FROM lbp_checkpoints WHERE id = 1;`

	var current int
	err := DB.QueryRowContext(ctx, query).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			// This should not happen due to the INSERT in EnsureSchema
			log.Warn().Msg("No checkpoint row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current checkpoint: %w", err)
	}

	log.Debug().Int("currentCheckpoint", current).Msg("Retrieved current checkpoint")
	return current, nil
}

// advanceCheckpoint stores the custody snapshot, increments the counter and returns the new
// value. It runs inside the transaction that saves the accounts of the same checkpoint.
func advanceCheckpoint(ctx context.Context, tx *sql.Tx, custody []vault.Holding) (int, error) {
	if custody == nil {
		custody = []vault.Holding{}
	}

	custodyJSON, err := json.Marshal(custody)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal custody snapshot: %w", err)
	}

	updateQuery := `
		UPDATE lbp_checkpoints
		SET current_checkpoint = current_checkpoint + 1,
		    custody = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_checkpoint;`

	var next int
	if err := tx.QueryRowContext(ctx, updateQuery, custodyJSON).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	log.Info().Int("checkpoint", next).Int("holdings", len(custody)).Msg("Saved checkpoint")
	return next, nil
}

// LoadCustody returns the custody snapshot of the latest checkpoint
func LoadCustody(ctx context.Context) ([]vault.Holding, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var payload []byte
	err := DB.QueryRowContext(ctx, `SELECT custody FROM lbp_checkpoints WHERE id = 1;`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load custody snapshot: %w", err)
	}

	var holdings []vault.Holding
	if err := json.Unmarshal(payload, &holdings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal custody snapshot: %w", err)
	}
	return holdings, nil
}

// ResetCheckpoint resets the checkpoint counter to a specific value (for testing/maintenance)
func ResetCheckpoint(ctx context.Context, checkpoint int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if checkpoint < 0 {
		return fmt.Errorf("checkpoint cannot be negative: %d", checkpoint)
	}

	updateQuery := `
		UPDATE lbp_checkpoints
		SET current_checkpoint = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`

	result, err := DB.ExecContext(ctx, updateQuery, checkpoint)
	if err != nil {
		return fmt.Errorf("failed to reset checkpoint to %d: %w", checkpoint, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when resetting checkpoint")
	}

	log.Warn().Int("checkpoint", checkpoint).Msg("Reset checkpoint counter")
	return nil
}
