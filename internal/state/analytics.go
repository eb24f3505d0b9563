package state

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// EngineSummary represents high-level journal statistics
type EngineSummary struct {
	Accounts          int            `json:"accounts"`
	Receipts          int            `json:"receipts"`
	OperationCounts   map[string]int `json:"operation_counts"`
	CurrentCheckpoint int            `json:"current_checkpoint"`
	LastCommitted     *time.Time     `json:"last_committed,omitempty"`
	LastCheckpoint    time.Time      `json:"last_checkpoint"`
}

// GetEngineSummary aggregates the journal and checkpoint tables.
func GetEngineSummary(ctx context.Context) (*EngineSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	summary := &EngineSummary{OperationCounts: make(map[string]int)}

	if err := DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM lbp_accounts;`).Scan(&summary.Accounts); err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	rows, err := DB.QueryContext(ctx, `SELECT operation, COUNT(*) FROM lbp_receipts GROUP BY operation;`)
	if err != nil {
		return nil, fmt.Errorf("failed to count receipts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var op string
		var count int
		if err := rows.Scan(&op, &count); err != nil {
			return nil, fmt.Errorf("failed to scan receipt count: %w", err)
		}
		summary.OperationCounts[op] = count
		summary.Receipts += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipt counts: %w", err)
	}

	if summary.Receipts > 0 {
		var last time.Time
		if err := DB.QueryRowContext(ctx, `SELECT MAX(committed_at) FROM lbp_receipts;`).Scan(&last); err != nil {
			return nil, fmt.Errorf("failed to get last receipt time: %w", err)
		}
		summary.LastCommitted = &last
	}

	err = DB.QueryRowContext(ctx, `SELECT current_checkpoint, updated_at FROM lbp_checkpoints WHERE id = 1;`).
		Scan(&summary.CurrentCheckpoint, &summary.LastCheckpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	log.Debug().Int("receipts", summary.Receipts).Int("checkpoint", summary.CurrentCheckpoint).Msg("Built engine summary")
	return summary, nil
}
