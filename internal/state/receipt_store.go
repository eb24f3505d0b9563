// ./internal/state/receipt_store.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/elys-network/lbp/internal/types"
)

// SaveReceipt journals a committed operation.
func SaveReceipt(ctx context.Context, receipt types.Receipt) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	receiptJSON, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	var poolKey *string
	if receipt.Pool != nil {
		k := receipt.Pool.String()
		poolKey = &k
	}

	query := `
		INSERT INTO lbp_receipts (
			receipt_id, committed_at, operation, pool_key, caller, assets, receipt
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (receipt_id) DO NOTHING;
	`
	_, err = DB.ExecContext(ctx, query,
		receipt.ID, receipt.Timestamp, string(receipt.Operation), poolKey, string(receipt.Caller),
		pq.Array(ReceiptAssets(receipt)), receiptJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save receipt %s: %w", receipt.ID, err)
	}

	log.Debug().
		Str("receipt_id", receipt.ID).
		Str("operation", string(receipt.Operation)).
		Msg("Receipt journaled")
	return nil
}

// GetRecentReceipts returns the latest receipts, newest first. An empty poolKey selects all pools.
func GetRecentReceipts(ctx context.Context, poolKey string, limit int) ([]types.Receipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT receipt FROM lbp_receipts
		WHERE ($1 = '' OR pool_key = $1)
		ORDER BY committed_at DESC
		LIMIT $2;`
	rows, err := DB.QueryContext(ctx, query, poolKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []types.Receipt
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		var r types.Receipt
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipt rows: %w", err)
	}
	return receipts, nil
}

// ReceiptAssets returns the sorted set of assets a receipt moved.
func ReceiptAssets(receipt types.Receipt) []string {
	seen := make(map[types.AssetID]struct{})
	for asset := range receipt.AmountsIn {
		seen[asset] = struct{}{}
	}
	for asset := range receipt.AmountsOut {
		seen[asset] = struct{}{}
	}
	for asset := range receipt.Fees {
		seen[asset] = struct{}{}
	}
	assets := make([]string, 0, len(seen))
	for asset := range seen {
		assets = append(assets, string(asset))
	}
	sort.Strings(assets)
	return assets
}
