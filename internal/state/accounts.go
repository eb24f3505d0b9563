/*

This file stores committed engine accounts. Each row holds one AccountRecord: a tagged union
whose account_type discriminant selects the variant, decoded once at load.

*/

package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/elys-network/lbp/internal/fees"
	"github.com/elys-network/lbp/internal/logger"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/vault"
)

// FeeLedgerVersion is bumped whenever the persisted layout of the fee ledger changes.
const FeeLedgerVersion = 1

const (
	masterAccountKey = "master"
	feesAccountKey   = "fees"
)

// AccountRecord is the persisted form of an engine account. Exactly one variant is set,
// the one named by AccountType.
type AccountRecord struct {
	AccountType types.AccountType    `json:"account_type"`
	Version     uint8                `json:"version"`
	Master      *types.MasterAccount `json:"master,omitempty"`
	Pool        *types.PoolAccount   `json:"pool,omitempty"`
	Fees        *fees.Ledger         `json:"fees,omitempty"`
}

func MasterRecord(m *types.MasterAccount) AccountRecord {
	return AccountRecord{AccountType: types.AccountTypeMaster, Version: m.Version, Master: m.Clone()}
}

func PoolRecord(p *types.PoolAccount) AccountRecord {
	return AccountRecord{AccountType: types.AccountTypePool, Version: p.Version, Pool: p.Clone()}
}

func FeesRecord(l *fees.Ledger) AccountRecord {
	return AccountRecord{AccountType: types.AccountTypeFeeLedger, Version: FeeLedgerVersion, Fees: l.Clone()}
}

// Key returns the primary key of the record.
func (r AccountRecord) Key() string {
	switch r.AccountType {
	case types.AccountTypeMaster:
		return masterAccountKey
	case types.AccountTypeFeeLedger:
		return feesAccountKey
	case types.AccountTypePool:
		if r.Pool != nil {
			return "pool/" + r.Pool.Key().String()
		}
	}
	return ""
}

// Validate checks the discriminant names a known variant and that only that variant is set.
func (r AccountRecord) Validate() error {
	set := 0
	for _, present := range []bool{r.Master != nil, r.Pool != nil, r.Fees != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: %s record carries %d variants", types.ErrInvalidParams, r.AccountType, set)
	}

	switch r.AccountType {
	case types.AccountTypeMaster:
		if r.Master == nil || r.Master.AccountType != types.AccountTypeMaster {
			return fmt.Errorf("%w: master record without a master account", types.ErrInvalidParams)
		}
		if r.Master.Version > types.MasterAccountVersion {
			return fmt.Errorf("%w: master account version %d is newer than %d", types.ErrInvalidParams, r.Master.Version, types.MasterAccountVersion)
		}
	case types.AccountTypePool:
		if r.Pool == nil || r.Pool.AccountType != types.AccountTypePool {
			return fmt.Errorf("%w: pool record without a pool account", types.ErrInvalidParams)
		}
		if r.Pool.Version > types.PoolAccountVersion {
			return fmt.Errorf("%w: pool account version %d is newer than %d", types.ErrInvalidParams, r.Pool.Version, types.PoolAccountVersion)
		}
	case types.AccountTypeFeeLedger:
		if r.Fees == nil || r.Fees.AccountType != types.AccountTypeFeeLedger {
			return fmt.Errorf("%w: fee record without a fee ledger", types.ErrInvalidParams)
		}
	default:
		return fmt.Errorf("%w: %d", types.ErrUnknownAccountType, r.AccountType)
	}
	return nil
}

// EncodeAccount serializes a record for the payload column.
func EncodeAccount(r AccountRecord) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s account: %w", r.AccountType, err)
	}
	return payload, nil
}

// DecodeAccount parses a payload and dispatches on its discriminant.
func DecodeAccount(payload []byte) (AccountRecord, error) {
	var r AccountRecord
	if err := json.Unmarshal(payload, &r); err != nil {
		return AccountRecord{}, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	if err := r.Validate(); err != nil {
		return AccountRecord{}, err
	}
	if r.Fees != nil && r.Fees.Balances == nil {
		r.Fees.Balances = fees.NewLedger().Balances
	}
	return r, nil
}

// Snapshot is the full committed state assembled from account records.
type Snapshot struct {
	Master *types.MasterAccount
	Pools  []*types.PoolAccount
	Fees   *fees.Ledger
}

// Assemble groups decoded records into a Snapshot. A missing fee ledger yields an empty one.
func Assemble(records []AccountRecord) (Snapshot, error) {
	var snap Snapshot
	for _, r := range records {
		switch r.AccountType {
		case types.AccountTypeMaster:
			if snap.Master != nil {
				return Snapshot{}, fmt.Errorf("%w: more than one master account", types.ErrInvalidParams)
			}
			snap.Master = r.Master
		case types.AccountTypePool:
			snap.Pools = append(snap.Pools, r.Pool)
		case types.AccountTypeFeeLedger:
			snap.Fees = r.Fees
		default:
			return Snapshot{}, fmt.Errorf("%w: %d", types.ErrUnknownAccountType, r.AccountType)
		}
	}
	if snap.Fees == nil {
		snap.Fees = fees.NewLedger()
	}
	sort.Slice(snap.Pools, func(i, j int) bool {
		return snap.Pools[i].Key().String() < snap.Pools[j].Key().String()
	})
	return snap, nil
}

// ErrAccountNotFound is returned by Get for a key no checkpoint has written.
var ErrAccountNotFound = errors.New("account not found")

// AccountStore reads and writes account records, keeping recently used ones decoded in an LRU cache.
type AccountStore struct {
	db     *sql.DB
	cache  *lru.Cache[string, AccountRecord]
	logger zerolog.Logger
}

func NewAccountStore(db *sql.DB, cacheSize int) (*AccountStore, error) {
	cache, err := lru.New[string, AccountRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create account cache: %w", err)
	}
	return &AccountStore{db: db, cache: cache, logger: logger.GetForComponent("account_store")}, nil
}

// Checkpoint upserts records and advances the checkpoint row with the custody snapshot in one
// transaction, so a restore never sees accounts and custody from different commits. It returns
// the new checkpoint number and refreshes the cache once the transaction commits.
func (s *AccountStore) Checkpoint(ctx context.Context, records []AccountRecord, custody []vault.Holding) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	payloads := make([][]byte, len(records))
	for i, r := range records {
		payload, err := EncodeAccount(r)
		if err != nil {
			return 0, err
		}
		payloads[i] = payload
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin checkpoint transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO lbp_accounts (account_key, account_type, version, payload, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (account_key) DO UPDATE
		SET account_type = EXCLUDED.account_type,
			version = EXCLUDED.version,
			payload = EXCLUDED.payload,
			updated_at = CURRENT_TIMESTAMP;`
	for i, r := range records {
		if _, err := tx.ExecContext(ctx, query, r.Key(), int(r.AccountType), int(r.Version), payloads[i]); err != nil {
			return 0, fmt.Errorf("failed to save account %s: %w", r.Key(), err)
		}
	}
	checkpoint, err := advanceCheckpoint(ctx, tx, custody)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit checkpoint transaction: %w", err)
	}

	for _, r := range records {
		s.remember(r)
	}
	s.logger.Debug().Int("checkpoint", checkpoint).Int("accounts", len(records)).Msg("Saved accounts")
	return checkpoint, nil
}

// Load reads and decodes every stored account.
func (s *AccountStore) Load(ctx context.Context) (Snapshot, error) {
	if s.db == nil {
		return Snapshot{}, fmt.Errorf("database not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT account_key, payload FROM lbp_accounts ORDER BY account_key;`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var records []AccountRecord
	for rows.Next() {
		var key string
		var payload []byte
		if err := rows.Scan(&key, &payload); err != nil {
			return Snapshot{}, fmt.Errorf("failed to scan account row: %w", err)
		}
		r, err := DecodeAccount(payload)
		if err != nil {
			return Snapshot{}, fmt.Errorf("account %s: %w", key, err)
		}
		s.remember(r)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("error iterating account rows: %w", err)
	}

	s.logger.Info().Int("accounts", len(records)).Msg("Loaded accounts")
	return Assemble(records)
}

// Get returns the record last checkpointed under key, from the cache when possible.
func (s *AccountStore) Get(ctx context.Context, key string) (AccountRecord, error) {
	if r, ok := s.cache.Get(key); ok {
		return r, nil
	}
	if s.db == nil {
		return AccountRecord{}, fmt.Errorf("database not initialized")
	}

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM lbp_accounts WHERE account_key = $1;`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return AccountRecord{}, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	if err != nil {
		return AccountRecord{}, fmt.Errorf("failed to get account %s: %w", key, err)
	}
	r, err := DecodeAccount(payload)
	if err != nil {
		return AccountRecord{}, fmt.Errorf("account %s: %w", key, err)
	}
	s.remember(r)
	return r, nil
}

// Cached reports how many decoded records the cache holds.
func (s *AccountStore) Cached() int {
	return s.cache.Len()
}

func (s *AccountStore) remember(r AccountRecord) {
	s.cache.Add(r.Key(), r)
}
