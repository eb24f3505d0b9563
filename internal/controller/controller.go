// Package controller is the pool state machine. It owns the master account, the arena of
// pools and the fee ledger, and is the only place any of them is mutated.
//
// Every operation follows the same path: stage copies of the accounts it touches, validate
// phase and authority, run the ledger and fee bookkeeping on the copies, settle the resulting
// transfers with the custodian, then publish the copies. A failure at any step discards the
// copies, so committed state never reflects a partial operation.
package controller

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/lbp/internal/config"
	"github.com/elys-network/lbp/internal/fees"
	"github.com/elys-network/lbp/internal/logger"
	"github.com/elys-network/lbp/internal/metrics"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/vault"
)

// Clock returns the current time. Tests replace it to move through a pool's window.
type Clock func() time.Time

// Commit is what a Listener receives after an operation is published. Accounts are copies.
type Commit struct {
	Receipt types.Receipt
	Master  *types.MasterAccount
	Pool    *types.PoolAccount
	Fees    *fees.Ledger
}

// Listener observes committed operations, e.g. to journal them.
type Listener interface {
	OnCommit(ctx context.Context, commit Commit)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, commit Commit)

func (f ListenerFunc) OnCommit(ctx context.Context, commit Commit) { f(ctx, commit) }

// Config holds the dependencies of a Controller.
type Config struct {
	Params    config.EngineParameters
	Custodian vault.Custodian
	Clock     Clock
}

type Controller struct {
	mu sync.RWMutex

	params    config.EngineParameters
	custodian vault.Custodian
	now       Clock
	logger    zerolog.Logger

	master *types.MasterAccount
	pools  map[types.PoolKey]*types.PoolAccount
	fees   *fees.Ledger

	listeners []Listener
}

// New creates a controller with an empty arena and no master account.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("controller configuration validation failed: %w", err)
	}
	if cfg.Custodian == nil {
		return nil, fmt.Errorf("%w: custodian cannot be nil", types.ErrInvalidParams)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	c := &Controller{
		params:    cfg.Params,
		custodian: cfg.Custodian,
		now:       cfg.Clock,
		logger:    logger.GetForComponent("controller"),
		pools:     make(map[types.PoolKey]*types.PoolAccount),
		fees:      fees.NewLedger(),
	}

	c.logger.Info().
		Str("tradingWindow", string(c.params.TradingWindow)).
		Str("joinMode", string(c.params.JoinMode)).
		Uint64("weightNormalization", c.params.WeightNormalization).
		Msg("Pool controller created")

	return c, nil
}

// Subscribe registers a listener for committed operations.
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Quiesce runs fn while no operation can commit. Listeners use it to read their own state
// and the custodian at the same commit point.
func (c *Controller) Quiesce(fn func()) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn()
}

// Params returns the engine parameters.
func (c *Controller) Params() config.EngineParameters {
	return c.params
}

// Restore replaces the controller state with previously committed accounts.
func (c *Controller) Restore(master *types.MasterAccount, pools []*types.PoolAccount, feeLedger *fees.Ledger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.master = master.Clone()
	c.pools = make(map[types.PoolKey]*types.PoolAccount, len(pools))
	for _, p := range pools {
		c.pools[p.Key()] = p.Clone()
	}
	if feeLedger != nil {
		c.fees = feeLedger.Clone()
	} else {
		c.fees = fees.NewLedger()
	}

	c.logger.Info().Int("pools", len(pools)).Bool("master", master != nil).Msg("Controller state restored")
}

// txn is the staged state of one operation.
type txn struct {
	now       int64
	master    *types.MasterAccount
	pool      *types.PoolAccount
	fees      *fees.Ledger
	transfers []vault.Transfer
}

// move queues a custody transfer. Zero amounts are dropped.
func (t *txn) move(asset types.AssetID, from, to types.Identity, amount math.Int) {
	if amount.IsNil() || !amount.IsPositive() {
		return
	}
	t.transfers = append(t.transfers, vault.Transfer{Asset: asset, From: from, To: to, Amount: amount})
}

// execute runs op against staged copies and publishes them only if op and settlement succeed.
// key selects the pool to stage; nil for master and fee operations.
func (c *Controller) execute(ctx context.Context, op types.OperationType, caller types.Identity, key *types.PoolKey, fn func(tx *txn) (types.Receipt, error)) (types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	receipt, tx, err := c.stageAndRun(key, fn)
	if err == nil && len(tx.transfers) > 0 {
		if settleErr := c.custodian.Settle(ctx, tx.transfers); settleErr != nil {
			err = fmt.Errorf("custody settlement failed: %w", settleErr)
		}
	}
	metrics.ObserveOperation(op, err)
	if err != nil {
		ev := c.logger.Warn().Err(err).Str("operation", string(op)).Str("caller", string(caller))
		if key != nil {
			ev = ev.Str("pool", key.String())
		}
		ev.Msg("Operation rejected")
		return types.Receipt{}, err
	}

	// Publish.
	c.master = tx.master
	c.fees = tx.fees
	if tx.pool != nil {
		c.pools[tx.pool.Key()] = tx.pool
	}

	receipt.ID = uuid.NewString()
	receipt.Operation = op
	receipt.Caller = caller
	receipt.Timestamp = time.Unix(tx.now, 0).UTC()
	if tx.pool != nil {
		k := tx.pool.Key()
		receipt.Pool = &k
		receipt.Balances = tx.pool.Balances
		receipt.TotalShares = tx.pool.TotalShares
		receipt.Invariant = tx.pool.Invariant
		if weights, err := c.weightsAt(tx.pool, tx.now); err == nil {
			metrics.ObservePool(tx.pool, weights)
		}
	}
	metrics.ObserveFees(tx.fees.Snapshot())

	c.logger.Info().
		Str("receipt", receipt.ID).
		Str("operation", string(op)).
		Str("caller", string(caller)).
		Int("transfers", len(tx.transfers)).
		Msg("Operation committed")

	commit := Commit{Receipt: receipt, Master: tx.master.Clone(), Pool: tx.pool.Clone(), Fees: tx.fees.Clone()}
	for _, l := range c.listeners {
		l.OnCommit(ctx, commit)
	}
	return receipt, nil
}

func (c *Controller) stageAndRun(key *types.PoolKey, fn func(tx *txn) (types.Receipt, error)) (types.Receipt, *txn, error) {
	tx := &txn{
		now:    c.now().Unix(),
		master: c.master.Clone(),
		fees:   c.fees.Clone(),
	}
	if key != nil {
		pool, ok := c.pools[*key]
		if !ok {
			return types.Receipt{}, tx, fmt.Errorf("%w: %s", types.ErrPoolNotFound, key)
		}
		tx.pool = pool.Clone()
	}
	receipt, err := fn(tx)
	return receipt, tx, err
}

// Queries. Every query returns copies.

// Master returns the master account.
func (c *Controller) Master() (*types.MasterAccount, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.master == nil {
		return nil, types.ErrMasterNotInitialized
	}
	return c.master.Clone(), nil
}

// Pool returns the pool stored under key.
func (c *Controller) Pool(key types.PoolKey) (*types.PoolAccount, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pools[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrPoolNotFound, key)
	}
	return p.Clone(), nil
}

// Pools returns every pool ordered by key.
func (c *Controller) Pools() []*types.PoolAccount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*types.PoolAccount, 0, len(c.pools))
	for _, p := range c.pools {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().String() < out[j].Key().String() })
	return out
}

// Fees returns the fee ledger.
func (c *Controller) Fees() *fees.Ledger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fees.Clone()
}

// Now returns the controller clock as unix seconds.
func (c *Controller) Now() int64 {
	return c.now().Unix()
}
