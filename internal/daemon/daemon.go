package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/lbp/internal/config"
	"github.com/elys-network/lbp/internal/controller"
	"github.com/elys-network/lbp/internal/health"
	"github.com/elys-network/lbp/internal/logger"
	"github.com/elys-network/lbp/internal/metrics"
	"github.com/elys-network/lbp/internal/state"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/vault"
)

// Daemon persists what the controller commits. It journals receipts as they arrive and, on
// every checkpoint cycle, saves the accounts touched since the previous cycle together with
// the custody snapshot in one transaction.
type Daemon struct {
	logger   zerolog.Logger
	ctrl     *controller.Controller
	accounts *state.AccountStore
	custody  *vault.MemoryVault
	health   *health.Server

	mu       sync.Mutex
	pending  map[string]state.AccountRecord
	receipts []types.Receipt
	wake     chan struct{}

	cycleCount int
}

// Config holds the dependencies of a Daemon.
type Config struct {
	Controller *controller.Controller
	Accounts   *state.AccountStore
	// Custody is checkpointed when the in-memory custodian is in use; nil otherwise.
	Custody *vault.MemoryVault
	// Health is flipped after every cycle; optional.
	Health *health.Server
}

// NewDaemon creates a daemon and subscribes it to the controller.
func NewDaemon(cfg Config) (*Daemon, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("daemon configuration validation failed: %w", err)
	}

	d := &Daemon{
		logger:   logger.GetForComponent("daemon"),
		ctrl:     cfg.Controller,
		accounts: cfg.Accounts,
		custody:  cfg.Custody,
		health:   cfg.Health,
		pending:  make(map[string]state.AccountRecord),
		wake:     make(chan struct{}, 1),
	}
	cfg.Controller.Subscribe(d)

	d.logger.Info().Bool("custodySnapshots", d.custody != nil).Msg("Daemon created")
	return d, nil
}

func validateConfig(cfg Config) error {
	if cfg.Controller == nil {
		return fmt.Errorf("controller cannot be nil")
	}
	if cfg.Accounts == nil {
		return fmt.Errorf("account store cannot be nil")
	}
	return nil
}

// OnCommit records the accounts of a committed operation and queues its receipt.
// It runs under the controller lock, so it never touches the database.
func (d *Daemon) OnCommit(_ context.Context, commit controller.Commit) {
	d.mu.Lock()
	if commit.Master != nil {
		d.markLocked(state.MasterRecord(commit.Master))
	}
	if commit.Pool != nil {
		d.markLocked(state.PoolRecord(commit.Pool))
	}
	if commit.Fees != nil {
		d.markLocked(state.FeesRecord(commit.Fees))
	}
	d.receipts = append(d.receipts, commit.Receipt)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Daemon) markLocked(r state.AccountRecord) {
	d.pending[r.Key()] = r
}

// Pending reports how many accounts and receipts wait to be persisted.
func (d *Daemon) Pending() (accounts, receipts int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending), len(d.receipts)
}

// Restore loads the last checkpoint into the custodian and the controller.
func (d *Daemon) Restore(ctx context.Context) error {
	checkpoint, err := state.GetCurrentCheckpoint(ctx)
	if err != nil {
		return err
	}
	d.logger.Info().Int("checkpoint", checkpoint).Msg("Restoring from checkpoint")

	if d.custody != nil {
		holdings, err := state.LoadCustody(ctx)
		if err != nil {
			return fmt.Errorf("failed to load custody snapshot: %w", err)
		}
		d.custody.Restore(holdings)
		d.logger.Info().Int("holdings", len(holdings)).Msg("Custody restored")
	}

	snap, err := d.accounts.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}
	d.ctrl.Restore(snap.Master, snap.Pools, snap.Fees)
	return nil
}

// ReconcileParameters compares the running engine parameters with those last recorded and
// records them when they changed. A weight normalization change is refused while pools exist.
func (d *Daemon) ReconcileParameters(ctx context.Context) error {
	current := d.ctrl.Params()
	stored, err := state.LoadActiveEngineParameters(ctx)
	if errors.Is(err, state.ErrNoActiveParameters) {
		_, err = state.SaveEngineParameters(ctx, current)
		return err
	}
	if err != nil {
		return err
	}

	changed, err := state.CheckParameterCompatibility(*stored, current, len(d.ctrl.Pools()))
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	d.logger.Warn().
		Str("tradingWindow", string(current.TradingWindow)).
		Str("joinMode", string(current.JoinMode)).
		Msg("Engine parameters changed since last start")
	_, err = state.SaveEngineParameters(ctx, current)
	return err
}

// Bootstrap creates the master account on first start, with the given fee schedule.
// It is a no-op when a master account was restored.
func Bootstrap(ctx context.Context, ctrl *controller.Controller, admin, collector types.Identity, swapFeeBps uint16, flatFee math.Int) error {
	if _, err := ctrl.Master(); err == nil {
		return nil
	}
	if _, err := ctrl.InitializeMaster(ctx, admin); err != nil {
		return err
	}
	if swapFeeBps > 0 || flatFee.IsPositive() {
		if _, err := ctrl.SetFeePercentage(ctx, admin, swapFeeBps, flatFee); err != nil {
			return err
		}
	}
	if collector != "" && collector != admin {
		if _, err := ctrl.SetFeeCollector(ctx, admin, collector); err != nil {
			return err
		}
	}
	log := logger.GetForComponent("daemon")
	log.Info().Str("admin", string(admin)).Msg("Master account bootstrapped")
	return nil
}

// BootstrapFromConfig runs Bootstrap with the values loaded by config.LoadConfig.
func BootstrapFromConfig(ctx context.Context, ctrl *controller.Controller) error {
	return Bootstrap(ctx, ctrl, config.Admin, config.FeeCollector, config.SwapFeeBps, config.FlatFee)
}

// RunLoop journals receipts as they arrive and runs a checkpoint cycle every interval.
// A final cycle runs on cancellation so nothing committed is left unsaved.
func (d *Daemon) RunLoop(ctx context.Context, interval time.Duration) {
	d.logger.Info().
		Dur("interval", interval).
		Msg("Starting daemon main loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("Daemon loop stopped due to context cancellation, running final checkpoint")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			d.RunCycle(shutdownCtx)
			cancel()
			return
		case <-d.wake:
			if err := d.FlushReceipts(ctx); err != nil {
				d.logger.Error().Err(err).Msg("Failed to journal receipts, will retry at next checkpoint")
			}
		case <-ticker.C:
			d.cycle(ctx)
		}
	}
}

func (d *Daemon) cycle(ctx context.Context) {
	d.cycleCount++
	d.logger.Info().Int("cycle", d.cycleCount).Msg("Initiating checkpoint cycle")
	d.RunCycle(ctx)
	d.logger.Info().Int("cycle", d.cycleCount).Msg("Checkpoint cycle completed")
}

// RunCycle journals queued receipts, saves dirty accounts and takes a checkpoint.
// Whatever fails stays queued for the next cycle.
func (d *Daemon) RunCycle(ctx context.Context) {
	cycleStartTime := time.Now()
	cycleLogger := d.logger.With().Str("cycle_id", uuid.New().String()).Logger()

	err := d.checkpoint(ctx, cycleLogger)
	metrics.CheckpointsTotal.WithLabelValues(metrics.ResultLabel(err)).Inc()
	if d.health != nil {
		d.health.SetServing(err == nil)
	}
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Checkpoint cycle failed")
		return
	}
	cycleLogger.Info().Dur("duration", time.Since(cycleStartTime)).Msg("Checkpoint cycle succeeded")
}

func (d *Daemon) checkpoint(ctx context.Context, cycleLogger zerolog.Logger) error {
	if err := d.FlushReceipts(ctx); err != nil {
		return err
	}

	records, holdings := d.capture()
	checkpoint, err := d.accounts.Checkpoint(ctx, records, holdings)
	if err != nil {
		d.requeue(records)
		return fmt.Errorf("failed to checkpoint %d accounts: %w", len(records), err)
	}

	cycleLogger.Info().
		Int("checkpoint", checkpoint).
		Int("accounts", len(records)).
		Int("holdings", len(holdings)).
		Msg("Checkpoint saved")
	return nil
}

// FlushReceipts journals queued receipts in commit order, stopping at the first failure.
func (d *Daemon) FlushReceipts(ctx context.Context) error {
	d.mu.Lock()
	queued := d.receipts
	d.receipts = nil
	d.mu.Unlock()

	for i, r := range queued {
		if err := state.SaveReceipt(ctx, r); err != nil {
			d.mu.Lock()
			d.receipts = append(queued[i:len(queued):len(queued)], d.receipts...)
			d.mu.Unlock()
			return err
		}
	}
	return nil
}

// capture takes the dirty accounts and the custody snapshot between two commits, so the
// checkpoint holds reserves and custody balances of the same operation.
func (d *Daemon) capture() (records []state.AccountRecord, holdings []vault.Holding) {
	d.ctrl.Quiesce(func() {
		records = d.takePending()
		if d.custody != nil {
			holdings = d.custody.Snapshot()
		}
	})
	return records, holdings
}

func (d *Daemon) takePending() []state.AccountRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	records := make([]state.AccountRecord, 0, len(d.pending))
	for _, r := range d.pending {
		records = append(records, r)
	}
	d.pending = make(map[string]state.AccountRecord)
	return records
}

// requeue puts back records that no newer commit superseded.
func (d *Daemon) requeue(records []state.AccountRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range records {
		if _, newer := d.pending[r.Key()]; !newer {
			d.pending[r.Key()] = r
		}
	}
}
