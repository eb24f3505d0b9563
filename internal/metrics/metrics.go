// Package metrics exposes Prometheus collectors for committed and rejected operations
// and for the live state of every pool.
package metrics

import (
	"errors"
	"net/http"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elys-network/lbp/internal/types"
)

var (
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lbp",
		Name:      "operations_total",
		Help:      "Operations submitted to the pool controller, by operation and result.",
	}, []string{"operation", "result"})

	PoolReserve = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lbp",
		Name:      "pool_reserve",
		Help:      "Reserve balance of a pool in base units of the asset.",
	}, []string{"pool", "asset"})

	PoolWeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lbp",
		Name:      "pool_weight",
		Help:      "Current weight of an asset in a pool.",
	}, []string{"pool", "asset"})

	PoolShares = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lbp",
		Name:      "pool_total_shares",
		Help:      "Outstanding pool shares.",
	}, []string{"pool"})

	FeesAccrued = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lbp",
		Name:      "fees_accrued",
		Help:      "Uncollected protocol fees in base units of the asset.",
	}, []string{"asset"})

	CheckpointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lbp",
		Name:      "checkpoints_total",
		Help:      "Daemon checkpoint cycles, by result.",
	}, []string{"result"})
)

// ResultLabel names the outcome of an operation after the error it returned.
func ResultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	for _, e := range []struct {
		err   error
		label string
	}{
		{types.ErrOverflow, "overflow"},
		{types.ErrDivisionByZero, "division_by_zero"},
		{types.ErrPrecisionLoss, "precision_loss"},
		{types.ErrInvariantViolation, "invariant_violation"},
		{types.ErrInsufficientLiquidity, "insufficient_liquidity"},
		{types.ErrInsufficientShares, "insufficient_shares"},
		{types.ErrAlreadySeeded, "already_seeded"},
		{types.ErrZeroAmount, "zero_amount"},
		{types.ErrUnauthorized, "unauthorized"},
		{types.ErrInvalidPhase, "invalid_phase"},
		{types.ErrTradingWindowClosed, "trading_window_closed"},
		{types.ErrPoolNotFound, "pool_not_found"},
		{types.ErrPoolPaused, "pool_paused"},
		{types.ErrBuyOnly, "buy_only"},
	} {
		if errors.Is(err, e.err) {
			return e.label
		}
	}
	return "error"
}

// ObserveOperation counts one operation outcome.
func ObserveOperation(op types.OperationType, err error) {
	Operations.WithLabelValues(string(op), ResultLabel(err)).Inc()
}

// ObservePool publishes reserves, weights and supply of a pool.
func ObservePool(p *types.PoolAccount, weights [2]uint64) {
	key := p.Key().String()
	for i, asset := range p.Assets() {
		PoolReserve.WithLabelValues(key, string(asset)).Set(toFloat(p.Balances[i]))
		PoolWeight.WithLabelValues(key, string(asset)).Set(float64(weights[i]))
	}
	PoolShares.WithLabelValues(key).Set(toFloat(p.TotalShares))
}

// ObserveFees publishes the fee ledger balances.
func ObserveFees(balances map[types.AssetID]math.Int) {
	for asset, amount := range balances {
		FeesAccrued.WithLabelValues(string(asset)).Set(toFloat(amount))
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func toFloat(v math.Int) float64 {
	if v.IsNil() {
		return 0
	}
	f, _ := math.LegacyNewDecFromInt(v).Float64()
	return f
}
