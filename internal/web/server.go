package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"cosmossdk.io/math"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/elys-network/lbp/internal/controller"
	"github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/logger"
	"github.com/elys-network/lbp/internal/metrics"
	"github.com/elys-network/lbp/internal/schedule"
	"github.com/elys-network/lbp/internal/state"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/vault"
)

// CallerHeader carries the identity an operation is submitted as. Authenticating it is the
// job of the gateway in front of this server.
const CallerHeader = "X-LBP-Caller"

// Options are the optional collaborators of the web server.
type Options struct {
	// Faucet enables POST /api/custody/{account}/deposit against the in-memory custodian.
	Faucet *vault.MemoryVault
	// Journal enables the receipt and summary endpoints backed by the database.
	Journal bool
	// Accounts enables GET /api/checkpoint/accounts/{key}, the last checkpointed version of
	// an account, for comparing durable state with the live one.
	Accounts AccountReader
}

// AccountReader returns the last checkpointed version of an account.
type AccountReader interface {
	Get(ctx context.Context, key string) (state.AccountRecord, error)
}

// WebServer exposes the pool controller over HTTP
type WebServer struct {
	router  *mux.Router
	port    string
	ctrl    *controller.Controller
	opts    Options
	server  *http.Server
	started time.Time
	logger  zerolog.Logger
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, ctrl *controller.Controller, opts Options) *WebServer {
	if port == "" {
		port = "8080"
	}

	ws := &WebServer{
		router:  mux.NewRouter(),
		port:    port,
		ctrl:    ctrl,
		opts:    opts,
		started: time.Now(),
		logger:  logger.GetForComponent("web_server"),
	}

	ws.setupRoutes()
	return ws
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// Master account
	api.HandleFunc("/master", ws.handleGetMaster).Methods("GET")
	api.HandleFunc("/master", ws.handleInitializeMaster).Methods("POST")
	api.HandleFunc("/master/fees", ws.handleSetFees).Methods("POST")
	api.HandleFunc("/master/admin", ws.handleSetAdmin).Methods("POST")
	api.HandleFunc("/master/collector", ws.handleSetFeeCollector).Methods("POST")

	// Fees
	api.HandleFunc("/fees", ws.handleGetFees).Methods("GET")
	api.HandleFunc("/fees/{asset}/collect", ws.handleCollectFees).Methods("POST")

	// Pools
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/pools", ws.handleInitializePool).Methods("POST")
	api.HandleFunc("/pools/{creator}/{input}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{creator}/{input}/weights", ws.handleGetWeights).Methods("GET")
	api.HandleFunc("/pools/{creator}/{input}/price", ws.handleSpotPrice).Methods("GET")
	api.HandleFunc("/pools/{creator}/{input}/quote", ws.handleQuoteSwap).Methods("GET")
	api.HandleFunc("/pools/{creator}/{input}/quote/join", ws.handleQuoteJoin).Methods("GET")
	api.HandleFunc("/pools/{creator}/{input}/quote/redeem", ws.handleQuoteRedeem).Methods("GET")
	api.HandleFunc("/pools/{creator}/{input}/seed", ws.handleSeedPool).Methods("POST")
	api.HandleFunc("/pools/{creator}/{input}/join", ws.handleJoinPool).Methods("POST")
	api.HandleFunc("/pools/{creator}/{input}/buy", ws.handleSwap(types.SwapBuy)).Methods("POST")
	api.HandleFunc("/pools/{creator}/{input}/sell", ws.handleSwap(types.SwapSell)).Methods("POST")
	api.HandleFunc("/pools/{creator}/{input}/redeem", ws.handleRedeem).Methods("POST")
	api.HandleFunc("/pools/{creator}/{input}/pause", ws.handlePause(true)).Methods("POST")
	api.HandleFunc("/pools/{creator}/{input}/unpause", ws.handlePause(false)).Methods("POST")

	// Stateless invariant
	api.HandleFunc("/invariant", ws.handleCalculateInvariant).Methods("POST")

	if ws.opts.Journal {
		api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")
		api.HandleFunc("/summary", ws.handleGetSummary).Methods("GET")
	}
	if ws.opts.Accounts != nil {
		api.HandleFunc("/checkpoint/accounts/{key:.+}", ws.handleGetCheckpointedAccount).Methods("GET")
	}
	if ws.opts.Faucet != nil {
		api.HandleFunc("/custody/{account}/deposit", ws.handleDeposit).Methods("POST")
	}

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler returns the routed handler.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start starts the web server
func (ws *WebServer) Start() error {
	ws.logger.Info().Str("port", ws.port).Msg("Starting web server")

	ws.server = &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	err := ws.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the web server gracefully.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	if ws.server == nil {
		return nil
	}
	return ws.server.Shutdown(ctx)
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	_, masterErr := ws.ctrl.Master()
	dbHealthy := true
	if ws.opts.Journal {
		dbHealthy = state.TestDBConnection() == nil
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	params := ws.ctrl.Params()
	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "lbp-engine",
			"version": "1.0.0",
		},
		"engine_status": map[string]interface{}{
			"database_healthy":     dbHealthy,
			"master_initialized":   masterErr == nil,
			"pools":                len(ws.ctrl.Pools()),
			"trading_window":       params.TradingWindow,
			"join_mode":            params.JoinMode,
			"weight_normalization": params.WeightNormalization,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

func (ws *WebServer) handleGetMaster(w http.ResponseWriter, r *http.Request) {
	master, err := ws.ctrl.Master()
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, master)
}

func (ws *WebServer) handleGetFees(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.ctrl.Fees())
}

func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	pools := ws.ctrl.Pools()
	response := map[string]interface{}{
		"pools": pools,
		"count": len(pools),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// poolView is a pool with its derived phase and weights at the controller clock.
type poolView struct {
	*types.PoolAccount
	Phase          types.Phase `json:"phase"`
	CurrentWeights [2]uint64   `json:"current_weights"`
}

func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	key := poolKey(r)
	pool, err := ws.ctrl.Pool(key)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	phase, err := ws.ctrl.Phase(key)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	weights, err := ws.ctrl.CurrentWeights(key, ws.ctrl.Now())
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, poolView{PoolAccount: pool, Phase: phase, CurrentWeights: weights})
}

func (ws *WebServer) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	key := poolKey(r)
	at := ws.ctrl.Now()
	if atStr := r.URL.Query().Get("at"); atStr != "" {
		parsed, err := strconv.ParseInt(atStr, 10, 64)
		if err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid at timestamp")
			return
		}
		at = parsed
	}

	weights, err := ws.ctrl.CurrentWeights(key, at)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	sched, err := ws.ctrl.PoolSchedule(key)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	response := map[string]interface{}{
		"pool":          key,
		"at":            at,
		"weights":       weights,
		"progress":      fixedpoint.ToLegacyDec(schedule.Progress(sched, at)),
		"start_time":    sched.StartTime,
		"end_time":      sched.EndTime,
		"start_weights": sched.StartWeights,
		"end_weights":   sched.EndWeights,
		"normalization": sched.Normalization,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

func (ws *WebServer) handleSpotPrice(w http.ResponseWriter, r *http.Request) {
	side := types.SwapSide(r.URL.Query().Get("side"))
	if side == "" {
		side = types.SwapBuy
	}
	if side != types.SwapBuy && side != types.SwapSell {
		ws.writeErrorResponse(w, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}
	price, err := ws.ctrl.SpotPrice(poolKey(r), side)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	response := map[string]interface{}{
		"pool":  poolKey(r),
		"side":  side,
		"price": price,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

func (ws *WebServer) handleQuoteSwap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	side := types.SwapSide(q.Get("side"))
	if side == "" {
		side = types.SwapBuy
	}
	if side != types.SwapBuy && side != types.SwapSell {
		ws.writeErrorResponse(w, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}
	amount, ok := math.NewIntFromString(q.Get("amount"))
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	exactOutput, _ := strconv.ParseBool(q.Get("exact_output"))

	quote, err := ws.ctrl.QuoteSwap(poolKey(r), side, amount, exactOutput)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, quote)
}

func (ws *WebServer) handleQuoteJoin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, ok := math.NewIntFromString(q.Get("amount"))
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	quote, err := ws.ctrl.QuoteJoin(poolKey(r), types.AssetID(q.Get("asset")), amount)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, quote)
}

func (ws *WebServer) handleQuoteRedeem(w http.ResponseWriter, r *http.Request) {
	shares, ok := math.NewIntFromString(r.URL.Query().Get("shares"))
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid shares")
		return
	}
	quote, err := ws.ctrl.QuoteRedeem(poolKey(r), shares)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, quote)
}

func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	receipts, err := state.GetRecentReceipts(r.Context(), r.URL.Query().Get("pool"), limit)
	if err != nil {
		ws.logger.Error().Err(err).Msg("Failed to get recent receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}

	response := map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

func (ws *WebServer) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := state.GetEngineSummary(r.Context())
	if err != nil {
		ws.logger.Error().Err(err).Msg("Failed to get engine summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve engine summary")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, summary)
}

func (ws *WebServer) handleGetCheckpointedAccount(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	record, err := ws.opts.Accounts.Get(r.Context(), key)
	if errors.Is(err, state.ErrAccountNotFound) {
		ws.writeErrorResponse(w, http.StatusNotFound, "No checkpointed account "+key)
		return
	}
	if err != nil {
		ws.logger.Error().Err(err).Str("key", key).Msg("Failed to get checkpointed account")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve account")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, record)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		ws.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+CallerHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		ws.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("caller", r.Header.Get(CallerHeader)).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
