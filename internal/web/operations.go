package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/elys-network/lbp/internal/controller"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/vault"
)

// Request bodies. Amounts are decimal strings in base units of the asset.

type identityRequest struct {
	Identity types.Identity `json:"identity"`
}

type feesRequest struct {
	SwapFeeBps uint16   `json:"swap_fee_bps"`
	FlatFee    math.Int `json:"flat_fee"`
}

type seedRequest struct {
	Balances [2]math.Int `json:"balances"`
	Weights  [2]uint64   `json:"weights"`
}

type joinRequest struct {
	Asset  types.AssetID `json:"asset"`
	Amount math.Int      `json:"amount"`
}

type swapRequest struct {
	Amount      math.Int `json:"amount"`
	ExactOutput bool     `json:"exact_output"`
}

type redeemRequest struct {
	Shares math.Int `json:"shares"`
}

type invariantRequest struct {
	Balances      [2]math.Int `json:"balances"`
	Weights       [2]uint64   `json:"weights"`
	Normalization uint64      `json:"normalization"`
}

type depositRequest struct {
	Asset  types.AssetID `json:"asset"`
	Amount math.Int      `json:"amount"`
}

func (ws *WebServer) handleInitializeMaster(w http.ResponseWriter, r *http.Request) {
	caller, ok := ws.caller(w, r)
	if !ok {
		return
	}
	ws.writeReceipt(w, http.StatusCreated)(ws.ctrl.InitializeMaster(r.Context(), caller))
}

func (ws *WebServer) handleSetFees(w http.ResponseWriter, r *http.Request) {
	caller, ok := ws.caller(w, r)
	if !ok {
		return
	}
	var req feesRequest
	if !ws.decode(w, r, &req) {
		return
	}
	ws.writeReceipt(w, http.StatusOK)(ws.ctrl.SetFeePercentage(r.Context(), caller, req.SwapFeeBps, req.FlatFee))
}

func (ws *WebServer) handleSetAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := ws.caller(w, r)
	if !ok {
		return
	}
	var req identityRequest
	if !ws.decode(w, r, &req) {
		return
	}
	ws.writeReceipt(w, http.StatusOK)(ws.ctrl.SetAdmin(r.Context(), caller, req.Identity))
}

func (ws *WebServer) handleSetFeeCollector(w http.ResponseWriter, r *http.Request) {
	caller, ok := ws.caller(w, r)
	if !ok {
		return
	}
	var req identityRequest
	if !ws.decode(w, r, &req) {
		return
	}
	ws.writeReceipt(w, http.StatusOK)(ws.ctrl.SetFeeCollector(r.Context(), caller, req.Identity))
}

func (ws *WebServer) handleCollectFees(w http.ResponseWriter, r *http.Request) {
	caller, ok := ws.caller(w, r)
	if !ok {
		return
	}
	asset := types.AssetID(mux.Vars(r)["asset"])
	ws.writeReceipt(w, http.StatusOK)(ws.ctrl.CollectFees(r.Context(), caller, asset))
}

func (ws *WebServer) handleInitializePool(w http.ResponseWriter, r *http.Request) {
	caller, ok := ws.caller(w, r)
	if !ok {
		return
	}
	var req types.InitializePoolParams
	if !ws.decode(w, r, &req) {
		return
	}
	ws.writeReceipt(w, http.StatusCreated)(ws.ctrl.InitializePool(r.Context(), caller, req))
}

func (ws *WebServer) handleSeedPool(w http.ResponseWriter, r *http.Request) {
	caller, ok := ws.caller(w, r)
	if !ok {
		return
	}
	var req seedRequest
	if !ws.decode(w, r, &req) {
		return
	}
	ws.writeReceipt(w, http.StatusOK)(ws.ctrl.SeedPool(r.Context(), caller, poolKey(r), req.Balances, req.Weights))
}

func (ws *WebServer) handleJoinPool(w http.ResponseWriter, r *http.Request) {
	caller, ok := ws.caller(w, r)
	if !ok {
		return
	}
	var req joinRequest
	if !ws.decode(w, r, &req) {
		return
	}
	ws.writeReceipt(w, http.StatusOK)(ws.ctrl.JoinPool(r.Context(), caller, poolKey(r), req.Asset, req.Amount))
}

func (ws *WebServer) handleSwap(side types.SwapSide) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := ws.caller(w, r)
		if !ok {
			return
		}
		var req swapRequest
		if !ws.decode(w, r, &req) {
			return
		}
		if side == types.SwapSell {
			ws.writeReceipt(w, http.StatusOK)(ws.ctrl.SellSwap(r.Context(), caller, poolKey(r), req.Amount, req.ExactOutput))
			return
		}
		ws.writeReceipt(w, http.StatusOK)(ws.ctrl.BuySwap(r.Context(), caller, poolKey(r), req.Amount, req.ExactOutput))
	}
}

func (ws *WebServer) handleRedeem(w http.ResponseWriter, r *http.Request) {
	caller, ok := ws.caller(w, r)
	if !ok {
		return
	}
	var req redeemRequest
	if !ws.decode(w, r, &req) {
		return
	}
	ws.writeReceipt(w, http.StatusOK)(ws.ctrl.RedeemShares(r.Context(), caller, poolKey(r), req.Shares))
}

func (ws *WebServer) handlePause(pause bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := ws.caller(w, r)
		if !ok {
			return
		}
		if pause {
			ws.writeReceipt(w, http.StatusOK)(ws.ctrl.PausePool(r.Context(), caller, poolKey(r)))
			return
		}
		ws.writeReceipt(w, http.StatusOK)(ws.ctrl.UnpausePool(r.Context(), caller, poolKey(r)))
	}
}

func (ws *WebServer) handleCalculateInvariant(w http.ResponseWriter, r *http.Request) {
	var req invariantRequest
	if !ws.decode(w, r, &req) {
		return
	}
	if req.Normalization == 0 {
		req.Normalization = ws.ctrl.Params().WeightNormalization
	}
	invariant, err := controller.CalculateInvariant(req.Balances, req.Weights, req.Normalization)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"invariant": invariant})
}

func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	account := types.Identity(mux.Vars(r)["account"])
	var req depositRequest
	if !ws.decode(w, r, &req) {
		return
	}
	if req.Asset == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "asset is required")
		return
	}
	if err := ws.opts.Faucet.Deposit(account, req.Asset, req.Amount); err != nil {
		ws.writeOperationError(w, err)
		return
	}
	balance, err := ws.opts.Faucet.Balance(r.Context(), account, req.Asset)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}
	ws.logger.Warn().Str("account", string(account)).Str("asset", string(req.Asset)).Str("amount", req.Amount.String()).Msg("Faucet deposit")
	ws.writeJSONResponse(w, http.StatusOK, vault.Holding{Account: account, Asset: req.Asset, Amount: balance})
}

// writeReceipt returns a sink for an operation result that writes the receipt or the mapped error.
func (ws *WebServer) writeReceipt(w http.ResponseWriter, status int) func(types.Receipt, error) {
	return func(receipt types.Receipt, err error) {
		if err != nil {
			ws.writeOperationError(w, err)
			return
		}
		ws.writeJSONResponse(w, status, receipt)
	}
}

func (ws *WebServer) writeOperationError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		ws.logger.Error().Err(err).Msg("Operation failed")
	}
	ws.writeErrorResponse(w, status, err.Error())
}

// StatusFor maps an engine error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, types.ErrPoolNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidParams), errors.Is(err, types.ErrZeroAmount), errors.Is(err, vault.ErrInvalidTransfer):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrInvalidPhase), errors.Is(err, types.ErrTradingWindowClosed),
		errors.Is(err, types.ErrAlreadySeeded), errors.Is(err, types.ErrPoolExists),
		errors.Is(err, types.ErrPoolPaused), errors.Is(err, types.ErrBuyOnly),
		errors.Is(err, types.ErrMasterNotInitialized), errors.Is(err, types.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, types.ErrOverflow), errors.Is(err, types.ErrDivisionByZero),
		errors.Is(err, types.ErrPrecisionLoss), errors.Is(err, types.ErrInvariantViolation),
		errors.Is(err, types.ErrInsufficientLiquidity), errors.Is(err, types.ErrInsufficientShares),
		errors.Is(err, vault.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func poolKey(r *http.Request) types.PoolKey {
	vars := mux.Vars(r)
	return types.PoolKey{Creator: types.Identity(vars["creator"]), InputAsset: types.AssetID(vars["input"])}
}

func (ws *WebServer) caller(w http.ResponseWriter, r *http.Request) (types.Identity, bool) {
	caller := r.Header.Get(CallerHeader)
	if caller == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("missing %s header", CallerHeader))
		return "", false
	}
	return types.Identity(caller), true
}

func (ws *WebServer) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
