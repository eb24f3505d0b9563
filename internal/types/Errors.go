/*

Named failures of the pool engine. Every operation returns one of these
(wrapped with context via %w) and callers match them with errors.Is.

*/

package types

import "errors"

// Arithmetic failures
var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrDivisionByZero = errors.New("division by zero")
	ErrPrecisionLoss  = errors.New("result outside documented precision bound")
)

// Pool and ledger failures
var (
	ErrInvariantViolation    = errors.New("post-trade invariant decreased")
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")
	ErrInsufficientShares    = errors.New("insufficient pool shares")
	ErrAlreadySeeded         = errors.New("pool already seeded")
	ErrZeroAmount            = errors.New("amount must be greater than zero")
	ErrUnauthorized          = errors.New("caller is not authorized")
	ErrInvalidPhase          = errors.New("operation not permitted in current pool phase")
	ErrTradingWindowClosed   = errors.New("trading window is closed")
)

// Lifecycle and parameter failures
var (
	ErrPoolNotFound         = errors.New("pool not found")
	ErrPoolExists           = errors.New("pool already exists")
	ErrPoolPaused           = errors.New("swaps are paused for this pool")
	ErrBuyOnly              = errors.New("pool only accepts buy swaps")
	ErrInvalidParams        = errors.New("invalid parameters")
	ErrMasterNotInitialized = errors.New("master account not initialized")
	ErrAlreadyInitialized   = errors.New("master account already initialized")
	ErrUnknownAccountType   = errors.New("unknown account type")
)
