package weighted

import (
	"fmt"

	"cosmossdk.io/math"

	fp "github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/types"
)

// Fees is the protocol fee schedule charged on the input leg of a swap, in base units.
type Fees struct {
	SwapFeeBps uint16
	FlatFee    math.Int
}

// FeesFromMaster reads the fee schedule off the master account.
func FeesFromMaster(m *types.MasterAccount) Fees {
	flat := m.FlatFee
	if flat.IsNil() {
		flat = math.ZeroInt()
	}
	return Fees{SwapFeeBps: m.SwapFeeBps, FlatFee: flat}
}

// Validate checks the schedule can be applied: the proportional fee must stay below 100%.
func (f Fees) Validate() error {
	if f.SwapFeeBps >= types.BpsDenominator {
		return fmt.Errorf("%w: swap fee %d bps must be below %d", types.ErrInvalidParams, f.SwapFeeBps, types.BpsDenominator)
	}
	if f.FlatFee.IsNil() || f.FlatFee.IsNegative() {
		return fmt.Errorf("%w: flat fee must be non-negative", types.ErrInvalidParams)
	}
	return nil
}

// ProportionalRate returns the swap fee as an 18-decimal fraction.
func (f Fees) ProportionalRate() math.Int {
	return math.NewInt(int64(f.SwapFeeBps)).Mul(fp.One).QuoRaw(types.BpsDenominator)
}

// SubtractFees splits a gross input into the net amount entering the reserves and the fee.
// The flat fee comes off first, then the proportional fee rounded up.
func (f Fees) SubtractFees(gross math.Int) (net math.Int, fee math.Int, err error) {
	if !gross.IsPositive() {
		return fp.Zero, fp.Zero, fmt.Errorf("%w: gross amount", types.ErrZeroAmount)
	}
	if gross.LTE(f.FlatFee) {
		return fp.Zero, fp.Zero, fmt.Errorf("%w: amount %s does not cover flat fee %s", types.ErrZeroAmount, gross, f.FlatFee)
	}
	afterFlat := gross.Sub(f.FlatFee)
	proportional, err := fp.MulDivUp(afterFlat, math.NewInt(int64(f.SwapFeeBps)), math.NewInt(types.BpsDenominator))
	if err != nil {
		return fp.Zero, fp.Zero, err
	}
	net = afterFlat.Sub(proportional)
	if !net.IsPositive() {
		return fp.Zero, fp.Zero, fmt.Errorf("%w: amount %s is consumed by fees", types.ErrZeroAmount, gross)
	}
	return net, proportional.Add(f.FlatFee), nil
}

// AddFees grosses a net input up so that SubtractFees of the result yields at least net:
// ceil(net / (1 - bps/10000)) + flat.
func (f Fees) AddFees(net math.Int) (gross math.Int, fee math.Int, err error) {
	if !net.IsPositive() {
		return fp.Zero, fp.Zero, fmt.Errorf("%w: net amount", types.ErrZeroAmount)
	}
	denominator := math.NewInt(int64(types.BpsDenominator - int(f.SwapFeeBps)))
	grossed, err := fp.MulDivUp(net, math.NewInt(types.BpsDenominator), denominator)
	if err != nil {
		return fp.Zero, fp.Zero, err
	}
	gross, err = fp.Add(grossed, f.FlatFee)
	if err != nil {
		return fp.Zero, fp.Zero, err
	}
	return gross, gross.Sub(net), nil
}
