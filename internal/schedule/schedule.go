// Package schedule interpolates pool weights over the bootstrap window.
package schedule

import (
	"fmt"

	"cosmossdk.io/math"

	fp "github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/weighted"
)

// DefaultNormalization is the sum every weight pair adds up to unless configured otherwise.
const DefaultNormalization uint64 = 100

// Schedule is the time window and the weight pairs at its ends.
type Schedule struct {
	StartTime     int64
	EndTime       int64
	StartWeights  [2]uint64
	EndWeights    [2]uint64
	Normalization uint64
}

// FromPool builds the schedule of a pool.
func FromPool(p *types.PoolAccount, normalization uint64) Schedule {
	return Schedule{
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		StartWeights:  p.StartWeights,
		EndWeights:    p.EndWeights,
		Normalization: normalization,
	}
}

// Validate checks the window is non-empty and both weight pairs are positive and normalized.
func (s Schedule) Validate() error {
	if s.Normalization == 0 {
		return fmt.Errorf("%w: normalization must be positive", types.ErrInvalidParams)
	}
	if s.EndTime <= s.StartTime {
		return fmt.Errorf("%w: end time %d must be after start time %d", types.ErrInvalidParams, s.EndTime, s.StartTime)
	}
	for _, w := range [][2]uint64{s.StartWeights, s.EndWeights} {
		if !types.WeightsNormalized(w, s.Normalization) {
			return fmt.Errorf("%w: weights %v must be positive and sum to %d", types.ErrInvalidParams, w, s.Normalization)
		}
	}
	return nil
}

// CurrentWeights returns the weights at now. At or before the start it returns the start
// weights and at or after the end the end weights. In between, the output asset's weight is
// interpolated linearly (truncated) and the input asset takes the remainder, so the pair
// always sums to the normalization constant and each weight stays between its endpoints.
func CurrentWeights(s Schedule, now int64) ([2]uint64, error) {
	if err := s.Validate(); err != nil {
		return [2]uint64{}, err
	}
	if now <= s.StartTime {
		return s.StartWeights, nil
	}
	if now >= s.EndTime {
		return s.EndWeights, nil
	}

	elapsed := math.NewInt(now - s.StartTime)
	duration := math.NewInt(s.EndTime - s.StartTime)
	start := math.NewIntFromUint64(s.StartWeights[types.OutputIndex])
	end := math.NewIntFromUint64(s.EndWeights[types.OutputIndex])

	// Quo truncates toward zero, i.e. toward the start weight for either direction.
	delta := end.Sub(start).Mul(elapsed).Quo(duration)
	w1 := start.Add(delta).Uint64()

	return [2]uint64{s.Normalization - w1, w1}, nil
}

// Progress returns the elapsed fraction of the window at now as an 18-decimal value in [0, 1].
func Progress(s Schedule, now int64) math.Int {
	switch {
	case now <= s.StartTime:
		return fp.Zero
	case now >= s.EndTime:
		return fp.One
	}
	return math.NewInt(now - s.StartTime).Mul(fp.One).QuoRaw(s.EndTime - s.StartTime)
}

// NormalizedWeights returns the current weights as 18-decimal fractions.
func NormalizedWeights(s Schedule, now int64) ([2]uint64, [2]math.Int, error) {
	weights, err := CurrentWeights(s, now)
	if err != nil {
		return weights, [2]math.Int{}, err
	}
	normalized, err := weighted.NormalizeWeights(weights, s.Normalization)
	return weights, normalized, err
}
