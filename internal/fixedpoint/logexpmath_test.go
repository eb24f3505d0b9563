package fixedpoint

import (
	"errors"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/lbp/internal/types"
)

func TestCheckPowBoundsRejectsResultsOffTheCurve(t *testing.T) {
	half := fp("500000000000000000")
	// slack is 10000 wei per 1e18 plus one: 10001 at one, 20001 at two, 5001 at a half
	tests := []struct {
		name      string
		x, y      math.Int
		result    math.Int
		precision bool
	}{
		{"one to any power", One, Two, One.AddRaw(10_001), false},
		{"one to any power drifted", One, Two, One.AddRaw(10_002), true},
		{"root of a large base below one", Two, half, One.SubRaw(10_002), true},
		{"root of a large base above the base", Two, half, Two.AddRaw(20_002), true},
		{"root of a large base in range", Two, half, fp("1414213562373095048"), false},
		{"power of a large base below the base", Two, Two, Two.SubRaw(20_002), true},
		{"power of a large base at the slack", Two, Two, Two.SubRaw(20_001), false},
		{"root of a small base above one", half, half, One.AddRaw(10_002), true},
		{"root of a small base below the base", half, half, half.SubRaw(5_002), true},
		{"power of a small base above the base", half, Two, half.AddRaw(5_002), true},
		{"power of a small base in range", half, Two, fp("250000000000000000"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPowBounds(tt.x, tt.y, tt.result)
			if !tt.precision {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrPrecisionLoss), "got %v", err)
		})
	}
}

func TestPowResultsStayWithinBounds(t *testing.T) {
	// extremes of the domain: dust bases, bases next to one on both sides of the
	// 36-decimal window, and results at the edges of the exponent range
	cases := []struct{ x, y math.Int }{
		{math.OneInt(), fp("985000000000000000")},
		{math.NewInt(7), One.AddRaw(1)},
		{fp("900000000000000000"), fp("999999999999999999")},
		{fp("900000000000000001"), fp("1000000000000000001")},
		{fp("1099999999999999999"), fp("3000000000000000000")},
		{fp("1100000000000000000"), fp("1")},
		{math.NewIntWithDecimal(1, 36), fp("2500000000000000000")},
	}
	for _, tc := range cases {
		v, err := Pow(tc.x, tc.y)
		if err != nil {
			assert.False(t, errors.Is(err, types.ErrPrecisionLoss), "pow(%s, %s): %v", tc.x, tc.y, err)
			continue
		}
		assert.NoError(t, checkPowBounds(tc.x, tc.y, v), "pow(%s, %s) = %s", tc.x, tc.y, v)
	}
}
