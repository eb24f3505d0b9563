package fixedpoint

import (
	"fmt"

	"cosmossdk.io/math"

	"github.com/elys-network/lbp/internal/types"
)

// Exponentiation and logarithm with 18-decimal inputs and outputs, computed with
// table-driven range reduction followed by short Taylor / atanh series. Intermediate
// values carry 20 decimals (36 for ln close to one).

func mustInt(s string) math.Int {
	v, ok := math.NewIntFromString(s)
	if !ok {
		panic("fixedpoint: invalid constant " + s)
	}
	return v
}

var (
	one18 = One
	one20 = math.NewIntWithDecimal(1, 20)
	one36 = math.NewIntWithDecimal(1, 36)

	// Domain of Exp: e^130 and e^-41 are the largest and smallest results that fit with 18 decimals.
	MaxNaturalExponent = math.NewIntWithDecimal(130, 18)
	MinNaturalExponent = math.NewIntWithDecimal(-41, 18)

	// Ln uses the 36-decimal series for inputs within (0.9, 1.1).
	ln36LowerBound = one18.Sub(math.NewIntWithDecimal(1, 17))
	ln36UpperBound = one18.Add(math.NewIntWithDecimal(1, 17))

	// 2^254 / 1e20: exponents at or above this overflow ln(x)*y.
	mildExponentBound = mustInt("289480223093290488558927462521719769633174961664101410098")

	// Pow bases must stay below 2^255.
	maxPowBase = mustInt("57896044618658097711785492504343953926634992332820282019728792003956564819968")

	// x0 and x1 have 18 decimals, a0 and a1 none.
	x0 = mustInt("128000000000000000000")
	a0 = mustInt("38877084059945950922200000000000000000000000000000000000")
	x1 = mustInt("64000000000000000000")
	a1 = mustInt("6235149080811616882910000000")

	// xN and aN below carry 20 decimals.
	reductionTable = []struct{ x, a math.Int }{
		{mustInt("3200000000000000000000"), mustInt("7896296018268069516100000000000000")}, // 2^5
		{mustInt("1600000000000000000000"), mustInt("888611052050787263676000000")},        // 2^4
		{mustInt("800000000000000000000"), mustInt("298095798704172827474000")},            // 2^3
		{mustInt("400000000000000000000"), mustInt("5459815003314423907810")},              // 2^2
		{mustInt("200000000000000000000"), mustInt("738905609893065022723")},               // 2^1
		{mustInt("100000000000000000000"), mustInt("271828182845904523536")},               // 2^0
		{mustInt("50000000000000000000"), mustInt("164872127070012814685")},                // 2^-1
		{mustInt("25000000000000000000"), mustInt("128402541668774148407")},                // 2^-2
		{mustInt("12500000000000000000"), mustInt("113314845306682631683")},                // 2^-3
		{mustInt("6250000000000000000"), mustInt("106449445891785942956")},                 // 2^-4
	}
)

// Pow returns x^y for 18-decimal x and y, with relative error below MaxPowRelativeError.
func Pow(x, y math.Int) (math.Int, error) {
	if x.IsNegative() || y.IsNegative() {
		return Zero, fmt.Errorf("%w: pow(%s, %s) requires non-negative operands", types.ErrInvalidParams, x, y)
	}
	if y.IsZero() {
		return One, nil
	}
	if x.IsZero() {
		return Zero, nil
	}
	if x.GTE(maxPowBase) {
		return Zero, fmt.Errorf("%w: pow base %s out of bounds", types.ErrOverflow, x)
	}
	if y.GTE(mildExponentBound) {
		return Zero, fmt.Errorf("%w: pow exponent %s out of bounds", types.ErrOverflow, y)
	}

	var logxTimesY math.Int
	if ln36LowerBound.LT(x) && x.LT(ln36UpperBound) {
		ln36x, err := ln36(x)
		if err != nil {
			return Zero, err
		}
		// ln36x has 36 decimals: split it so the product with y fits in 256 bits.
		whole := ln36x.Quo(one18)
		frac := ln36x.Sub(whole.Mul(one18))
		hi, err := Mul(whole, y)
		if err != nil {
			return Zero, err
		}
		lo, err := Mul(frac, y)
		if err != nil {
			return Zero, err
		}
		logxTimesY, err = Add(hi, lo.Quo(one18))
		if err != nil {
			return Zero, err
		}
	} else {
		lnx, err := ln(x)
		if err != nil {
			return Zero, err
		}
		logxTimesY, err = Mul(lnx, y)
		if err != nil {
			return Zero, err
		}
	}
	logxTimesY = logxTimesY.Quo(one18)

	if logxTimesY.LT(MinNaturalExponent) || logxTimesY.GT(MaxNaturalExponent) {
		return Zero, fmt.Errorf("%w: pow(%s, %s) product out of bounds", types.ErrOverflow, x, y)
	}

	result, err := Exp(logxTimesY)
	if err != nil {
		return Zero, err
	}
	if err := checkPowBounds(x, y, result); err != nil {
		return Zero, err
	}
	return result, nil
}

// checkPowBounds rejects results that contradict the monotonicity of x^y:
// for y < 1 the result lies between x and 1, for y >= 1 it lies beyond x away from 1.
// Each bound is widened by the documented relative error.
func checkPowBounds(x, y, result math.Int) error {
	within := func(cond bool, bound string) error {
		if !cond {
			return fmt.Errorf("%w: pow(%s, %s) = %s violates %s", types.ErrPrecisionLoss, x, y, result, bound)
		}
		return nil
	}
	slack := func(v math.Int) math.Int {
		return v.Mul(MaxPowRelativeError).Quo(one18).AddRaw(1)
	}

	switch {
	case x.Equal(one18):
		return within(result.Sub(one18).Abs().LTE(slack(one18)), "1^y = 1")
	case x.GT(one18) && y.LT(one18):
		if err := within(result.GTE(one18.Sub(slack(one18))), "x^y >= 1"); err != nil {
			return err
		}
		return within(result.LTE(x.Add(slack(x))), "x^y <= x")
	case x.GT(one18):
		return within(result.GTE(x.Sub(slack(x))), "x^y >= x")
	case y.LT(one18):
		if err := within(result.LTE(one18.Add(slack(one18))), "x^y <= 1"); err != nil {
			return err
		}
		return within(result.GTE(x.Sub(slack(x))), "x^y >= x")
	default:
		return within(result.LTE(x.Add(slack(x))), "x^y <= x")
	}
}

// Exp returns e^x for an 18-decimal x in [MinNaturalExponent, MaxNaturalExponent].
func Exp(x math.Int) (math.Int, error) {
	if x.LT(MinNaturalExponent) || x.GT(MaxNaturalExponent) {
		return Zero, fmt.Errorf("%w: exp(%s) exponent out of bounds", types.ErrOverflow, x)
	}
	if x.IsNegative() {
		// e^(-x) = 1/e^x; the bounds guarantee e^x is at least one.
		inv, err := Exp(x.Neg())
		if err != nil {
			return Zero, err
		}
		return Quo(one18.Mul(one18), inv)
	}

	// First strip the largest powers with 0-decimal a-values, then move to 20 decimals.
	firstAN := math.OneInt()
	switch {
	case x.GTE(x0):
		x = x.Sub(x0)
		firstAN = a0
	case x.GTE(x1):
		x = x.Sub(x1)
		firstAN = a1
	}
	x = x.MulRaw(100)

	product := one20
	var err error
	// The last two table entries are not needed: the series below converges fast enough.
	for _, step := range reductionTable[:8] {
		if x.GTE(step.x) {
			x = x.Sub(step.x)
			if product, err = mulQuo(product, step.a, one20); err != nil {
				return Zero, err
			}
		}
	}

	// Taylor series for the remaining x < 0.25 (20 decimals), 12 terms.
	seriesSum := one20.Add(x)
	term := x
	for i := int64(2); i <= 12; i++ {
		if term, err = mulQuo(term, x, one20); err != nil {
			return Zero, err
		}
		term = term.QuoRaw(i)
		seriesSum = seriesSum.Add(term)
	}

	result, err := mulQuo(product, seriesSum, one20)
	if err != nil {
		return Zero, err
	}
	result, err = Mul(result, firstAN)
	if err != nil {
		return Zero, err
	}
	return result.QuoRaw(100), nil
}

// Ln returns the natural logarithm of an 18-decimal a > 0.
func Ln(a math.Int) (math.Int, error) {
	if !a.IsPositive() {
		return Zero, fmt.Errorf("%w: ln(%s) undefined", types.ErrInvalidParams, a)
	}
	if ln36LowerBound.LT(a) && a.LT(ln36UpperBound) {
		v, err := ln36(a)
		if err != nil {
			return Zero, err
		}
		return v.Quo(one18), nil
	}
	return ln(a)
}

func ln(a math.Int) (math.Int, error) {
	if a.LT(one18) {
		// ln(a) = -ln(1/a)
		inv, err := Quo(one18.Mul(one18), a)
		if err != nil {
			return Zero, err
		}
		v, err := ln(inv)
		if err != nil {
			return Zero, err
		}
		return v.Neg(), nil
	}

	sum := math.ZeroInt()
	a0Scaled := a0.Mul(one18)
	if a.GTE(a0Scaled) {
		a = a.Quo(a0)
		sum = sum.Add(x0)
	}
	if a.GTE(a1.Mul(one18)) {
		a = a.Quo(a1)
		sum = sum.Add(x1)
	}

	// Move to 20 decimals and reduce with the remaining table entries (including 2^-4).
	sum = sum.MulRaw(100)
	a = a.MulRaw(100)
	var err error
	for _, step := range reductionTable {
		if a.GTE(step.a) {
			if a, err = mulQuo(a, one20, step.a); err != nil {
				return Zero, err
			}
			sum = sum.Add(step.x)
		}
	}

	// ln(a) = 2 * atanh(z), z = (a - 1) / (a + 1), a close to one.
	z, err := mulQuo(a.Sub(one20), one20, a.Add(one20))
	if err != nil {
		return Zero, err
	}
	zSquared, err := mulQuo(z, z, one20)
	if err != nil {
		return Zero, err
	}
	num := z
	seriesSum := num
	for _, d := range []int64{3, 5, 7, 9, 11} {
		if num, err = mulQuo(num, zSquared, one20); err != nil {
			return Zero, err
		}
		seriesSum = seriesSum.Add(num.QuoRaw(d))
	}
	seriesSum = seriesSum.MulRaw(2)

	return sum.Add(seriesSum).QuoRaw(100), nil
}

// ln36 returns ln(x) with 36 decimals for an 18-decimal x close to one.
func ln36(x math.Int) (math.Int, error) {
	x = x.Mul(one18)

	z, err := mulQuo(x.Sub(one36), one36, x.Add(one36))
	if err != nil {
		return Zero, err
	}
	zSquared, err := mulQuo(z, z, one36)
	if err != nil {
		return Zero, err
	}
	num := z
	seriesSum := num
	for _, d := range []int64{3, 5, 7, 9, 11, 13, 15} {
		if num, err = mulQuo(num, zSquared, one36); err != nil {
			return Zero, err
		}
		seriesSum = seriesSum.Add(num.QuoRaw(d))
	}
	return seriesSum.MulRaw(2), nil
}

func mulQuo(a, b, c math.Int) (math.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return Zero, err
	}
	return Quo(product, c)
}
