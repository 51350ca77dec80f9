package volatility

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Interpolation strategies.
const (
	InterpolationLinear         = "linear"
	InterpolationNatural        = "natural"
	InterpolationAkima          = "akima"
	InterpolationFritschButland = "fritsch-butland"
	InterpolationNotAKnot       = "not-a-knot"
)

// Extrapolation strategies.
const (
	ExtrapolationFlat    = "flat"
	ExtrapolationLinear  = "linear"
	ExtrapolationNatural = "natural"
)

var interpolators = map[string]func() interp.FittablePredictor{
	InterpolationLinear:         func() interp.FittablePredictor { return &interp.PiecewiseLinear{} },
	InterpolationNatural:        func() interp.FittablePredictor { return &interp.NaturalCubic{} },
	InterpolationAkima:          func() interp.FittablePredictor { return &interp.AkimaSpline{} },
	InterpolationFritschButland: func() interp.FittablePredictor { return &interp.FritschButland{} },
	InterpolationNotAKnot:       func() interp.FittablePredictor { return &interp.NotAKnotCubic{} },
}

var extrapolations = map[string]bool{
	ExtrapolationFlat:    true,
	ExtrapolationLinear:  true,
	ExtrapolationNatural: true,
}

// Interpolations lists the registered interpolation names in order.
func Interpolations() []string {
	names := make([]string, 0, len(interpolators))
	for name := range interpolators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkInterpolation(name string) error {
	if _, ok := interpolators[name]; !ok {
		return fmt.Errorf("unknown interpolation %q", name)
	}
	return nil
}

func checkExtrapolation(name string) error {
	if !extrapolations[name] {
		return fmt.Errorf("unknown extrapolation %q", name)
	}
	return nil
}

// interp1 evaluates the curve through (xs, ys) at x. xs must be strictly
// increasing. Inside [xs[0], xs[n-1]] the named interpolation is used,
// outside it the named extrapolation.
func interp1(xs, ys []float64, x float64, method, extrapolation string) (float64, error) {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return math.NaN(), fmt.Errorf("interpolate: %d knots for %d values", n, len(ys))
	}
	if n == 1 {
		return ys[0], nil
	}
	newFn, ok := interpolators[method]
	if !ok {
		return math.NaN(), fmt.Errorf("unknown interpolation %q", method)
	}
	if err := checkExtrapolation(extrapolation); err != nil {
		return math.NaN(), err
	}
	fp := newFn()
	switch {
	case n == 2:
		// every strategy reduces to the chord
		fp = &interp.PiecewiseLinear{}
	case n == 3 && method == InterpolationNotAKnot:
		// not-a-knot needs four knots
		fp = &interp.NaturalCubic{}
	}
	if err := fp.Fit(xs, ys); err != nil {
		return math.NaN(), fmt.Errorf("interpolate %s: %w", method, err)
	}

	lo, hi := xs[0], xs[n-1]
	if x >= lo && x <= hi {
		return fp.Predict(x), nil
	}

	x0, y0 := lo, ys[0]
	if x > hi {
		x0, y0 = hi, ys[n-1]
	}
	var slope float64
	switch extrapolation {
	case ExtrapolationFlat:
		return y0, nil
	case ExtrapolationLinear:
		if x < lo {
			slope = (ys[1] - ys[0]) / (xs[1] - xs[0])
		} else {
			slope = (ys[n-1] - ys[n-2]) / (xs[n-1] - xs[n-2])
		}
	case ExtrapolationNatural:
		// one-sided slope of the fitted curve at the boundary
		h := (hi - lo) * 1e-6
		if x < lo {
			slope = (fp.Predict(lo+h) - ys[0]) / h
		} else {
			slope = (ys[n-1] - fp.Predict(hi-h)) / h
		}
	}
	return y0 + slope*(x-x0), nil
}
