package calc

import (
	"fmt"
	"math"
)

// Implied volatility is searched inside this fixed bracket.
const (
	MinImpliedVolatility = 0.005
	MaxImpliedVolatility = 3.000
)

// InitialVolatility is the starting point of the root search. The current
// volatility is used when it lies strictly inside the bracket; otherwise the
// estimate sqrt(|ln(F/K)|*2/T) + 0.1 is used, with F the forward at T.
func InitialVolatility(p Params, forward float64) float64 {
	if p.Volatility > MinImpliedVolatility && p.Volatility < MaxImpliedVolatility {
		return p.Volatility
	}
	return math.Sqrt(math.Abs(math.Log(forward/p.Strike))*2/p.Time) + 0.1
}

// volSolver is a bisection-bounded Newton-Raphson search for the volatility
// that reproduces a target price.
type volSolver struct {
	cfg    NewtonIterationConfig
	engine greekEngine
}

func (s volSolver) objective(p Params, vol, target float64) (float64, error) {
	price, err := s.engine.price(p.WithVolatility(vol))
	if err != nil {
		return math.NaN(), err
	}
	return price - target, nil
}

// newton returns f(vol) and its slope. Vega is per vol point, so the slope
// per unit of volatility is 100 times larger.
func (s volSolver) newton(p Params, vol, target float64) (float64, float64, error) {
	fx, err := s.objective(p, vol, target)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	vega, err := s.engine.vega(p.WithVolatility(vol))
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return fx, vega * 100, nil
}

// solve returns the root and a nil error on convergence. When the iteration
// budget runs out it returns the last estimate together with a
// ReachMaxIteration error.
func (s volSolver) solve(p Params, target, guess float64) (float64, error) {
	lo, hi := MinImpliedVolatility, MaxImpliedVolatility

	flo, err := s.objective(p, lo, target)
	if err != nil {
		return math.NaN(), err
	}
	fhi, err := s.objective(p, hi, target)
	if err != nil {
		return math.NaN(), err
	}
	switch {
	case flo == 0:
		return lo, nil
	case fhi == 0:
		return hi, nil
	case flo*fhi > 0:
		return math.NaN(), fail(CalculateFailed,
			fmt.Errorf("target price %v is not bracketed by volatility [%v, %v]", target, lo, hi))
	}

	// keep f(xl) < 0 < f(xh)
	xl, xh := lo, hi
	if flo > 0 {
		xl, xh = hi, lo
	}

	x := guess
	if !(x > lo && x < hi) {
		x = 0.5 * (lo + hi)
	}
	fx, dfx, err := s.newton(p, x, target)
	if err != nil {
		return math.NaN(), err
	}

	for iter := 1; iter <= s.cfg.MaxIterations; iter++ {
		if fx == 0 {
			return x, nil
		}
		if fx < 0 {
			xl = x
		} else {
			xh = x
		}

		next := x - fx/dfx
		if dfx == 0 || math.IsNaN(next) || (next-xl)*(next-xh) >= 0 {
			next = 0.5 * (xl + xh)
		}
		dx := next - x
		x = next
		if math.Abs(dx) < s.cfg.Tolerance {
			return x, nil
		}

		fx, dfx, err = s.newton(p, x, target)
		if err != nil {
			return math.NaN(), err
		}
	}
	return x, fail(ReachMaxIteration, fmt.Errorf("implied volatility not converged after %d iterations", s.cfg.MaxIterations))
}
