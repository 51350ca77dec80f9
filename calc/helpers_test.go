package calc_test

import (
	"math"

	"github.com/souvik131/optcalc/calc"
	"github.com/souvik131/optcalc/option"
	"github.com/souvik131/optcalc/underlying"
)

// approxEqual checks if two float64 values are approximately equal within a given tolerance.
func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

// Black-Scholes reference prices for S=K=100, T=1, r=0.05, q=0, vol=0.2.
const (
	refCall = 10.450583572185565
	refPut  = 5.573526022256971
)

func atmOption(typ option.Type, vol float64) *option.EuropeanOption {
	return option.NewEuropean(underlying.NewSpot(100, 0.05, 0), typ, 100, 1, vol)
}

// stubPricer is a Pricer around an arbitrary formula.
type stubPricer struct {
	params  calc.Params
	formula calc.PriceFunc
	volSets int
}

func (s *stubPricer) Snapshot() calc.Params { return s.params }

func (s *stubPricer) SetVolatility(v float64) {
	s.params.Volatility = v
	s.volSets++
}

func (s *stubPricer) Formula() (calc.PriceFunc, bool) { return s.formula, s.formula != nil }

func (s *stubPricer) ForwardValue(p calc.Params) float64 {
	return p.Spot * math.Exp((p.Rate-p.Dividend)*p.Time)
}

func stubParams() calc.Params {
	return calc.Params{Spot: 100, Strike: 100, Time: 1, Volatility: 0.2, Rate: 0.05}
}
