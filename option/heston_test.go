package option_test

import (
	"math"
	"testing"

	"github.com/souvik131/optcalc/calc"
	"github.com/souvik131/optcalc/option"
)

// nearlyConstantVariance makes Heston collapse to Black-Scholes with vol 0.2.
var nearlyConstantVariance = option.HestonParams{V0: 0.04, Kappa: 2, Theta: 0.04, Xi: 0.01, Rho: 0}

func TestHestonMatchesBlackScholesInTheLimit(t *testing.T) {
	for _, strike := range []float64{80, 100, 120} {
		for _, maturity := range []float64{1.0 / 12, 0.5, 1} {
			p := calc.Params{Spot: 100, Strike: strike, Time: maturity, Volatility: 0.2, Rate: 0.05}
			for _, call := range []bool{true, false} {
				got := option.Heston(p, nearlyConstantVariance, call)
				want := option.BlackScholes(p, call)
				if !approxEqual(got, want, 5e-3) {
					t.Errorf("K=%v T=%v call=%v: expected %v, got %v", strike, maturity, call, want, got)
				}
			}
		}
	}
}

func TestHestonPutCallParity(t *testing.T) {
	h := option.HestonParams{V0: 0.05, Kappa: 1.5, Theta: 0.04, Xi: 0.4, Rho: -0.6}
	p := calc.Params{Spot: 100, Strike: 105, Time: 0.5, Rate: 0.03, Dividend: 0.01}
	lhs := option.Heston(p, h, true) - option.Heston(p, h, false)
	rhs := p.Spot*math.Exp(-p.Dividend*p.Time) - p.Strike*math.Exp(-p.Rate*p.Time)
	if !approxEqual(lhs, rhs, 1e-9) {
		t.Errorf("parity: C-P = %v, forward value %v", lhs, rhs)
	}
	if c := option.Heston(p, h, true); !(c > 0) {
		t.Errorf("call price should be positive, got %v", c)
	}
}

func TestHestonIgnoresVolatilityInput(t *testing.T) {
	h := option.HestonParams{V0: 0.04, Kappa: 2, Theta: 0.04, Xi: 0.3, Rho: -0.7}
	p := calc.Params{Spot: 100, Strike: 100, Time: 1, Volatility: 0.2, Rate: 0.05}
	if a, b := option.Heston(p, h, true), option.Heston(p.WithVolatility(0.9), h, true); a != b {
		t.Errorf("price depends on Params.Volatility: %v vs %v", a, b)
	}
}

func TestHestonParamsValidate(t *testing.T) {
	valid := option.HestonParams{V0: 0.04, Kappa: 2, Theta: 0.04, Xi: 0.3, Rho: -0.7}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid params rejected: %v", err)
	}
	bad := []option.HestonParams{
		{V0: -0.01, Kappa: 2, Theta: 0.04, Xi: 0.3},
		{V0: 0.04, Kappa: 0, Theta: 0.04, Xi: 0.3},
		{V0: 0.04, Kappa: 2, Theta: -1, Xi: 0.3},
		{V0: 0.04, Kappa: 2, Theta: 0.04, Xi: 0},
		{V0: 0.04, Kappa: 2, Theta: 0.04, Xi: 0.3, Rho: 1.5},
	}
	for _, h := range bad {
		if err := h.Validate(); err == nil {
			t.Errorf("expected an error for %+v", h)
		}
		if got := option.Heston(atm(), h, true); !math.IsNaN(got) {
			t.Errorf("expected NaN price for %+v, got %v", h, got)
		}
	}
}
