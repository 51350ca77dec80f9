package option

import (
	"math"

	"github.com/souvik131/optcalc/calc"
	"gonum.org/v1/gonum/stat/distuv"
)

func normCDF(x float64) float64 { return distuv.UnitNormal.CDF(x) }

func normPDF(x float64) float64 { return distuv.UnitNormal.Prob(x) }

// discountedIntrinsic is the price of a European option whose underlying
// cannot move before expiry.
func discountedIntrinsic(p calc.Params, call bool) float64 {
	s := p.Spot * math.Exp(-p.Dividend*p.Time)
	k := p.Strike * math.Exp(-p.Rate*p.Time)
	if call {
		return math.Max(0, s-k)
	}
	return math.Max(0, k-s)
}

func d1d2(p calc.Params) (d1, d2 float64) {
	vsqrt := p.Volatility * math.Sqrt(p.Time)
	d1 = (math.Log(p.Spot/p.Strike) + (p.Rate-p.Dividend+0.5*p.Volatility*p.Volatility)*p.Time) / vsqrt
	return d1, d1 - vsqrt
}

// BlackScholes prices a European call or put with a continuous dividend
// yield. At or past expiry it returns the intrinsic value; with zero
// volatility the discounted intrinsic value.
func BlackScholes(p calc.Params, call bool) float64 {
	if p.Time <= 0 {
		if call {
			return math.Max(0, p.Spot-p.Strike)
		}
		return math.Max(0, p.Strike-p.Spot)
	}
	if p.Volatility <= 0 {
		return discountedIntrinsic(p, call)
	}

	d1, d2 := d1d2(p)
	s := p.Spot * math.Exp(-p.Dividend*p.Time)
	k := p.Strike * math.Exp(-p.Rate*p.Time)
	if call {
		// S*exp(-qT)*N(d1) - K*exp(-rT)*N(d2)
		return s*normCDF(d1) - k*normCDF(d2)
	}
	// K*exp(-rT)*N(-d2) - S*exp(-qT)*N(-d1)
	return k*normCDF(-d2) - s*normCDF(-d1)
}

// Greeks are closed-form Black-Scholes sensitivities, scaled like the
// finite-difference ones: Vega per vol point, Theta per calendar day, Rho
// per basis point.
type Greeks struct {
	Delta float64
	Gamma float64
	Vega  float64
	Theta float64
	Rho   float64
}

// BlackScholesGreeks returns zero sensitivities, except an intrinsic Delta,
// when the option is expired or has no volatility.
func BlackScholesGreeks(p calc.Params, call bool) Greeks {
	if p.Time <= 0 || p.Volatility <= 0 || p.Spot <= 0 {
		return Greeks{Delta: intrinsicDelta(p, call)}
	}

	d1, d2 := d1d2(p)
	sqrtT := math.Sqrt(p.Time)
	dq := math.Exp(-p.Dividend * p.Time)
	dr := math.Exp(-p.Rate * p.Time)

	g := Greeks{
		Gamma: normPDF(d1) * dq / (p.Spot * p.Volatility * sqrtT),
		Vega:  p.Spot * dq * normPDF(d1) * sqrtT / 100,
	}
	decay := -(p.Spot * normPDF(d1) * p.Volatility * dq) / (2 * sqrtT)
	if call {
		g.Delta = dq * normCDF(d1)
		g.Theta = (decay - p.Rate*p.Strike*dr*normCDF(d2) + p.Dividend*p.Spot*dq*normCDF(d1)) / 365
		g.Rho = p.Strike * p.Time * dr * normCDF(d2) / 10000
	} else {
		g.Delta = dq * (normCDF(d1) - 1)
		g.Theta = (decay + p.Rate*p.Strike*dr*normCDF(-d2) - p.Dividend*p.Spot*dq*normCDF(-d1)) / 365
		g.Rho = -p.Strike * p.Time * dr * normCDF(-d2) / 10000
	}
	return g
}

func intrinsicDelta(p calc.Params, call bool) float64 {
	switch {
	case call && p.Spot > p.Strike:
		return 1
	case call && p.Spot < p.Strike:
		return 0
	case call:
		return 0.5
	case p.Spot < p.Strike:
		return -1
	case p.Spot > p.Strike:
		return 0
	}
	return -0.5
}
