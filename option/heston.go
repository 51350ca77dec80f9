package option

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/souvik131/optcalc/calc"
	"gonum.org/v1/gonum/integrate/quad"
)

// HestonParams are the parameters of the Heston stochastic volatility model.
type HestonParams struct {
	V0    float64 // initial variance
	Kappa float64 // mean reversion speed of variance
	Theta float64 // long-term variance
	Xi    float64 // volatility of variance
	Rho   float64 // correlation between asset and variance shocks
}

func (h HestonParams) Validate() error {
	switch {
	case h.V0 < 0:
		return fmt.Errorf("heston: negative initial variance %v", h.V0)
	case h.Kappa <= 0:
		return fmt.Errorf("heston: mean reversion must be positive, got %v", h.Kappa)
	case h.Theta < 0:
		return fmt.Errorf("heston: negative long-term variance %v", h.Theta)
	case h.Xi <= 0:
		return fmt.Errorf("heston: vol of variance must be positive, got %v", h.Xi)
	case h.Rho < -1 || h.Rho > 1:
		return fmt.Errorf("heston: correlation %v outside [-1, 1]", h.Rho)
	}
	return nil
}

const hestonNodes = 512

// hestonUpperLimit truncates the Fourier integrals where the characteristic
// function has decayed below exp(-40).
func hestonUpperLimit(h HestonParams, t float64) float64 {
	v := math.Max(math.Min(h.V0, h.Theta), 1e-4)
	return math.Min(math.Max(math.Sqrt(80/(v*t)), 50), 2000)
}

// hestonIntegrand is Re[exp(-i*phi*ln K) * f_j(phi) / (i*phi)] for the
// probabilities P1 (j = 1) and P2 (j = 2), in the rotation-count-free form
// of the characteristic function.
func hestonIntegrand(j int, phi float64, p calc.Params, h HestonParams) float64 {
	u, b := 0.5, h.Kappa-h.Rho*h.Xi
	if j == 2 {
		u, b = -0.5, h.Kappa
	}
	iphi := complex(0, phi)
	xi2 := complex(h.Xi*h.Xi, 0)
	t := complex(p.Time, 0)

	bm := complex(b, 0) - complex(h.Rho*h.Xi, 0)*iphi
	d := cmplx.Sqrt(bm*bm - xi2*(complex(2*u, 0)*iphi-complex(phi*phi, 0)))
	g := (bm - d) / (bm + d)
	edt := cmplx.Exp(-d * t)

	c := complex((p.Rate-p.Dividend)*p.Time, 0)*iphi +
		complex(h.Kappa*h.Theta, 0)/xi2*((bm-d)*t-2*cmplx.Log((1-g*edt)/(1-g)))
	dd := (bm - d) / xi2 * (1 - edt) / (1 - g*edt)
	f := cmplx.Exp(c + dd*complex(h.V0, 0) + iphi*complex(math.Log(p.Spot), 0))

	return real(cmplx.Exp(-iphi*complex(math.Log(p.Strike), 0)) * f / iphi)
}

// Heston prices a European option under the Heston model by integrating the
// characteristic function with Gauss-Legendre quadrature. Params.Volatility
// is not an input of the model.
func Heston(p calc.Params, h HestonParams, call bool) float64 {
	if err := h.Validate(); err != nil {
		return math.NaN()
	}
	if p.Time <= 0 {
		return BlackScholes(p, call)
	}

	upper := hestonUpperLimit(h, p.Time)
	prob := func(j int) float64 {
		integral := quad.Fixed(func(phi float64) float64 {
			return hestonIntegrand(j, phi, p, h)
		}, 0, upper, hestonNodes, quad.Legendre{}, 0)
		return 0.5 + integral/math.Pi
	}

	s := p.Spot * math.Exp(-p.Dividend*p.Time)
	k := p.Strike * math.Exp(-p.Rate*p.Time)
	callPrice := s*prob(1) - k*prob(2)
	if call {
		return callPrice
	}
	return callPrice - s + k
}

// simulateGBM fills a geometric Brownian motion path with the exact
// log-normal step, one normal per step.
func simulateGBM(p calc.Params, steps int, z []float64) []float64 {
	dt := p.Time / float64(steps)
	drift := (p.Rate - p.Dividend - 0.5*p.Volatility*p.Volatility) * dt
	diffusion := p.Volatility * math.Sqrt(dt)

	path := make([]float64, steps+1)
	path[0] = p.Spot
	for i := 0; i < steps; i++ {
		path[i+1] = path[i] * math.Exp(drift+diffusion*z[i])
	}
	return path
}

// simulateHeston fills a Heston path with a log-Euler step for the asset and
// a full-truncation Euler step for the variance, two normals per step.
func simulateHeston(p calc.Params, h HestonParams, steps int, z []float64) []float64 {
	dt := p.Time / float64(steps)
	sqrtDt := math.Sqrt(dt)
	corr := math.Sqrt(1 - h.Rho*h.Rho)

	path := make([]float64, steps+1)
	path[0] = p.Spot
	v := h.V0
	for i := 0; i < steps; i++ {
		z1 := z[2*i]
		z2 := h.Rho*z1 + corr*z[2*i+1]
		vp := math.Max(v, 0)
		path[i+1] = path[i] * math.Exp((p.Rate-p.Dividend-0.5*vp)*dt+math.Sqrt(vp)*sqrtDt*z1)
		v += h.Kappa*(h.Theta-vp)*dt + h.Xi*math.Sqrt(vp)*sqrtDt*z2
	}
	return path
}
