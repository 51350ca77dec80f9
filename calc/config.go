package calc

import (
	"fmt"
	"runtime"

	"go.uber.org/multierr"
)

// NewtonIterationConfig bounds the implied volatility root search.
type NewtonIterationConfig struct {
	Tolerance     float64
	MaxIterations int
}

func DefaultNewtonIterationConfig() NewtonIterationConfig {
	return NewtonIterationConfig{Tolerance: 1e-10, MaxIterations: 100}
}

func (c NewtonIterationConfig) Validate() error {
	if !(c.Tolerance > 0) {
		return fmt.Errorf("newton tolerance must be positive, got %v", c.Tolerance)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("newton max iterations must be positive, got %d", c.MaxIterations)
	}
	return nil
}

const (
	defaultGreekPrecision = 1.0 / 10000
	// MinGreekPrecision is the floor below which precision setters are ignored.
	MinGreekPrecision = 2e-10
)

// GreekPrecisionConfig holds the relative bump sizes of the finite-difference
// Greeks. Setters ignore values at or below the floor, so a bump can never be
// set to zero.
type GreekPrecisionConfig struct {
	delta, gamma, vega, theta, rho float64
	eps                            float64
}

func DefaultGreekPrecisionConfig() GreekPrecisionConfig {
	return GreekPrecisionConfig{
		delta: defaultGreekPrecision,
		gamma: defaultGreekPrecision,
		vega:  defaultGreekPrecision,
		theta: defaultGreekPrecision,
		rho:   defaultGreekPrecision,
		eps:   MinGreekPrecision,
	}
}

func (g GreekPrecisionConfig) Delta() float64 { return g.delta }
func (g GreekPrecisionConfig) Gamma() float64 { return g.gamma }
func (g GreekPrecisionConfig) Vega() float64  { return g.vega }
func (g GreekPrecisionConfig) Theta() float64 { return g.theta }
func (g GreekPrecisionConfig) Rho() float64   { return g.rho }
func (g GreekPrecisionConfig) Eps() float64   { return g.eps }

func (g *GreekPrecisionConfig) set(dst *float64, v float64) {
	if v > max(g.eps, MinGreekPrecision) {
		*dst = v
	}
}

func (g *GreekPrecisionConfig) SetDelta(v float64) { g.set(&g.delta, v) }
func (g *GreekPrecisionConfig) SetGamma(v float64) { g.set(&g.gamma, v) }
func (g *GreekPrecisionConfig) SetVega(v float64)  { g.set(&g.vega, v) }
func (g *GreekPrecisionConfig) SetTheta(v float64) { g.set(&g.theta, v) }
func (g *GreekPrecisionConfig) SetRho(v float64)   { g.set(&g.rho, v) }

// orDefault repairs the fields a config built without the constructor
// left at zero.
func (g GreekPrecisionConfig) orDefault() GreekPrecisionConfig {
	for _, f := range []*float64{&g.delta, &g.gamma, &g.vega, &g.theta, &g.rho} {
		if *f == 0 {
			*f = defaultGreekPrecision
		}
	}
	if g.eps < MinGreekPrecision {
		g.eps = MinGreekPrecision
	}
	return g
}

// MonteCarloConfig drives the simulation engine.
type MonteCarloConfig struct {
	// Paths is the number of simulated paths N.
	Paths int
	// ErrorMultiplier scales the reported standard error, e.g. 1.96 for a
	// 95% half-width.
	ErrorMultiplier float64
	// Seed makes runs reproducible. Equal seeds give equal draws.
	Seed uint64
	// Antithetic pairs every draw z with -z.
	Antithetic bool
	// Workers caps concurrent path chunks. Zero means GOMAXPROCS.
	Workers int
}

func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{
		Paths:           100000,
		ErrorMultiplier: 1,
		Seed:            1,
	}
}

func (c MonteCarloConfig) Validate() error {
	var errs []error
	if c.Paths < 2 {
		errs = append(errs, fmt.Errorf("monte carlo needs at least 2 paths, got %d", c.Paths))
	}
	if c.Antithetic && c.Paths < 4 {
		errs = append(errs, fmt.Errorf("antithetic monte carlo needs at least 4 paths, got %d", c.Paths))
	}
	if c.Antithetic && c.Paths%2 != 0 {
		errs = append(errs, fmt.Errorf("antithetic monte carlo needs an even path count, got %d", c.Paths))
	}
	if c.ErrorMultiplier < 0 {
		errs = append(errs, fmt.Errorf("monte carlo error multiplier must not be negative, got %v", c.ErrorMultiplier))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("monte carlo workers must not be negative, got %d", c.Workers))
	}
	return multierr.Combine(errs...)
}

func (c MonteCarloConfig) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Config bundles everything a calculator needs. It is passed explicitly to
// each calculator rather than shared.
type Config struct {
	Newton     NewtonIterationConfig
	Precision  GreekPrecisionConfig
	MonteCarlo MonteCarloConfig
}

func DefaultConfig() Config {
	return Config{
		Newton:     DefaultNewtonIterationConfig(),
		Precision:  DefaultGreekPrecisionConfig(),
		MonteCarlo: DefaultMonteCarloConfig(),
	}
}
