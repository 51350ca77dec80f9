// Package option holds the instruments the calculators price.
package option

import (
	"fmt"
	"math"
	"sync"

	"github.com/souvik131/optcalc/calc"
	"github.com/souvik131/optcalc/underlying"
)

// Method tags the pricing formula of an instrument.
type Method string

const (
	MethodBSM    Method = "BSM"
	MethodHeston Method = "HESTON"
)

// Type is the payoff direction.
type Type int

const (
	Call Type = iota
	Put
)

func (t Type) String() string {
	if t == Call {
		return "call"
	}
	return "put"
}

// VolatilitySource supplies a volatility by moneyness (strike / spot) and
// time to maturity. A calibrated volatility.Surface is one.
type VolatilitySource interface {
	Volatility(moneyness, t float64) (float64, error)
}

// EuropeanOption is a vanilla option exercisable only at expiry. Setters and
// getters are safe for concurrent use; calculators read it through Snapshot.
type EuropeanOption struct {
	mu            sync.RWMutex
	underlying    *underlying.Underlying
	optionType    Type
	strike        float64
	timeRemaining float64
	volatility    float64
	targetPrice   float64
	method        Method
	heston        HestonParams
	steps         int
	surface       VolatilitySource
}

// NewEuropean returns a Black-Scholes priced option with a single-step path.
func NewEuropean(u *underlying.Underlying, typ Type, strike, timeRemaining, volatility float64) *EuropeanOption {
	return &EuropeanOption{
		underlying:    u,
		optionType:    typ,
		strike:        strike,
		timeRemaining: timeRemaining,
		volatility:    volatility,
		method:        MethodBSM,
		steps:         1,
	}
}

func (o *EuropeanOption) Underlying() *underlying.Underlying {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.underlying
}

func (o *EuropeanOption) Type() Type {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.optionType
}

func (o *EuropeanOption) Strike() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.strike
}

func (o *EuropeanOption) TimeRemaining() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.timeRemaining
}

func (o *EuropeanOption) Volatility() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.volatility
}

func (o *EuropeanOption) TargetPrice() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.targetPrice
}

func (o *EuropeanOption) Method() Method {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.method
}

func (o *EuropeanOption) HestonParams() HestonParams {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.heston
}

func (o *EuropeanOption) PathSteps() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.steps
}

func (o *EuropeanOption) SetUnderlying(u *underlying.Underlying) {
	o.mu.Lock()
	o.underlying = u
	o.mu.Unlock()
}

func (o *EuropeanOption) SetType(t Type) {
	o.mu.Lock()
	o.optionType = t
	o.mu.Unlock()
}

func (o *EuropeanOption) SetStrike(v float64) {
	o.mu.Lock()
	o.strike = v
	o.mu.Unlock()
}

func (o *EuropeanOption) SetTimeRemaining(v float64) {
	o.mu.Lock()
	o.timeRemaining = v
	o.mu.Unlock()
}

func (o *EuropeanOption) SetVolatility(v float64) {
	o.mu.Lock()
	o.volatility = v
	o.mu.Unlock()
}

func (o *EuropeanOption) SetTargetPrice(v float64) {
	o.mu.Lock()
	o.targetPrice = v
	o.mu.Unlock()
}

// SetMethod accepts any tag. An unknown tag surfaces as NOT_FOUND_METHOD
// when a calculator resolves the formula.
func (o *EuropeanOption) SetMethod(m Method) {
	o.mu.Lock()
	o.method = m
	o.mu.Unlock()
}

func (o *EuropeanOption) SetHestonParams(h HestonParams) {
	o.mu.Lock()
	o.heston = h
	o.mu.Unlock()
}

func (o *EuropeanOption) SetPathSteps(n int) error {
	if n < 1 {
		return fmt.Errorf("path steps must be at least 1, got %d", n)
	}
	o.mu.Lock()
	o.steps = n
	o.mu.Unlock()
	return nil
}

// UseVolatilitySurface makes Snapshot read the volatility from src at the
// option's moneyness and maturity instead of the stored volatility.
func (o *EuropeanOption) UseVolatilitySurface(src VolatilitySource) {
	o.mu.Lock()
	o.surface = src
	o.mu.Unlock()
}

func (o *EuropeanOption) DisableVolatilitySurface() {
	o.mu.Lock()
	o.surface = nil
	o.mu.Unlock()
}

// Snapshot implements calc.Pricer. A volatility surface lookup failure
// yields a NaN volatility.
func (o *EuropeanOption) Snapshot() calc.Params {
	o.mu.RLock()
	defer o.mu.RUnlock()

	p := calc.Params{
		Strike:      o.strike,
		Time:        o.timeRemaining,
		Volatility:  o.volatility,
		TargetPrice: o.targetPrice,
	}
	if o.underlying != nil {
		p.Spot, p.Rate, p.Dividend = o.underlying.State()
	}
	if o.surface != nil {
		vol, err := o.surface.Volatility(p.Strike/p.Spot, p.Time)
		if err != nil {
			vol = math.NaN()
		}
		p.Volatility = vol
	}
	return p
}

// Formula implements calc.Pricer.
func (o *EuropeanOption) Formula() (calc.PriceFunc, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	call := o.optionType == Call
	switch o.method {
	case MethodBSM:
		return func(p calc.Params) float64 { return BlackScholes(p, call) }, true
	case MethodHeston:
		h := o.heston
		return func(p calc.Params) float64 { return Heston(p, h, call) }, true
	}
	return nil, false
}

func (o *EuropeanOption) ForwardValue(p calc.Params) float64 {
	return underlying.Forward(p.Spot, p.Rate, p.Dividend, p.Time)
}

func (o *EuropeanOption) SupportsMonteCarlo() bool {
	m := o.Method()
	return m == MethodBSM || m == MethodHeston
}

func (o *EuropeanOption) PathDimension() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.method == MethodHeston {
		return 2 * o.steps
	}
	return o.steps
}

func (o *EuropeanOption) SimulatePath(p calc.Params, normals []float64) []float64 {
	o.mu.RLock()
	method, steps, h := o.method, o.steps, o.heston
	o.mu.RUnlock()

	if method == MethodHeston {
		return simulateHeston(p, h, steps, normals)
	}
	return simulateGBM(p, steps, normals)
}

// PathPayoff discounts the terminal payoff of path at the risk-free rate.
func (o *EuropeanOption) PathPayoff(p calc.Params, path []float64) float64 {
	st := path[len(path)-1]
	var payoff float64
	if o.Type() == Call {
		payoff = math.Max(0, st-p.Strike)
	} else {
		payoff = math.Max(0, p.Strike-st)
	}
	return math.Exp(-p.Rate*p.Time) * payoff
}

var _ calc.PathPricer = (*EuropeanOption)(nil)
