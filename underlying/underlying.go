// Package underlying models the asset an option is written on.
package underlying

import (
	"fmt"
	"math"
	"sync"
)

// Kind distinguishes a spot asset from a currency pair.
type Kind int

const (
	Spot Kind = iota
	Currency
)

func (k Kind) String() string {
	switch k {
	case Spot:
		return "spot"
	case Currency:
		return "currency"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Underlying holds the market state an option reads. For a currency pair
// DividendRate is the foreign interest rate.
type Underlying struct {
	mu           sync.RWMutex
	kind         Kind
	spotPrice    float64
	riskFreeRate float64
	dividendRate float64
}

func New(kind Kind, spot, rate, dividend float64) *Underlying {
	return &Underlying{kind: kind, spotPrice: spot, riskFreeRate: rate, dividendRate: dividend}
}

func NewSpot(spot, rate, dividend float64) *Underlying {
	return New(Spot, spot, rate, dividend)
}

func NewCurrency(spot, domesticRate, foreignRate float64) *Underlying {
	return New(Currency, spot, domesticRate, foreignRate)
}

func (u *Underlying) Kind() Kind { return u.kind }

func (u *Underlying) SpotPrice() float64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.spotPrice
}

func (u *Underlying) RiskFreeRate() float64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.riskFreeRate
}

func (u *Underlying) DividendRate() float64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.dividendRate
}

func (u *Underlying) SetSpotPrice(v float64) {
	u.mu.Lock()
	u.spotPrice = v
	u.mu.Unlock()
}

func (u *Underlying) SetRiskFreeRate(v float64) {
	u.mu.Lock()
	u.riskFreeRate = v
	u.mu.Unlock()
}

func (u *Underlying) SetDividendRate(v float64) {
	u.mu.Lock()
	u.dividendRate = v
	u.mu.Unlock()
}

// State returns spot, rate and dividend read under one lock.
func (u *Underlying) State() (spot, rate, dividend float64) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.spotPrice, u.riskFreeRate, u.dividendRate
}

// FutureValue is the forward price S*exp((r-q)*t).
func (u *Underlying) FutureValue(t float64) float64 {
	s, r, q := u.State()
	return Forward(s, r, q, t)
}

// Forward is the cost-of-carry forward price.
func Forward(spot, rate, dividend, t float64) float64 {
	return spot * math.Exp((rate-dividend)*t)
}

// Reverse returns the currency pair quoted the other way round: 1/S with
// the two rates swapped.
func (u *Underlying) Reverse() (*Underlying, error) {
	if u.kind != Currency {
		return nil, fmt.Errorf("reverse: %s underlying is not a currency pair", u.kind)
	}
	s, r, q := u.State()
	if s == 0 {
		return nil, fmt.Errorf("reverse: zero spot price")
	}
	return NewCurrency(1/s, q, r), nil
}

func (u *Underlying) String() string {
	s, r, q := u.State()
	return fmt.Sprintf("%s{spot: %g, rate: %g, dividend: %g}", u.kind, s, r, q)
}
