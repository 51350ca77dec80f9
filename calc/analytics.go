package calc

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// OptionGreeks holds the finite-difference sensitivities. Vega is per vol
// point, Theta per calendar day and Rho per basis point.
type OptionGreeks struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Vega  decimal.Decimal `json:"vega"`
	Theta decimal.Decimal `json:"theta"`
	Rho   decimal.Decimal `json:"rho"`
}

// OptionAnalytics is the result of CalculateOptionAnalytics.
type OptionAnalytics struct {
	ImpliedVolatility decimal.Decimal `json:"impliedVolatility"`
	Price             decimal.Decimal `json:"price"`
	Greeks            OptionGreeks    `json:"greeks"`
}

// CalculateOptionAnalytics computes the implied volatility of pricer against
// marketPrice, stores it on the instrument, then prices the instrument and
// all five Greeks at that volatility.
func CalculateOptionAnalytics(pricer Pricer, marketPrice float64, cfg Config) (OptionAnalytics, error) {
	out := OptionAnalytics{}
	c := NewAnalyticCalculator(pricer, cfg)

	c.CalculateImpliedVolatilityFor(marketPrice)
	iv, err := toDecimal(c)
	if err != nil {
		return out, fmt.Errorf("implied volatility: %w", err)
	}
	out.ImpliedVolatility = iv

	steps := []struct {
		name string
		run  func()
		dst  *decimal.Decimal
	}{
		{"price", c.CalculatePrice, &out.Price},
		{"delta", c.CalculateDelta, &out.Greeks.Delta},
		{"gamma", c.CalculateGamma, &out.Greeks.Gamma},
		{"vega", c.CalculateVega, &out.Greeks.Vega},
		{"theta", c.CalculateTheta, &out.Greeks.Theta},
		{"rho", c.CalculateRho, &out.Greeks.Rho},
	}
	for _, step := range steps {
		step.run()
		v, err := toDecimal(c)
		if err != nil {
			return out, fmt.Errorf("%s: %w", step.name, err)
		}
		*step.dst = v
	}
	return out, nil
}

func toDecimal(c *AnalyticCalculator) (decimal.Decimal, error) {
	if !c.IsNormal() {
		return decimal.Zero, c.Err()
	}
	v := c.Result()
	if math.IsInf(v, 0) {
		return decimal.Zero, fail(CalculateFailed, fmt.Errorf("result is infinite"))
	}
	return decimal.NewFromFloat(v), nil
}
