package calc_test

import (
	"errors"
	"math"
	"testing"

	"github.com/souvik131/optcalc/calc"
	"github.com/souvik131/optcalc/option"
	"github.com/souvik131/optcalc/underlying"
)

func TestAnalyticPrice(t *testing.T) {
	t.Run("CallOption_ATM", func(t *testing.T) {
		c := calc.NewAnalyticCalculator(atmOption(option.Call, 0.2), calc.DefaultConfig())
		c.CalculatePrice()
		if !c.IsNormal() {
			t.Fatalf("CalculatePrice: %v", c.Err())
		}
		if !approxEqual(c.Result(), refCall, 1e-9) {
			t.Errorf("call price: expected %v, got %v", refCall, c.Result())
		}
	})

	t.Run("PutOption_ATM", func(t *testing.T) {
		c := calc.NewAnalyticCalculator(atmOption(option.Put, 0.2), calc.DefaultConfig())
		c.CalculatePrice()
		if !c.IsNormal() {
			t.Fatalf("CalculatePrice: %v", c.Err())
		}
		if !approxEqual(c.Result(), refPut, 1e-9) {
			t.Errorf("put price: expected %v, got %v", refPut, c.Result())
		}
	})

	t.Run("UnknownMethod", func(t *testing.T) {
		o := atmOption(option.Call, 0.2)
		o.SetMethod("SABR")
		c := calc.NewAnalyticCalculator(o, calc.DefaultConfig())
		c.CalculatePrice()
		if c.ErrorCode() != calc.NotFoundMethod {
			t.Errorf("expected NOT_FOUND_METHOD, got %v", c.ErrorCode())
		}
		if !errors.Is(c.Err(), calc.ErrNotFoundMethod) {
			t.Errorf("Err does not match ErrNotFoundMethod: %v", c.Err())
		}
	})

	t.Run("NaNPrice", func(t *testing.T) {
		stub := &stubPricer{params: stubParams(), formula: func(calc.Params) float64 { return math.NaN() }}
		c := calc.NewAnalyticCalculator(stub, calc.DefaultConfig())
		c.CalculatePrice()
		if c.ErrorCode() != calc.CalculateNaN {
			t.Errorf("expected CALCULATE_NAN, got %v", c.ErrorCode())
		}
	})

	t.Run("PanickingFormula", func(t *testing.T) {
		stub := &stubPricer{params: stubParams(), formula: func(calc.Params) float64 { panic("boom") }}
		c := calc.NewAnalyticCalculator(stub, calc.DefaultConfig())
		c.CalculatePrice()
		if c.ErrorCode() != calc.CalculateFailed {
			t.Errorf("expected CALCULATE_FAILED, got %v", c.ErrorCode())
		}
		if !math.IsNaN(c.Result()) {
			t.Errorf("expected NaN result, got %v", c.Result())
		}
	})
}

func TestAnalyticGreeks(t *testing.T) {
	type greekCase struct {
		name string
		run  func(*calc.AnalyticCalculator)
		want func(option.Greeks) float64
		tol  float64
	}
	greeks := []greekCase{
		{"Delta", (*calc.AnalyticCalculator).CalculateDelta, func(g option.Greeks) float64 { return g.Delta }, 1e-4},
		{"Gamma", (*calc.AnalyticCalculator).CalculateGamma, func(g option.Greeks) float64 { return g.Gamma }, 1e-5},
		{"Vega", (*calc.AnalyticCalculator).CalculateVega, func(g option.Greeks) float64 { return g.Vega }, 1e-5},
		{"Theta", (*calc.AnalyticCalculator).CalculateTheta, func(g option.Greeks) float64 { return g.Theta }, 1e-5},
		{"Rho", (*calc.AnalyticCalculator).CalculateRho, func(g option.Greeks) float64 { return g.Rho }, 1e-7},
	}
	instruments := []struct {
		name string
		opt  func() *option.EuropeanOption
	}{
		{"CallOption_ATM", func() *option.EuropeanOption { return atmOption(option.Call, 0.2) }},
		{"PutOption_ATM", func() *option.EuropeanOption { return atmOption(option.Put, 0.2) }},
		{"CallOption_OTM_Dividend", func() *option.EuropeanOption {
			return option.NewEuropean(underlying.NewSpot(100, 0.03, 0.01), option.Call, 110, 0.5, 0.3)
		}},
		{"PutOption_ZeroRate", func() *option.EuropeanOption {
			return option.NewEuropean(underlying.NewSpot(100, 0, 0.02), option.Put, 90, 0.25, 0.25)
		}},
	}

	for _, inst := range instruments {
		for _, g := range greeks {
			t.Run(inst.name+"/"+g.name, func(t *testing.T) {
				o := inst.opt()
				before := o.Snapshot()
				want := g.want(option.BlackScholesGreeks(before, o.Type() == option.Call))

				c := calc.NewAnalyticCalculator(o, calc.DefaultConfig())
				g.run(c)
				if !c.IsNormal() {
					t.Fatalf("%s: %v", g.name, c.Err())
				}
				if !approxEqual(c.Result(), want, g.tol) {
					t.Errorf("%s: expected %v, got %v", g.name, want, c.Result())
				}
				if after := o.Snapshot(); after != before {
					t.Errorf("instrument changed: before %+v, after %+v", before, after)
				}
			})
		}
	}
}

func TestGreekErrorPropagation(t *testing.T) {
	t.Run("NaNOnUpperSpotBump", func(t *testing.T) {
		stub := &stubPricer{params: stubParams(), formula: func(p calc.Params) float64 {
			if p.Spot > 100 {
				return math.NaN()
			}
			return p.Spot
		}}
		c := calc.NewAnalyticCalculator(stub, calc.DefaultConfig())
		for name, run := range map[string]func(){"delta": c.CalculateDelta, "gamma": c.CalculateGamma} {
			run()
			if c.ErrorCode() != calc.CalculateNaN {
				t.Errorf("%s: expected CALCULATE_NAN, got %v", name, c.ErrorCode())
			}
		}
		c.CalculateVega()
		if !c.IsNormal() || c.Result() != 0 {
			t.Errorf("vega: expected NORMAL 0, got %v %v", c.ErrorCode(), c.Result())
		}
	})

	t.Run("MissingFormula", func(t *testing.T) {
		c := calc.NewAnalyticCalculator(&stubPricer{params: stubParams()}, calc.DefaultConfig())
		for name, run := range map[string]func(){
			"delta": c.CalculateDelta, "gamma": c.CalculateGamma, "vega": c.CalculateVega,
			"theta": c.CalculateTheta, "rho": c.CalculateRho, "iv": c.CalculateImpliedVolatility,
		} {
			run()
			if c.ErrorCode() != calc.NotFoundMethod {
				t.Errorf("%s: expected NOT_FOUND_METHOD, got %v", name, c.ErrorCode())
			}
		}
	})

	t.Run("LinearFormula", func(t *testing.T) {
		stub := &stubPricer{params: stubParams(), formula: func(p calc.Params) float64 { return 2*p.Spot + 3 }}
		c := calc.NewAnalyticCalculator(stub, calc.DefaultConfig())
		c.CalculateDelta()
		if !approxEqual(c.Result(), 2, 1e-8) {
			t.Errorf("delta: expected 2, got %v", c.Result())
		}
		c.CalculateGamma()
		if !approxEqual(c.Result(), 0, 1e-6) {
			t.Errorf("gamma: expected 0, got %v", c.Result())
		}
	})
}

func TestCalculateImpliedVolatility(t *testing.T) {
	t.Run("CallOption_ATM", func(t *testing.T) {
		o := atmOption(option.Call, 0.5)
		o.SetTargetPrice(refCall)
		c := calc.NewAnalyticCalculator(o, calc.DefaultConfig())
		c.CalculateImpliedVolatility()
		if !c.IsNormal() {
			t.Fatalf("CalculateImpliedVolatility: %v", c.Err())
		}
		if !approxEqual(c.Result(), 0.2, 1e-6) {
			t.Errorf("implied vol: expected 0.2, got %v", c.Result())
		}
		if o.Volatility() != c.Result() {
			t.Errorf("instrument volatility not updated: got %v", o.Volatility())
		}
	})

	t.Run("RoundedMarketPrice", func(t *testing.T) {
		o := atmOption(option.Call, 0.5)
		o.SetTargetPrice(10.45)
		c := calc.NewAnalyticCalculator(o, calc.DefaultConfig())
		c.CalculateImpliedVolatility()
		if !c.IsNormal() {
			t.Fatalf("CalculateImpliedVolatility: %v", c.Err())
		}
		if !approxEqual(c.Result(), 0.199984448, 1e-6) {
			t.Errorf("implied vol: expected 0.199984, got %v", c.Result())
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		for _, typ := range []option.Type{option.Call, option.Put} {
			for _, strike := range []float64{80, 100, 120} {
				for _, vol := range []float64{0.05, 0.2, 0.5, 1.0, 2.5} {
					o := option.NewEuropean(underlying.NewSpot(100, 0.05, 0), typ, strike, 1, vol)
					target := option.BlackScholes(o.Snapshot(), typ == option.Call)
					o.SetVolatility(0.3)
					o.SetTargetPrice(target)

					c := calc.NewAnalyticCalculator(o, calc.DefaultConfig())
					c.CalculateImpliedVolatility()
					if !c.IsNormal() {
						t.Errorf("%v K=%v vol=%v: %v", typ, strike, vol, c.Err())
						continue
					}
					if !approxEqual(c.Result(), vol, 1e-6) {
						t.Errorf("%v K=%v: expected %v, got %v", typ, strike, vol, c.Result())
					}
				}
			}
		}
	})

	t.Run("GuessOnBracketEdge", func(t *testing.T) {
		for _, guess := range []float64{calc.MinImpliedVolatility, calc.MaxImpliedVolatility, 0, 10} {
			o := atmOption(option.Call, guess)
			o.SetTargetPrice(refCall)
			c := calc.NewAnalyticCalculator(o, calc.DefaultConfig())
			c.CalculateImpliedVolatility()
			if !c.IsNormal() || !approxEqual(c.Result(), 0.2, 1e-6) {
				t.Errorf("guess %v: expected 0.2, got %v (%v)", guess, c.Result(), c.ErrorCode())
			}
		}
	})

	t.Run("ExplicitTarget", func(t *testing.T) {
		o := atmOption(option.Put, 0.5)
		c := calc.NewAnalyticCalculator(o, calc.DefaultConfig())
		c.CalculateImpliedVolatilityFor(refPut)
		if !c.IsNormal() || !approxEqual(c.Result(), 0.2, 1e-6) {
			t.Errorf("expected 0.2, got %v (%v)", c.Result(), c.ErrorCode())
		}
	})

	t.Run("IterationBudgetExhausted", func(t *testing.T) {
		o := atmOption(option.Call, 0.5)
		o.SetTargetPrice(refCall)
		cfg := calc.DefaultConfig()
		cfg.Newton.MaxIterations = 1
		c := calc.NewAnalyticCalculator(o, cfg)
		c.CalculateImpliedVolatility()
		if c.ErrorCode() != calc.ReachMaxIteration {
			t.Fatalf("expected REACH_MAX_ITERATION, got %v", c.ErrorCode())
		}
		if math.IsNaN(c.Result()) {
			t.Error("expected the last estimate, got NaN")
		}
		if !errors.Is(c.Err(), calc.ErrReachMaxIteration) {
			t.Errorf("Err does not match ErrReachMaxIteration: %v", c.Err())
		}
		if o.Volatility() != 0.5 {
			t.Errorf("volatility written back without convergence: %v", o.Volatility())
		}
	})

	t.Run("TargetNotBracketed", func(t *testing.T) {
		for _, target := range []float64{200, 0.0001} {
			o := atmOption(option.Call, 0.5)
			o.SetTargetPrice(target)
			c := calc.NewAnalyticCalculator(o, calc.DefaultConfig())
			c.CalculateImpliedVolatility()
			if c.ErrorCode() != calc.CalculateFailed {
				t.Errorf("target %v: expected CALCULATE_FAILED, got %v", target, c.ErrorCode())
			}
			if o.Volatility() != 0.5 {
				t.Errorf("target %v: volatility changed to %v", target, o.Volatility())
			}
		}
	})

	t.Run("InvalidNewtonConfig", func(t *testing.T) {
		o := atmOption(option.Call, 0.5)
		o.SetTargetPrice(refCall)
		cfg := calc.DefaultConfig()
		cfg.Newton.Tolerance = 0
		c := calc.NewAnalyticCalculator(o, cfg)
		c.CalculateImpliedVolatility()
		if c.ErrorCode() != calc.CalculateFailed {
			t.Errorf("expected CALCULATE_FAILED, got %v", c.ErrorCode())
		}
	})

	t.Run("NaNPriceInsideSearch", func(t *testing.T) {
		stub := &stubPricer{params: stubParams(), formula: func(p calc.Params) float64 {
			if p.Volatility > 1 {
				return math.NaN()
			}
			return 100 * p.Volatility
		}}
		stub.params.TargetPrice = 20
		c := calc.NewAnalyticCalculator(stub, calc.DefaultConfig())
		c.CalculateImpliedVolatility()
		if c.ErrorCode() != calc.CalculateNaN {
			t.Errorf("expected CALCULATE_NAN, got %v", c.ErrorCode())
		}
		if stub.volSets != 0 {
			t.Errorf("volatility written back %d times", stub.volSets)
		}
	})
}

func TestInitialVolatility(t *testing.T) {
	p := calc.Params{Spot: 100, Strike: 120, Time: 0.5, Volatility: 0.3, Rate: 0.05}
	if got := calc.InitialVolatility(p, 100); got != 0.3 {
		t.Errorf("inside bracket: expected 0.3, got %v", got)
	}
	p.Volatility = 0
	want := math.Sqrt(math.Abs(math.Log(100.0/120))*2/0.5) + 0.1
	if got := calc.InitialVolatility(p, 100); !approxEqual(got, want, 1e-15) {
		t.Errorf("outside bracket: expected %v, got %v", want, got)
	}
}

func TestZeroValueConfig(t *testing.T) {
	var cfg calc.Config
	cfg.Precision.SetDelta(1e-15)

	c := calc.NewAnalyticCalculator(atmOption(option.Call, 0.2), cfg)
	if got := c.Config().Precision; got != calc.DefaultGreekPrecisionConfig() {
		t.Errorf("zero value precision not repaired: %+v", got)
	}

	ref := option.BlackScholesGreeks(atmOption(option.Call, 0.2).Snapshot(), true)
	cases := []struct {
		name string
		run  func()
		want float64
		tol  float64
	}{
		{"Delta", c.CalculateDelta, ref.Delta, 1e-4},
		{"Gamma", c.CalculateGamma, ref.Gamma, 1e-5},
		{"Vega", c.CalculateVega, ref.Vega, 1e-5},
		{"Theta", c.CalculateTheta, ref.Theta, 1e-5},
		{"Rho", c.CalculateRho, ref.Rho, 1e-7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.run()
			if !c.IsNormal() {
				t.Fatalf("%s: %v", tc.name, c.Err())
			}
			if !approxEqual(c.Result(), tc.want, tc.tol) {
				t.Errorf("%s: expected %v, got %v", tc.name, tc.want, c.Result())
			}
		})
	}
}
