package calc

// Calculator is a pricing strategy bound to one instrument. Every operation
// resets the embedded register, then leaves a single terminal ErrorCode and,
// when that code allows it, a Result.
type Calculator interface {
	CalculatePrice()
	CalculateImpliedVolatility()
	CalculateDelta()
	CalculateGamma()
	CalculateVega()
	CalculateTheta()
	CalculateRho()

	Result() float64
	ErrorCode() ErrorCode
	IsNormal() bool
	Err() error
}

var (
	_ Calculator = (*AnalyticCalculator)(nil)
	_ Calculator = (*MonteCarloCalculator)(nil)
)

// Greek names one finite-difference sensitivity.
type Greek int

const (
	Delta Greek = iota
	Gamma
	Vega
	Theta
	Rho
)

var greekNames = [...]string{"delta", "gamma", "vega", "theta", "rho"}

func (g Greek) String() string {
	if g >= 0 && int(g) < len(greekNames) {
		return greekNames[g]
	}
	return "unknown"
}

func (g Greek) method() (func(greekEngine, Params) (float64, error), bool) {
	switch g {
	case Delta:
		return greekEngine.delta, true
	case Gamma:
		return greekEngine.gamma, true
	case Vega:
		return greekEngine.vega, true
	case Theta:
		return greekEngine.theta, true
	case Rho:
		return greekEngine.rho, true
	}
	return nil, false
}
