package calc

// Params is an immutable snapshot of every input a pricing formula reads.
// Bump-and-reprice works on modified copies, never on the instrument.
type Params struct {
	Spot        float64
	Strike      float64
	Time        float64 // years remaining
	Volatility  float64
	Rate        float64 // continuously compounded risk-free rate
	Dividend    float64 // continuous dividend or foreign rate
	TargetPrice float64 // observed price used by implied volatility
}

func (p Params) WithSpot(v float64) Params       { p.Spot = v; return p }
func (p Params) WithStrike(v float64) Params     { p.Strike = v; return p }
func (p Params) WithTime(v float64) Params       { p.Time = v; return p }
func (p Params) WithVolatility(v float64) Params { p.Volatility = v; return p }
func (p Params) WithRate(v float64) Params       { p.Rate = v; return p }

// PriceFunc is a pure pricing formula.
type PriceFunc func(Params) float64

// Pricer is the instrument capability the calculators consume.
type Pricer interface {
	// Snapshot returns the instrument's current parameters.
	Snapshot() Params
	// SetVolatility stores a solved implied volatility on the instrument.
	SetVolatility(vol float64)
	// Formula resolves the instrument's tagged pricing method to a function.
	// ok is false when the method is unknown for this instrument.
	Formula() (f PriceFunc, ok bool)
	// ForwardValue is the forward of the underlying at p.Time.
	ForwardValue(p Params) float64
}

// PathPricer is a Pricer that can also be priced by simulation.
type PathPricer interface {
	Pricer
	SupportsMonteCarlo() bool
	// PathDimension is the number of standard normals one path consumes.
	PathDimension() int
	// SimulatePath maps normals (len PathDimension) to an underlying path.
	SimulatePath(p Params, normals []float64) []float64
	// PathPayoff is the discounted payoff of one simulated path.
	PathPayoff(p Params, path []float64) float64
}
