package calc

import (
	"fmt"
	"math"

	"github.com/souvik131/optcalc/logging"
	"go.uber.org/zap"
)

// AnalyticCalculator prices through the instrument's closed-form formula and
// derives Greeks and implied volatility by finite differences.
type AnalyticCalculator struct {
	ErrorState
	pricer Pricer
	cfg    Config
	log    *zap.Logger
}

func NewAnalyticCalculator(p Pricer, cfg Config) *AnalyticCalculator {
	cfg.Precision = cfg.Precision.orDefault()
	c := &AnalyticCalculator{pricer: p, cfg: cfg, log: logging.Named("calc.analytic")}
	c.Reset()
	return c
}

func (c *AnalyticCalculator) Pricer() Pricer { return c.pricer }
func (c *AnalyticCalculator) Config() Config { return c.cfg }

// engine resolves the instrument formula once for the current operation.
func (c *AnalyticCalculator) engine() (greekEngine, error) {
	f, ok := c.pricer.Formula()
	if !ok || f == nil {
		return greekEngine{}, fail(NotFoundMethod, nil)
	}
	return greekEngine{precision: c.cfg.Precision, price: formulaEval(f)}, nil
}

// formulaEval adapts a pure formula to the evaluation contract: a NaN price
// is an error, so enclosing Greeks and solvers stop at the first one.
func formulaEval(f PriceFunc) evalFunc {
	return func(p Params) (float64, error) {
		v := f(p)
		if math.IsNaN(v) {
			return v, fail(CalculateNaN, fmt.Errorf("price is NaN at %+v", p))
		}
		return v, nil
	}
}

func (c *AnalyticCalculator) CalculatePrice() {
	c.Reset()
	defer c.guard()

	g, err := c.engine()
	if err != nil {
		c.finish(math.NaN(), err)
		return
	}
	c.finish(g.price(c.pricer.Snapshot()))
}

// CalculateImpliedVolatility solves against the instrument's target price.
func (c *AnalyticCalculator) CalculateImpliedVolatility() {
	c.Reset()
	defer c.guard()
	c.solveImpliedVolatility(c.pricer.Snapshot().TargetPrice)
}

// CalculateImpliedVolatilityFor solves against an explicit market price.
func (c *AnalyticCalculator) CalculateImpliedVolatilityFor(target float64) {
	c.Reset()
	defer c.guard()
	c.solveImpliedVolatility(target)
}

func (c *AnalyticCalculator) solveImpliedVolatility(target float64) {
	if err := c.cfg.Newton.Validate(); err != nil {
		c.finish(math.NaN(), fail(CalculateFailed, err))
		return
	}
	g, err := c.engine()
	if err != nil {
		c.finish(math.NaN(), err)
		return
	}

	p := c.pricer.Snapshot()
	guess := InitialVolatility(p, c.pricer.ForwardValue(p))
	root, err := volSolver{cfg: c.cfg.Newton, engine: g}.solve(p, target, guess)
	switch {
	case err == nil && !math.IsNaN(root):
		c.pricer.SetVolatility(root)
	case codeOf(err) == ReachMaxIteration:
		c.log.Warn("implied volatility did not converge",
			zap.Float64("target", target),
			zap.Float64("estimate", root),
			zap.Int("maxIterations", c.cfg.Newton.MaxIterations))
	case err != nil:
		c.log.Debug("implied volatility failed", zap.Float64("target", target), zap.Error(err))
	}
	c.finish(root, err)
}

func (c *AnalyticCalculator) CalculateDelta() { c.CalculateGreek(Delta) }
func (c *AnalyticCalculator) CalculateGamma() { c.CalculateGreek(Gamma) }
func (c *AnalyticCalculator) CalculateVega()  { c.CalculateGreek(Vega) }
func (c *AnalyticCalculator) CalculateTheta() { c.CalculateGreek(Theta) }
func (c *AnalyticCalculator) CalculateRho()   { c.CalculateGreek(Rho) }

func (c *AnalyticCalculator) CalculateGreek(greek Greek) {
	c.Reset()
	defer c.guard()

	method, ok := greek.method()
	if !ok {
		c.finish(math.NaN(), fail(CalculateFailed, fmt.Errorf("unknown greek %d", int(greek))))
		return
	}
	g, err := c.engine()
	if err != nil {
		c.finish(math.NaN(), err)
		return
	}
	v, err := method(g, c.pricer.Snapshot())
	if err != nil {
		c.log.Debug("greek aborted", zap.Stringer("greek", greek), zap.Stringer("code", codeOf(err)), zap.Error(err))
	}
	c.finish(v, err)
}
