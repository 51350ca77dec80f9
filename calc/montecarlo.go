package calc

import (
	"context"
	"fmt"
	"math"

	"github.com/souvik131/optcalc/logging"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// pathChunk is the number of paths drawn from one generator. Chunks are
// seeded from the config seed and their index, so the draws are the same
// however the chunks are scheduled.
const pathChunk = 1024

// MonteCarloCalculator prices by simulating paths of the instrument's
// underlying and averaging discounted payoffs.
type MonteCarloCalculator struct {
	ErrorState
	pricer  Pricer
	cfg     Config
	mcError float64
	log     *zap.Logger
}

func NewMonteCarloCalculator(p Pricer, cfg Config) *MonteCarloCalculator {
	cfg.Precision = cfg.Precision.orDefault()
	c := &MonteCarloCalculator{pricer: p, cfg: cfg, log: logging.Named("calc.montecarlo")}
	c.Reset()
	return c
}

func (c *MonteCarloCalculator) Pricer() Pricer { return c.pricer }
func (c *MonteCarloCalculator) Config() Config { return c.cfg }

func (c *MonteCarloCalculator) Reset() {
	c.ErrorState.Reset()
	c.mcError = math.NaN()
}

// MonteCarloError is the standard error of the last simulated price, scaled
// by the configured multiplier. NaN when the last operation was not a price.
func (c *MonteCarloCalculator) MonteCarloError() float64 { return c.mcError }

type estimate struct {
	mean   float64
	stdErr float64
}

func (c *MonteCarloCalculator) pathPricer() (PathPricer, error) {
	pp, ok := c.pricer.(PathPricer)
	if !ok || !pp.SupportsMonteCarlo() {
		return nil, fail(UnsupportedMethod, fmt.Errorf("%T cannot be priced by simulation", c.pricer))
	}
	return pp, nil
}

func (c *MonteCarloCalculator) CalculatePrice() {
	c.CalculatePriceContext(context.Background())
}

func (c *MonteCarloCalculator) CalculatePriceContext(ctx context.Context) {
	c.Reset()
	defer c.guard()

	pp, err := c.pathPricer()
	if err != nil {
		c.finish(math.NaN(), err)
		return
	}
	est, err := c.simulate(ctx, pp, pp.Snapshot())
	if err == nil {
		c.mcError = est.stdErr
	}
	c.finish(est.mean, err)
}

// CalculateImpliedVolatility is not available under simulation.
func (c *MonteCarloCalculator) CalculateImpliedVolatility() {
	c.Reset()
	defer c.guard()
	c.finish(math.NaN(), fail(UnsupportedMethod, fmt.Errorf("implied volatility by simulation")))
}

func (c *MonteCarloCalculator) CalculateDelta() { c.CalculateGreekContext(context.Background(), Delta) }
func (c *MonteCarloCalculator) CalculateGamma() { c.CalculateGreekContext(context.Background(), Gamma) }
func (c *MonteCarloCalculator) CalculateVega()  { c.CalculateGreekContext(context.Background(), Vega) }
func (c *MonteCarloCalculator) CalculateTheta() { c.CalculateGreekContext(context.Background(), Theta) }
func (c *MonteCarloCalculator) CalculateRho()   { c.CalculateGreekContext(context.Background(), Rho) }

// CalculateGreekContext bumps and re-simulates with the same seeded draws for
// every evaluation, so the difference is not swamped by sampling noise.
func (c *MonteCarloCalculator) CalculateGreekContext(ctx context.Context, greek Greek) {
	c.Reset()
	defer c.guard()

	method, ok := greek.method()
	if !ok {
		c.finish(math.NaN(), fail(CalculateFailed, fmt.Errorf("unknown greek %d", int(greek))))
		return
	}
	pp, err := c.pathPricer()
	if err != nil {
		c.finish(math.NaN(), err)
		return
	}
	g := greekEngine{
		precision: c.cfg.Precision,
		price: func(p Params) (float64, error) {
			est, err := c.simulate(ctx, pp, p)
			return est.mean, err
		},
	}
	v, err := method(g, pp.Snapshot())
	if err != nil {
		c.log.Debug("greek aborted", zap.Stringer("greek", greek), zap.Stringer("code", codeOf(err)), zap.Error(err))
	}
	c.finish(v, err)
}

func (c *MonteCarloCalculator) simulate(ctx context.Context, pp PathPricer, p Params) (estimate, error) {
	bad := estimate{mean: math.NaN(), stdErr: math.NaN()}
	cfg := c.cfg.MonteCarlo
	if err := cfg.Validate(); err != nil {
		return bad, fail(CalculateFailed, err)
	}
	dim := pp.PathDimension()
	if dim <= 0 {
		return bad, fail(CalculateFailed, fmt.Errorf("path dimension must be positive, got %d", dim))
	}

	payoffs := make([]float64, cfg.Paths)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for start := 0; start < cfg.Paths; start += pathChunk {
		end := min(start+pathChunk, cfg.Paths)
		seed := chunkSeed(cfg.Seed, start/pathChunk)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("path simulation panic: %v", r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed))
			z := make([]float64, dim)
			for k := start; k < end; k++ {
				if cfg.Antithetic && k%2 == 1 {
					for i := range z {
						z[i] = -z[i]
					}
				} else {
					for i := range z {
						z[i] = rng.NormFloat64()
					}
				}
				payoffs[k] = pp.PathPayoff(p, pp.SimulatePath(p, z))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Debug("simulation aborted", zap.Int("paths", cfg.Paths), zap.Error(err))
		return bad, fail(CalculateFailed, err)
	}

	samples := payoffs
	if cfg.Antithetic {
		samples = pairMeans(payoffs)
	}
	mean, std := stat.MeanStdDev(samples, nil)
	if math.IsNaN(mean) {
		return bad, fail(CalculateNaN, fmt.Errorf("mean payoff is NaN"))
	}
	return estimate{
		mean:   mean,
		stdErr: stat.StdErr(std, float64(len(samples))) * cfg.ErrorMultiplier,
	}, nil
}

// pairMeans averages each antithetic pair into one independent sample.
func pairMeans(x []float64) []float64 {
	out := make([]float64, len(x)/2)
	for i := range out {
		out[i] = 0.5 * (x[2*i] + x[2*i+1])
	}
	return out
}

// chunkSeed derives a well separated seed per chunk with a splitmix64 step.
func chunkSeed(seed uint64, chunk int) uint64 {
	z := seed + uint64(chunk+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
