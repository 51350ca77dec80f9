package volatility

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/souvik131/optcalc/calc"
	"github.com/souvik131/optcalc/logging"
	"github.com/souvik131/optcalc/option"
	"github.com/souvik131/optcalc/underlying"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CalibrationConfig controls a Heston surface calibration.
type CalibrationConfig struct {
	// Calc configures the per-cell price and implied volatility solve.
	Calc calc.Config
	// Workers caps the cells solved concurrently. Zero means GOMAXPROCS.
	Workers int
}

func DefaultCalibrationConfig() CalibrationConfig {
	return CalibrationConfig{Calc: calc.DefaultConfig()}
}

func (c CalibrationConfig) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// HestonVolatilitySurface calibrates a new surface on the default axes.
func HestonVolatilitySurface(ctx context.Context, h option.HestonParams, u *underlying.Underlying, initialVol float64, cfg CalibrationConfig) (*Surface, error) {
	s := NewFlatSurface(math.NaN())
	err := s.CalibrateHeston(ctx, h, u, initialVol, cfg)
	return s, err
}

// CalibrateHeston fills every cell with the Black-Scholes implied volatility
// of the Heston price of an out-of-the-money option at strike spot*moneyness
// and that maturity. Cells that fail are NaN; cells that ran out of
// iterations keep their estimate. Both are reported in the combined error.
// A cancelled ctx leaves the surface unchanged.
func (s *Surface) CalibrateHeston(ctx context.Context, h option.HestonParams, u *underlying.Underlying, initialVol float64, cfg CalibrationConfig) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("calibrate heston: nil underlying")
	}
	log := logging.Named("volatility")

	moneyness, times := s.Moneyness(), s.Times()
	grid := make([][]float64, len(moneyness))
	for i := range grid {
		grid[i] = make([]float64, len(times))
	}
	cellErrs := make([]error, len(moneyness)*len(times))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for i, m := range moneyness {
		for j, t := range times {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				vol, err := hestonImpliedVolatility(h, u, m, t, initialVol, cfg.Calc)
				grid[i][j] = vol
				if err != nil {
					cellErrs[i*len(times)+j] = fmt.Errorf("cell (moneyness %g, time %g): %w", m, t, err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("calibrate heston: %w", err)
	}

	s.mu.Lock()
	s.grid = grid
	s.mu.Unlock()

	err := multierr.Combine(cellErrs...)
	if err != nil {
		log.Warn("heston calibration incomplete",
			zap.Int("failedCells", len(multierr.Errors(err))),
			zap.Int("cells", len(cellErrs)),
			zap.Error(err))
	}
	return err
}

// hestonImpliedVolatility prices one cell with the Heston formula and
// inverts the price with Black-Scholes.
func hestonImpliedVolatility(h option.HestonParams, u *underlying.Underlying, moneyness, t, initialVol float64, cfg calc.Config) (float64, error) {
	typ := option.Call
	if moneyness < 1 {
		typ = option.Put
	}
	o := option.NewEuropean(u, typ, u.SpotPrice()*moneyness, t, initialVol)
	o.SetHestonParams(h)
	o.SetMethod(option.MethodHeston)

	c := calc.NewAnalyticCalculator(o, cfg)
	c.CalculatePrice()
	if !c.IsNormal() {
		return math.NaN(), fmt.Errorf("heston price: %w", c.Err())
	}
	o.SetTargetPrice(c.Result())
	o.SetMethod(option.MethodBSM)

	c.CalculateImpliedVolatility()
	switch c.ErrorCode() {
	case calc.Normal:
		return c.Result(), nil
	case calc.ReachMaxIteration:
		return c.Result(), c.Err()
	}
	return math.NaN(), c.Err()
}
