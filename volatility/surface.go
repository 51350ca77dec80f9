// Package volatility builds and queries implied volatility surfaces indexed
// by moneyness (strike / spot) and time to maturity.
package volatility

import (
	"fmt"
	"math"
	"sync"
)

var (
	defaultMoneyness = []float64{0.8, 0.9, 1.0, 1.1, 1.2}
	defaultTimes     = []float64{1.0 / 12, 2.0 / 12, 3.0 / 12, 6.0 / 12, 12.0 / 12}
)

// DefaultMoneyness returns the default moneyness axis.
func DefaultMoneyness() []float64 { return clone(defaultMoneyness) }

// DefaultTimes returns the default maturity axis in years.
func DefaultTimes() []float64 { return clone(defaultTimes) }

// Surface is a grid of volatilities, grid[i][j] at (moneyness[i], times[j]).
// It is safe for concurrent use.
type Surface struct {
	mu            sync.RWMutex
	moneyness     []float64
	times         []float64
	grid          [][]float64
	interpolation string
	extrapolation string
}

// NewSurface copies the axes and grid. Axes must be non-empty and strictly
// increasing and grid must be len(moneyness) rows of len(times).
func NewSurface(moneyness, times []float64, grid [][]float64) (*Surface, error) {
	if err := checkAxis("moneyness", moneyness); err != nil {
		return nil, err
	}
	if err := checkAxis("time", times); err != nil {
		return nil, err
	}
	if err := checkGrid(grid, len(moneyness), len(times)); err != nil {
		return nil, err
	}
	return &Surface{
		moneyness:     clone(moneyness),
		times:         clone(times),
		grid:          cloneGrid(grid),
		interpolation: InterpolationNatural,
		extrapolation: ExtrapolationNatural,
	}, nil
}

// NewFlatSurface returns a surface on the default axes with every cell set
// to vol.
func NewFlatSurface(vol float64) *Surface {
	return newFilled(defaultMoneyness, defaultTimes, vol)
}

// NewEmptySurface returns a surface on the given axes with NaN cells, ready
// for calibration. Nil axes select the defaults.
func NewEmptySurface(moneyness, times []float64) (*Surface, error) {
	if moneyness == nil {
		moneyness = defaultMoneyness
	}
	if times == nil {
		times = defaultTimes
	}
	if err := checkAxis("moneyness", moneyness); err != nil {
		return nil, err
	}
	if err := checkAxis("time", times); err != nil {
		return nil, err
	}
	return newFilled(moneyness, times, math.NaN()), nil
}

func newFilled(moneyness, times []float64, v float64) *Surface {
	grid := make([][]float64, len(moneyness))
	for i := range grid {
		grid[i] = make([]float64, len(times))
		for j := range grid[i] {
			grid[i][j] = v
		}
	}
	return &Surface{
		moneyness:     clone(moneyness),
		times:         clone(times),
		grid:          grid,
		interpolation: InterpolationNatural,
		extrapolation: ExtrapolationNatural,
	}
}

func (s *Surface) Moneyness() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.moneyness)
}

func (s *Surface) Times() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.times)
}

func (s *Surface) Grid() [][]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGrid(s.grid)
}

// SetGrid replaces the grid, keeping the axes.
func (s *Surface) SetGrid(grid [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkGrid(grid, len(s.moneyness), len(s.times)); err != nil {
		return err
	}
	s.grid = cloneGrid(grid)
	return nil
}

func (s *Surface) Interpolation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interpolation
}

func (s *Surface) Extrapolation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extrapolation
}

func (s *Surface) SetInterpolation(name string) error {
	if err := checkInterpolation(name); err != nil {
		return err
	}
	s.mu.Lock()
	s.interpolation = name
	s.mu.Unlock()
	return nil
}

func (s *Surface) SetExtrapolation(name string) error {
	if err := checkExtrapolation(name); err != nil {
		return err
	}
	s.mu.Lock()
	s.extrapolation = name
	s.mu.Unlock()
	return nil
}

// Volatility interpolates along time within each moneyness row, then across
// moneyness.
func (s *Surface) Volatility(moneyness, t float64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	column := make([]float64, len(s.moneyness))
	for i, row := range s.grid {
		v, err := interp1(s.times, row, t, s.interpolation, s.extrapolation)
		if err != nil {
			return math.NaN(), fmt.Errorf("volatility at moneyness %g: %w", s.moneyness[i], err)
		}
		column[i] = v
	}
	v, err := interp1(s.moneyness, column, moneyness, s.interpolation, s.extrapolation)
	if err != nil {
		return math.NaN(), fmt.Errorf("volatility at time %g: %w", t, err)
	}
	return v, nil
}

// ShiftVolatility adds diff to every cell.
func (s *Surface) ShiftVolatility(diff float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.grid {
		for j := range row {
			row[j] += diff
		}
	}
}

func checkAxis(name string, axis []float64) error {
	if len(axis) == 0 {
		return fmt.Errorf("%s axis is empty", name)
	}
	for i := 1; i < len(axis); i++ {
		if !(axis[i] > axis[i-1]) {
			return fmt.Errorf("%s axis is not strictly increasing at index %d", name, i)
		}
	}
	return nil
}

func checkGrid(grid [][]float64, rows, cols int) error {
	if len(grid) != rows {
		return fmt.Errorf("grid has %d rows, want %d", len(grid), rows)
	}
	for i, row := range grid {
		if len(row) != cols {
			return fmt.Errorf("grid row %d has %d columns, want %d", i, len(row), cols)
		}
	}
	return nil
}

func clone(x []float64) []float64 {
	return append([]float64(nil), x...)
}

func cloneGrid(g [][]float64) [][]float64 {
	out := make([][]float64, len(g))
	for i, row := range g {
		out[i] = clone(row)
	}
	return out
}
