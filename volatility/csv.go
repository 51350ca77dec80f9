package volatility

import (
	"fmt"
	"io"
	"sort"

	"github.com/gocarina/gocsv"
)

// Point is one surface cell in long CSV format.
type Point struct {
	Moneyness  float64 `csv:"moneyness"`
	Time       float64 `csv:"time"`
	Volatility float64 `csv:"volatility"`
}

// Points returns the cells ordered by moneyness, then time.
func (s *Surface) Points() []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Point, 0, len(s.moneyness)*len(s.times))
	for i, m := range s.moneyness {
		for j, t := range s.times {
			out = append(out, Point{Moneyness: m, Time: t, Volatility: s.grid[i][j]})
		}
	}
	return out
}

// WriteCSV writes the surface as a header line plus one row per cell.
func (s *Surface) WriteCSV(w io.Writer) error {
	points := s.Points()
	return gocsv.Marshal(&points, w)
}

// ReadCSV builds a surface from WriteCSV output. Rows may come in any order
// but must cover every (moneyness, time) pair exactly once.
func ReadCSV(r io.Reader) (*Surface, error) {
	var points []Point
	if err := gocsv.Unmarshal(r, &points); err != nil {
		return nil, fmt.Errorf("volatility: read csv: %w", err)
	}
	return FromPoints(points)
}

// FromPoints assembles a surface from a complete set of cells.
func FromPoints(points []Point) (*Surface, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("volatility: no points")
	}
	moneyness := uniqueSorted(points, func(p Point) float64 { return p.Moneyness })
	times := uniqueSorted(points, func(p Point) float64 { return p.Time })
	if len(moneyness)*len(times) != len(points) {
		return nil, fmt.Errorf("volatility: %d points do not fill a %dx%d grid", len(points), len(moneyness), len(times))
	}

	mi := index(moneyness)
	ti := index(times)
	grid := make([][]float64, len(moneyness))
	seen := make([][]bool, len(moneyness))
	for i := range grid {
		grid[i] = make([]float64, len(times))
		seen[i] = make([]bool, len(times))
	}
	for _, p := range points {
		i, j := mi[p.Moneyness], ti[p.Time]
		if seen[i][j] {
			return nil, fmt.Errorf("volatility: duplicate point at moneyness %g, time %g", p.Moneyness, p.Time)
		}
		seen[i][j] = true
		grid[i][j] = p.Volatility
	}
	return NewSurface(moneyness, times, grid)
}

func uniqueSorted(points []Point, key func(Point) float64) []float64 {
	set := make(map[float64]struct{}, len(points))
	for _, p := range points {
		set[key(p)] = struct{}{}
	}
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func index(axis []float64) map[float64]int {
	m := make(map[float64]int, len(axis))
	for i, v := range axis {
		m[v] = i
	}
	return m
}
