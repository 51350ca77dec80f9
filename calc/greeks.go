package calc

import "math"

// evalFunc prices one snapshot. A non-nil error carries the ErrorCode of the
// failed evaluation and aborts the Greek that asked for it.
type evalFunc func(Params) (float64, error)

// midDiff returns the symmetric relative bump pair around x.
func midDiff(x, p float64) (lo, hi float64) {
	return x * (1 - p/2), x * (1 + p/2)
}

// backwardDiff returns the one-sided relative bump pair ending at x.
func backwardDiff(x, p float64) (lo, hi float64) {
	return x * (1 - p), x
}

// greekEngine computes bump-and-reprice sensitivities over snapshots. It
// never touches the instrument, so there is nothing to restore.
type greekEngine struct {
	precision GreekPrecisionConfig
	price     evalFunc
}

func (g greekEngine) pair(lo, hi Params) (float64, float64, error) {
	down, err := g.price(lo)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	up, err := g.price(hi)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return down, up, nil
}

// delta is the central difference on spot.
func (g greekEngine) delta(p Params) (float64, error) {
	lo, hi := midDiff(p.Spot, g.precision.Delta())
	down, up, err := g.pair(p.WithSpot(lo), p.WithSpot(hi))
	if err != nil {
		return math.NaN(), err
	}
	return (up - down) / (hi - lo), nil
}

// vega is the central difference on volatility per 1 vol point.
func (g greekEngine) vega(p Params) (float64, error) {
	lo, hi := midDiff(p.Volatility, g.precision.Vega())
	down, up, err := g.pair(p.WithVolatility(lo), p.WithVolatility(hi))
	if err != nil {
		return math.NaN(), err
	}
	return (up - down) / (hi - lo) / 100, nil
}

// theta is the backward difference on time remaining per calendar day.
func (g greekEngine) theta(p Params) (float64, error) {
	prec := g.precision.Theta()
	lo, _ := backwardDiff(p.Time, prec)
	shorter, base, err := g.pair(p.WithTime(lo), p)
	if err != nil {
		return math.NaN(), err
	}
	return (shorter - base) / (p.Time * prec) / 365, nil
}

// gamma differences two deltas taken at bumped spots.
func (g greekEngine) gamma(p Params) (float64, error) {
	prec := g.precision.Gamma()
	lo, hi := midDiff(p.Spot, prec)
	down, err := g.delta(p.WithSpot(lo))
	if err != nil {
		return math.NaN(), err
	}
	up, err := g.delta(p.WithSpot(hi))
	if err != nil {
		return math.NaN(), err
	}
	return (up - down) / (p.Spot * prec), nil
}

// rho is the central difference on the rate per basis point. A zero rate
// has no relative bump, so it is bumped by the precision itself.
func (g greekEngine) rho(p Params) (float64, error) {
	prec := g.precision.Rho()
	lo, hi := p.Rate*(1-prec), p.Rate*(1+prec)
	if p.Rate == 0 {
		lo, hi = -prec, prec
	}
	down, up, err := g.pair(p.WithRate(lo), p.WithRate(hi))
	if err != nil {
		return math.NaN(), err
	}
	return (up - down) / (hi - lo) / 10000, nil
}
