// Package config loads calculator settings from .env files and the process
// environment. Every key carries the OPTCALC_ prefix.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/souvik131/optcalc/calc"
	"github.com/souvik131/optcalc/logging"
	"github.com/souvik131/optcalc/volatility"
	"go.uber.org/multierr"
)

const (
	KeyNewtonTolerance     = "OPTCALC_NEWTON_TOLERANCE"
	KeyNewtonMaxIterations = "OPTCALC_NEWTON_MAX_ITERATIONS"
	KeyPrecisionDelta      = "OPTCALC_PRECISION_DELTA"
	KeyPrecisionGamma      = "OPTCALC_PRECISION_GAMMA"
	KeyPrecisionVega       = "OPTCALC_PRECISION_VEGA"
	KeyPrecisionTheta      = "OPTCALC_PRECISION_THETA"
	KeyPrecisionRho        = "OPTCALC_PRECISION_RHO"
	KeyMCPaths             = "OPTCALC_MC_PATHS"
	KeyMCErrorMultiplier   = "OPTCALC_MC_ERROR_MULTIPLIER"
	KeyMCSeed              = "OPTCALC_MC_SEED"
	KeyMCAntithetic        = "OPTCALC_MC_ANTITHETIC"
	KeyMCWorkers           = "OPTCALC_MC_WORKERS"
	KeyCalibrationWorkers  = "OPTCALC_CALIBRATION_WORKERS"
	KeyLogLevel            = "OPTCALC_LOG_LEVEL"
	KeyLogFormat           = "OPTCALC_LOG_FORMAT"
	KeyLogOutput           = "OPTCALC_LOG_OUTPUT"
)

const prefix = "OPTCALC_"

type Config struct {
	Calc               calc.Config
	Logging            logging.Config
	CalibrationWorkers int
}

func Default() Config {
	return Config{
		Calc:    calc.DefaultConfig(),
		Logging: logging.DefaultConfig(),
	}
}

// Load reads the given .env files, or ./.env when none are given and it
// exists, then overlays OPTCALC_ variables from the process environment.
func Load(files ...string) (Config, error) {
	values := map[string]string{}
	if len(files) == 0 {
		if env, err := godotenv.Read(); err == nil {
			for k, v := range env {
				values[k] = v
			}
		}
	} else {
		env, err := godotenv.Read(files...)
		if err != nil {
			return Default(), err
		}
		for k, v := range env {
			values[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, prefix) {
			values[k] = v
		}
	}
	return FromMap(values)
}

// FromMap builds a Config from key/value pairs over the defaults. Unknown
// keys are ignored; every malformed value is reported.
func FromMap(values map[string]string) (Config, error) {
	cfg := Default()
	p := parser{values: values}

	p.floatValue(KeyNewtonTolerance, func(v float64) { cfg.Calc.Newton.Tolerance = v })
	p.intValue(KeyNewtonMaxIterations, func(v int) { cfg.Calc.Newton.MaxIterations = v })

	prec := &cfg.Calc.Precision
	p.floatValue(KeyPrecisionDelta, prec.SetDelta)
	p.floatValue(KeyPrecisionGamma, prec.SetGamma)
	p.floatValue(KeyPrecisionVega, prec.SetVega)
	p.floatValue(KeyPrecisionTheta, prec.SetTheta)
	p.floatValue(KeyPrecisionRho, prec.SetRho)

	mc := &cfg.Calc.MonteCarlo
	p.intValue(KeyMCPaths, func(v int) { mc.Paths = v })
	p.floatValue(KeyMCErrorMultiplier, func(v float64) { mc.ErrorMultiplier = v })
	p.uintValue(KeyMCSeed, func(v uint64) { mc.Seed = v })
	p.boolValue(KeyMCAntithetic, func(v bool) { mc.Antithetic = v })
	p.intValue(KeyMCWorkers, func(v int) { mc.Workers = v })
	p.intValue(KeyCalibrationWorkers, func(v int) { cfg.CalibrationWorkers = v })

	if v, ok := values[KeyLogLevel]; ok {
		cfg.Logging.Level = v
	}
	if v, ok := values[KeyLogFormat]; ok {
		cfg.Logging.Format = v
	}
	if v, ok := values[KeyLogOutput]; ok {
		cfg.Logging.Output = v
	}

	err := p.err
	err = multierr.Append(err, cfg.Calc.Newton.Validate())
	err = multierr.Append(err, cfg.Calc.MonteCarlo.Validate())
	return cfg, err
}

// Calibration returns the settings of a Heston surface calibration.
func (c Config) Calibration() volatility.CalibrationConfig {
	return volatility.CalibrationConfig{Calc: c.Calc, Workers: c.CalibrationWorkers}
}

// InitLogging rebuilds the global logger from the loaded settings.
func (c Config) InitLogging() error {
	return logging.Initialize(c.Logging)
}

type parser struct {
	values map[string]string
	err    error
}

func (p *parser) lookup(key string) (string, bool) {
	v, ok := p.values[key]
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func (p *parser) floatValue(key string, set func(float64)) {
	s, ok := p.lookup(key)
	if !ok {
		return
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = multierr.Append(p.err, &ValueError{Key: key, Value: s, Err: err})
		return
	}
	set(v)
}

func (p *parser) intValue(key string, set func(int)) {
	s, ok := p.lookup(key)
	if !ok {
		return
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.err = multierr.Append(p.err, &ValueError{Key: key, Value: s, Err: err})
		return
	}
	set(v)
}

func (p *parser) uintValue(key string, set func(uint64)) {
	s, ok := p.lookup(key)
	if !ok {
		return
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		p.err = multierr.Append(p.err, &ValueError{Key: key, Value: s, Err: err})
		return
	}
	set(v)
}

func (p *parser) boolValue(key string, set func(bool)) {
	s, ok := p.lookup(key)
	if !ok {
		return
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		p.err = multierr.Append(p.err, &ValueError{Key: key, Value: s, Err: err})
		return
	}
	set(v)
}

// ValueError reports a malformed configuration value.
type ValueError struct {
	Key   string
	Value string
	Err   error
}

func (e *ValueError) Error() string {
	return "config: " + e.Key + "=" + strconv.Quote(e.Value) + ": " + e.Err.Error()
}

func (e *ValueError) Unwrap() error { return e.Err }
