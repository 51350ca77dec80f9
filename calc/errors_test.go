package calc_test

import (
	"errors"
	"math"
	"testing"

	"github.com/souvik131/optcalc/calc"
)

func TestErrorCodeString(t *testing.T) {
	cases := map[calc.ErrorCode]string{
		calc.Unset:             "UNSET",
		calc.Normal:            "NORMAL",
		calc.CalculateNaN:      "CALCULATE_NAN",
		calc.CalculateFailed:   "CALCULATE_FAILED",
		calc.NotFoundMethod:    "NOT_FOUND_METHOD",
		calc.ReachMaxIteration: "REACH_MAX_ITERATION",
		calc.UnsupportedMethod: "UNSUPPORTED_METHOD",
		calc.ErrorCode(42):     "ErrorCode(42)",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Errorf("String(%d): expected %q, got %q", int(code), want, got)
		}
	}
}

func TestErrorCodeErr(t *testing.T) {
	if err := calc.Normal.Err(); err != nil {
		t.Errorf("Normal.Err: expected nil, got %v", err)
	}
	if !errors.Is(calc.Unset.Err(), calc.ErrUnset) {
		t.Error("Unset.Err does not match ErrUnset")
	}
	if !errors.Is(calc.UnsupportedMethod.Err(), calc.ErrUnsupportedMethod) {
		t.Error("UnsupportedMethod.Err does not match ErrUnsupportedMethod")
	}
}

func TestErrorStateReset(t *testing.T) {
	var s calc.ErrorState
	s.Reset()
	if !math.IsNaN(s.Result()) {
		t.Errorf("Result after Reset: expected NaN, got %v", s.Result())
	}
	if s.ErrorCode() != calc.Unset {
		t.Errorf("ErrorCode after Reset: expected UNSET, got %v", s.ErrorCode())
	}
	if s.IsNormal() {
		t.Error("IsNormal after Reset: expected false")
	}
	if !errors.Is(s.Err(), calc.ErrUnset) {
		t.Errorf("Err after Reset: expected ErrUnset, got %v", s.Err())
	}
}

func TestErrorStateCleanedPerOperation(t *testing.T) {
	stub := &stubPricer{params: stubParams()}
	c := calc.NewAnalyticCalculator(stub, calc.DefaultConfig())

	c.CalculatePrice()
	if c.ErrorCode() != calc.NotFoundMethod {
		t.Fatalf("expected NOT_FOUND_METHOD, got %v", c.ErrorCode())
	}

	stub.formula = func(p calc.Params) float64 { return p.Spot }
	c.CalculatePrice()
	if !c.IsNormal() || c.Err() != nil {
		t.Fatalf("expected NORMAL with nil error, got %v (%v)", c.ErrorCode(), c.Err())
	}
	if c.Result() != 100 {
		t.Errorf("Result: expected 100, got %v", c.Result())
	}
}
