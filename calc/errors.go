package calc

import (
	"errors"
	"fmt"
	"math"
)

// ErrorCode is the terminal status of a calculator operation.
type ErrorCode int

const (
	// Unset is the state between Reset and the end of an operation.
	Unset ErrorCode = iota
	Normal
	CalculateNaN
	CalculateFailed
	NotFoundMethod
	ReachMaxIteration
	UnsupportedMethod
)

var codeNames = map[ErrorCode]string{
	Unset:             "UNSET",
	Normal:            "NORMAL",
	CalculateNaN:      "CALCULATE_NAN",
	CalculateFailed:   "CALCULATE_FAILED",
	NotFoundMethod:    "NOT_FOUND_METHOD",
	ReachMaxIteration: "REACH_MAX_ITERATION",
	UnsupportedMethod: "UNSUPPORTED_METHOD",
}

func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

var (
	ErrUnset             = errors.New("calc: no calculation has completed")
	ErrCalculateNaN      = errors.New("calc: result is NaN")
	ErrCalculateFailed   = errors.New("calc: calculation failed")
	ErrNotFoundMethod    = errors.New("calc: pricing method not found on instrument")
	ErrReachMaxIteration = errors.New("calc: iteration budget exhausted")
	ErrUnsupportedMethod = errors.New("calc: method unsupported for instrument")
)

// Err maps a code to its sentinel error. Normal maps to nil.
func (c ErrorCode) Err() error {
	switch c {
	case Normal:
		return nil
	case CalculateNaN:
		return ErrCalculateNaN
	case CalculateFailed:
		return ErrCalculateFailed
	case NotFoundMethod:
		return ErrNotFoundMethod
	case ReachMaxIteration:
		return ErrReachMaxIteration
	case UnsupportedMethod:
		return ErrUnsupportedMethod
	default:
		return ErrUnset
	}
}

// codeError carries an ErrorCode through nested evaluations so that the
// outermost public operation can record it unchanged.
type codeError struct {
	code  ErrorCode
	cause error
}

func (e *codeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.code, e.cause)
	}
	return e.code.String()
}

func (e *codeError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.code.Err(), e.cause}
	}
	return []error{e.code.Err()}
}

func fail(code ErrorCode, cause error) error {
	return &codeError{code: code, cause: cause}
}

// codeOf extracts the ErrorCode from an error produced inside this package.
// Foreign errors count as CalculateFailed.
func codeOf(err error) ErrorCode {
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code
	}
	return CalculateFailed
}

// ErrorState is the result register shared by all calculators.
type ErrorState struct {
	result float64
	code   ErrorCode
	err    error
}

// Reset clears the register. Every public operation calls it first.
func (s *ErrorState) Reset() {
	s.result = math.NaN()
	s.code = Unset
	s.err = nil
}

func (s *ErrorState) Result() float64 { return s.result }

func (s *ErrorState) ErrorCode() ErrorCode { return s.code }

func (s *ErrorState) IsNormal() bool { return s.code == Normal }

// Err returns nil when the last operation was Normal. Otherwise the error
// matches the code's sentinel with errors.Is, plus the underlying cause.
func (s *ErrorState) Err() error {
	if s.code == Normal {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	return s.code.Err()
}

// finish records the terminal state of an operation. A nil error with a
// NaN value becomes CalculateNaN.
func (s *ErrorState) finish(v float64, err error) {
	if s.code != Unset {
		return
	}
	if err != nil {
		s.code = codeOf(err)
		s.err = err
		if s.code == ReachMaxIteration {
			s.result = v
		}
		return
	}
	if math.IsNaN(v) {
		s.code = CalculateNaN
		s.err = ErrCalculateNaN
		return
	}
	s.result = v
	s.code = Normal
}

// guard converts a panic escaping an operation into CalculateFailed.
// It must be deferred directly.
func (s *ErrorState) guard() {
	if r := recover(); r != nil {
		s.code = Unset
		s.finish(math.NaN(), fail(CalculateFailed, fmt.Errorf("panic: %v", r)))
	}
}
