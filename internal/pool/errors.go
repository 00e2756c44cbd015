package pool

import "errors"

// Class separates structural invariant violations, which signal a
// modeling gap and abort the replay, from numeric guards that mirror
// on-chain require checks.
type Class int

const (
	ClassInvariant Class = iota
	ClassNumericGuard
)

// Error is a revert-style failure raised by a ledger operation. The code
// matches the on-chain require label it reproduces.
type Error struct {
	Code  string
	Class Class
}

func (e *Error) Error() string { return e.Code }

var (
	ErrNotBound       = &Error{Code: "ERR_NOT_BOUND", Class: ClassInvariant}
	ErrIsBound        = &Error{Code: "ERR_ALREADY_BOUND", Class: ClassInvariant}
	ErrMaxTokens      = &Error{Code: "ERR_MAX_TOKENS", Class: ClassInvariant}
	ErrMinWeight      = &Error{Code: "ERR_MIN_WEIGHT", Class: ClassInvariant}
	ErrMaxWeight      = &Error{Code: "ERR_MAX_WEIGHT", Class: ClassInvariant}
	ErrMinBalance     = &Error{Code: "ERR_MIN_BALANCE", Class: ClassInvariant}
	ErrMaxTotalWeight = &Error{Code: "ERR_MAX_TOTAL_WEIGHT", Class: ClassInvariant}

	ErrMaxInRatio    = &Error{Code: "ERR_MAX_IN_RATIO", Class: ClassNumericGuard}
	ErrMaxOutRatio   = &Error{Code: "ERR_MAX_OUT_RATIO", Class: ClassNumericGuard}
	ErrBadLimitPrice = &Error{Code: "ERR_BAD_LIMIT_PRICE", Class: ClassNumericGuard}
	ErrLimitPrice    = &Error{Code: "ERR_LIMIT_PRICE", Class: ClassNumericGuard}
	ErrLimitIn       = &Error{Code: "ERR_LIMIT_IN", Class: ClassNumericGuard}
	ErrLimitOut      = &Error{Code: "ERR_LIMIT_OUT", Class: ClassNumericGuard}
	ErrMathApprox    = &Error{Code: "ERR_MATH_APPROX", Class: ClassNumericGuard}
)

// IsNumericGuard reports whether err is (or wraps) a numeric guard.
func IsNumericGuard(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Class == ClassNumericGuard
}

// IsInvariantViolation reports whether err is (or wraps) a structural
// invariant violation.
func IsInvariantViolation(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Class == ClassInvariant
}
