package recur

import "errors"

var (
	// ErrInvalidEvent is returned before any expansion when an event or its
	// rule is misconfigured (end before start, negative interval).
	ErrInvalidEvent = errors.New("recur: invalid event")

	// ErrOutOfRange is returned when calendar arithmetic leaves the
	// representable range of years 0001-9999.
	ErrOutOfRange = errors.New("recur: instant out of range")

	// ErrIterationBudgetExceeded is returned when the positional stepping loop
	// runs out of iterations or its context is done before reaching the end bound.
	ErrIterationBudgetExceeded = errors.New("recur: iteration budget exceeded")

	// ErrNotImplemented is returned for patterns that are reserved but not
	// supported, such as the "last weekday of month" variant.
	ErrNotImplemented = errors.New("recur: pattern not implemented")
)
