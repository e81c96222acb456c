package query

import "errors"

var (
	// ErrMalformedVariableSyntax is returned for ids starting with '?' that
	// are not of the form ?Name or ?Name(Type).
	ErrMalformedVariableSyntax = errors.New("malformed variable syntax")
	// ErrMixedVariableSlot is returned when a slot combines a variable with
	// other entities.
	ErrMixedVariableSlot = errors.New("variable mixed with other entities in one slot")
	// ErrUnsatisfiableQuery signals that the optimizer rejected an AND query.
	// It is an expected outcome and maps to an empty result.
	ErrUnsatisfiableQuery = errors.New("query is unsatisfiable")
	ErrStoreUnavailable   = errors.New("fact store unavailable")
	ErrTimeout            = errors.New("query timed out")
)
