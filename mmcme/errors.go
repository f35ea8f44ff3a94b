package mmcme

import "errors"

var (
	// ErrInvalidArgument is returned for zero target or parent rates.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoSolution means no multiplier/divider combination keeps the VCO in
	// range and the dividers within their limits.
	ErrNoSolution = errors.New("no solution found")

	// ErrNotConfigured is returned by RecalcRate before any configuration
	// has been applied or read back.
	ErrNotConfigured = errors.New("clock not configured")

	// ErrFieldOverflow means a divider can't be represented in the 6-bit
	// duty-cycle fields.
	ErrFieldOverflow = errors.New("divider doesn't fit duty-cycle fields")
)
