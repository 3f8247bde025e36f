package relocate

import "errors"

// Sentinel errors for the relocation error taxonomy. Callers match them
// with eris.Is / errors.Is; messages carry the diagnostic context.
var (
	// ErrInput marks fatal input problems detected before any iteration:
	// fewer than four usable observations, or a master depth outside the
	// travel-time model range.
	ErrInput = errors.New("relocate: invalid input")

	// ErrSingularSystem marks a weighted linear system that cannot be
	// solved even at maximum damping, including systems left with fewer
	// usable rows than unknowns after per-iteration exclusions.
	ErrSingularSystem = errors.New("relocate: singular system")

	// ErrInsufficientData marks a covariance request with no degrees of
	// freedom. The location estimate itself is unaffected.
	ErrInsufficientData = errors.New("relocate: insufficient data for uncertainty")
)
