package scheduler

import "errors"

// Error taxonomy surfaced by scheduling operations. Call sites wrap these
// with context via fmt.Errorf and the API layer maps them onto HTTP statuses
// with errors.Is.
var (
	// ErrValidation marks malformed input such as an out-of-range duration
	// or a start time in the past.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a window that overlaps an occupying reservation, or
	// a resource that refuses bookings.
	ErrConflict = errors.New("reservation conflict")

	// ErrPermission marks a caller who may not act on the resource or
	// reservation.
	ErrPermission = errors.New("permission denied")

	// ErrInvalidState marks an operation against a terminal reservation.
	ErrInvalidState = errors.New("invalid reservation state")

	// ErrNotFound marks an unknown resource, device or reservation id.
	ErrNotFound = errors.New("not found")
)
