package scheduler

import "errors"

// Error kinds surfaced by every engine operation. Callers classify with
// errors.Is; the transport layer owns the mapping to status codes.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// ErrVersionConflict is returned by store implementations when a
// version-conditioned write loses an optimistic race. The engine maps it
// to ErrConflict before it reaches a caller.
var ErrVersionConflict = errors.New("version conflict")
