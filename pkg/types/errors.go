package types

import "errors"

// Error kinds surfaced by the pool. Callers classify failures with
// errors.Is and map them to transport status codes at the edge.
var (
	// ErrAuthMissing means no bearer credential was presented.
	ErrAuthMissing = errors.New("credentials missing")

	// ErrAuthInvalid means the presented credential maps to no worker.
	ErrAuthInvalid = errors.New("credentials not recognized")

	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the task exists but is not assigned to the
	// calling worker.
	ErrForbidden = errors.New("forbidden")

	// ErrBadRequest covers unknown repos at task creation, invalid
	// target states, and violated field bounds.
	ErrBadRequest = errors.New("bad request")

	// ErrConflict marks a lease attempt on a task that is no longer
	// ready. The matcher treats it as an ordinary skip; it never
	// propagates to a caller.
	ErrConflict = errors.New("conflict")
)
