// File: internal/perception/errors.go
package perception

import "errors"

var (
	// ErrUnavailable indicates the vision-parsing collaborator could not be
	// reached. Retryable by the loop's backoff policy.
	ErrUnavailable = errors.New("perception collaborator unavailable")

	// ErrMalformed indicates the collaborator replied but the response could
	// not be mapped into the element model (missing bounds, out-of-range
	// confidence, non-list payload).
	ErrMalformed = errors.New("perception response malformed")
)
