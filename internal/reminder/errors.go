package reminder

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when no record matches.
	ErrNotFound = errors.New("reminder not found")

	// ErrConflict is returned by AdvanceSchedule when the record's
	// scheduled_at no longer matches the expected value, i.e. a concurrent
	// worker already advanced it.
	ErrConflict = errors.New("reminder already advanced")
)

// ValidationError rejects a creation request. It is surfaced directly to the
// caller; there is nothing to retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
