package reminder

import (
	"time"

	"github.com/google/uuid"
)

// Context tags which planning area a reminder belongs to. The scheduler
// stores it but never interprets it.
type Context string

const (
	ContextIncome   Context = "income"
	ContextAssets   Context = "assets"
	ContextExpenses Context = "expenses"
)

// Status is the reminder lifecycle state.
//
// The core only ever writes "pending" (create, reschedule) and "fired"
// (one-shot completion). Cancellation is an external operation on the store.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFired     Status = "fired"
	StatusCancelled Status = "cancelled"
)

// DefaultPriority is applied when the creation request leaves priority blank.
const DefaultPriority = "normal"

// Reminder is the persisted record. ScheduledAt always holds the next fire
// instant; for recurring rules the dispatcher advances it after each fire
// and the status stays pending.
type Reminder struct {
	ID          uuid.UUID `json:"id"`
	OwnerKey    string    `json:"owner_key"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Description string    `json:"description"`
	Context     Context   `json:"context"`

	// Recurrence is the encoded rule string, e.g. "monthly:15" (see the
	// recurrence package). "once" is accepted and round-trips.
	Recurrence string `json:"recurrence"`

	Priority string `json:"priority"`
	Status   Status `json:"status"`

	CreatedAt   time.Time `json:"created_at"`
	LastFiredAt time.Time `json:"last_fired_at,omitempty"`
	FiredCount  int       `json:"fired_count,omitempty"`
}

// ReminderEvent is published on the event bus for reminder lifecycle events
// (reminder.created, reminder.fired, reminder.rescheduled, reminder.skipped).
type ReminderEvent struct {
	ID          uuid.UUID `json:"id"`
	OwnerKey    string    `json:"owner_key"`
	Context     Context   `json:"context"`
	ScheduledAt time.Time `json:"scheduled_at"`
	At          time.Time `json:"at"`
	Error       string    `json:"error,omitempty"`
}

// ValidContext reports whether s is one of the recognized context values.
func ValidContext(s Context) bool {
	switch s {
	case ContextIncome, ContextAssets, ContextExpenses:
		return true
	}
	return false
}

// defaultDescription supplies the context-specific phrase used when the
// creation request leaves the description blank.
func defaultDescription(c Context) string {
	switch c {
	case ContextIncome:
		return "Review your income plan"
	case ContextAssets:
		return "Review your asset allocation"
	case ContextExpenses:
		return "Review your recurring expenses"
	default:
		return ""
	}
}
