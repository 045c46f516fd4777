package reminder

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"remindd/internal/eventbus"
	"remindd/internal/recurrence"
	logx "remindd/pkg/logx"
)

// Store is the persistence contract the service needs. Implementations live
// in internal/storage; the store must provide per-record compare-and-set
// semantics for AdvanceSchedule so two concurrent dispatcher workers never
// both advance the same due reminder.
type Store interface {
	PutReminder(ctx context.Context, r Reminder) error
	GetReminder(ctx context.Context, id uuid.UUID) (Reminder, error)

	// FindDue returns pending records with scheduled_at <= now. Ordering is
	// unspecified; callers must not depend on it. limit <= 0 means no limit.
	FindDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error)

	// AdvanceSchedule moves scheduled_at from oldAt to newAt iff the record
	// is still pending with scheduled_at == oldAt, recording firedAt in the
	// fire bookkeeping. Returns ErrConflict on a lost race.
	AdvanceSchedule(ctx context.Context, id uuid.UUID, oldAt, newAt, firedAt time.Time) (Reminder, error)

	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	Close() error
}

// CreateRequest carries a validated-upstream creation payload. Numeric
// recurrence parameters are clamped, not rejected; only an unrecognized
// context or an ultimately-empty description fails.
type CreateRequest struct {
	OwnerKey    string
	Description string
	Context     string
	Priority    string

	// RecurrenceKind plus the parameter matching that kind. Unknown kinds
	// fall back to monthly (see recurrence.Parse).
	RecurrenceKind string
	DayOfMonth     int
	WeekOfQuarter  int
	MonthOfYear    int
}

// Service implements the reminder lifecycle over an injected store. All
// methods are safe for concurrent use; the service itself holds no mutable
// state.
type Service struct {
	store Store
	log   logx.Logger
	bus   eventbus.Bus

	now func() time.Time
}

func New(store Store, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, log: log, bus: bus, now: time.Now}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates the request, computes the first occurrence, and persists
// the record as pending.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Reminder, error) {
	rctx := Context(strings.ToLower(strings.TrimSpace(req.Context)))
	if !ValidContext(rctx) {
		return Reminder{}, &ValidationError{Field: "context", Reason: "must be one of income, assets, expenses"}
	}

	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = defaultDescription(rctx)
	}
	if desc == "" {
		return Reminder{}, &ValidationError{Field: "description", Reason: "empty after default substitution"}
	}

	priority := strings.TrimSpace(req.Priority)
	if priority == "" {
		priority = DefaultPriority
	}

	rule := recurrence.Parse(req.RecurrenceKind, req.DayOfMonth, req.WeekOfQuarter, req.MonthOfYear)
	now := s.now()

	r := Reminder{
		ID:          uuid.New(),
		OwnerKey:    req.OwnerKey,
		ScheduledAt: recurrence.Next(rule, now),
		Description: desc,
		Context:     rctx,
		Recurrence:  recurrence.Encode(rule),
		Priority:    priority,
		Status:      StatusPending,
		CreatedAt:   now,
	}
	if err := s.store.PutReminder(ctx, r); err != nil {
		return Reminder{}, err
	}

	s.publish("reminder.created", r, now, nil)
	s.log.Debug("reminder created",
		logx.String("id", r.ID.String()),
		logx.String("rule", r.Recurrence),
		logx.Time("scheduled_at", r.ScheduledAt),
	)
	return r, nil
}

// Due returns the pending reminders whose fire time is at or before now.
func (s *Service) Due(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	return s.store.FindDue(ctx, now, limit)
}

// Reschedule advances a just-fired reminder to its next occurrence.
//
// The next occurrence is computed from now, not from the missed
// scheduled_at: a sweep that runs late must not queue a backlog of
// catch-up fires. A malformed recurrence string is recovered locally with a
// 24h fallback so one corrupted record cannot block the sweep.
func (s *Service) Reschedule(ctx context.Context, r Reminder, now time.Time) (Reminder, error) {
	nextAt := now.Add(24 * time.Hour)
	rule, err := recurrence.Decode(r.Recurrence)
	if err != nil {
		s.log.Warn("malformed recurrence; falling back to 24h",
			logx.String("id", r.ID.String()),
			logx.String("raw", r.Recurrence),
			logx.Err(err),
		)
	} else {
		nextAt = recurrence.Next(rule, now)
	}

	updated, err := s.store.AdvanceSchedule(ctx, r.ID, r.ScheduledAt, nextAt, now)
	if err != nil {
		return Reminder{}, err
	}

	s.publish("reminder.rescheduled", updated, now, nil)
	return updated, nil
}

// MarkFired completes a non-recurring reminder.
func (s *Service) MarkFired(ctx context.Context, r Reminder, now time.Time) error {
	if err := s.store.SetStatus(ctx, r.ID, StatusFired); err != nil {
		return err
	}
	s.publish("reminder.fired", r, now, nil)
	return nil
}

func (s *Service) publish(typ string, r Reminder, at time.Time, err error) {
	if s.bus == nil {
		return
	}
	ev := ReminderEvent{
		ID:          r.ID,
		OwnerKey:    r.OwnerKey,
		Context:     r.Context,
		ScheduledAt: r.ScheduledAt,
		At:          at,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: at, Data: ev})
}
