package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindd/internal/eventbus"
	"remindd/internal/recurrence"
	"remindd/internal/reminder"
	rtsup "remindd/internal/runtime/supervisor"
	kit "remindd/internal/transport"
	logx "remindd/pkg/logx"
)

// Config controls the due-reminder sweep.
type Config struct {
	Enabled bool

	// Sweep is the trigger schedule (see ParseSweepSpec). Empty means the
	// default minute-resolution cron sweep.
	Sweep string

	// BatchSize caps how many due reminders one sweep picks up. 0 means no cap.
	BatchSize int

	Timezone string

	// Target is the chat due reminders are delivered to.
	Target kit.ChatTarget
}

// Reminders is the slice of the reminder service the dispatcher needs.
type Reminders interface {
	Due(ctx context.Context, now time.Time, limit int) ([]reminder.Reminder, error)
	Reschedule(ctx context.Context, r reminder.Reminder, now time.Time) (reminder.Reminder, error)
	MarkFired(ctx context.Context, r reminder.Reminder, now time.Time) error
}

// Notifier is the outbound pipeline the dispatcher hands fired reminders to.
type Notifier interface {
	Notify(ctx context.Context, n kit.Notification) error
}

const defaultSweep = "* * * * *"

// Service periodically sweeps the store for due reminders, advances each one
// to its next occurrence, and queues a notification.
//
// Advancing happens BEFORE the notification is queued: the schedule update is
// the idempotency point, so a crash after advance loses at most one delivery
// instead of duplicating it on restart.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	rem    Reminders
	notify Notifier
	bus    eventbus.Bus

	cfg     Config
	running bool

	cronRunner *cron.Cron
	sup        *rtsup.Supervisor

	now func() time.Time
}

func New(cfg Config, rem Reminders, notify Notifier, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, rem: rem, notify: notify, bus: bus, cfg: cfg, now: time.Now}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if !s.cfg.Enabled {
		s.log.Info("dispatch disabled")
		return nil
	}
	if err := s.armLocked(ctx); err != nil {
		return err
	}
	s.running = true
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cr := s.cronRunner
	sup := s.sup
	s.cronRunner = nil
	s.sup = nil
	s.mu.Unlock()

	if cr != nil {
		stopCtx := cr.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if sup != nil {
		return sup.Stop(ctx)
	}
	return nil
}

// Apply updates the dispatch config at runtime. A changed sweep spec or
// timezone re-arms the trigger; target and batch size changes take effect on
// the next sweep.
func (s *Service) Apply(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	changed := old.Sweep != cfg.Sweep || old.Timezone != cfg.Timezone || old.Enabled != cfg.Enabled
	s.mu.Unlock()
	if !changed {
		return nil
	}

	// Stop is a no-op when not armed, so this also covers enabling dispatch
	// at runtime.
	if err := s.Stop(ctx); err != nil {
		return err
	}
	return s.Start(ctx)
}

func (s *Service) armLocked(ctx context.Context) error {
	spec, err := ParseSweepSpec(orDefault(s.cfg.Sweep, defaultSweep))
	if err != nil {
		return fmt.Errorf("dispatch sweep: %w", err)
	}

	loc := time.Local
	if tz := s.cfg.Timezone; tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("dispatch timezone: %w", err)
		}
	}

	switch spec.Kind {
	case SpecCron:
		cr := cron.New(cron.WithLocation(loc))
		if _, err := cr.AddFunc(spec.Cron, func() { s.sweepOnce(ctx) }); err != nil {
			return fmt.Errorf("dispatch cron %q: %w", spec.Cron, err)
		}
		cr.Start()
		s.cronRunner = cr
		s.log.Info("dispatch armed", logx.String("cron", spec.Cron), logx.String("tz", loc.String()))

	case SpecInterval:
		sup := rtsup.New(ctx, rtsup.WithLogger(s.log.With(logx.String("comp", "dispatch"))))
		every := spec.Every
		sup.Go0("sweep", func(c context.Context) {
			t := time.NewTicker(every)
			defer t.Stop()
			for {
				select {
				case <-c.Done():
					return
				case <-t.C:
					s.sweepOnce(c)
				}
			}
		})
		s.sup = sup
		s.log.Info("dispatch armed", logx.Duration("every", every))
	}
	return nil
}

// sweepOnce processes one batch of due reminders. Errors on one record never
// block the rest of the batch.
func (s *Service) sweepOnce(ctx context.Context) {
	s.mu.Lock()
	batch := s.cfg.BatchSize
	target := s.cfg.Target
	s.mu.Unlock()

	now := s.now()
	due, err := s.rem.Due(ctx, now, batch)
	if err != nil {
		s.log.Error("sweep: list due reminders failed", logx.Err(err))
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Debug("sweep: found due reminders", logx.Int("count", len(due)))

	var delivered, skipped, failed int
	for _, r := range due {
		switch err := s.processOne(ctx, r, now, target); {
		case err == nil:
			delivered++
		case errors.Is(err, reminder.ErrConflict):
			skipped++
		default:
			failed++
			s.log.Error("sweep: reminder failed",
				logx.String("id", r.ID.String()),
				logx.Err(err),
			)
		}
	}

	s.log.Info("sweep completed",
		logx.Int("due", len(due)),
		logx.Int("delivered", delivered),
		logx.Int("skipped", skipped),
		logx.Int("failed", failed),
	)
}

func (s *Service) processOne(ctx context.Context, r reminder.Reminder, now time.Time, target kit.ChatTarget) error {
	rule, decodeErr := recurrence.Decode(r.Recurrence)
	oneShot := decodeErr == nil && !rule.Recurring()

	// Advance first. For recurring rules this is a compare-and-set against
	// the old fire time, so a concurrent sweep loses cleanly with ErrConflict
	// and the reminder fires once per period.
	if oneShot {
		if err := s.rem.MarkFired(ctx, r, now); err != nil {
			return err
		}
	} else {
		if _, err := s.rem.Reschedule(ctx, r, now); err != nil {
			if errors.Is(err, reminder.ErrConflict) {
				s.log.Debug("sweep: reminder already advanced",
					logx.String("id", r.ID.String()),
				)
				s.publishSkipped(r, now)
			}
			return err
		}
	}

	n := kit.Notification{
		Channel:  "telegram",
		Priority: r.Priority,
		Target:   target,
		Text:     formatReminder(r),
	}
	if err := s.notify.Notify(ctx, n); err != nil {
		// The schedule is already advanced; delivery failures are the
		// notifier's to retry and ours only to report.
		s.log.Warn("sweep: notify failed",
			logx.String("id", r.ID.String()),
			logx.Err(err),
		)
	}
	return nil
}

func (s *Service) publishSkipped(r reminder.Reminder, now time.Time) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{
		Type: "reminder.skipped",
		Time: now,
		Data: reminder.ReminderEvent{
			ID:          r.ID,
			OwnerKey:    r.OwnerKey,
			Context:     r.Context,
			ScheduledAt: r.ScheduledAt,
			At:          now,
		},
	})
}

func formatReminder(r reminder.Reminder) string {
	return fmt.Sprintf("📅 %s\n%s", r.Context, r.Description)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
