package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"remindd/internal/reminder"
	logx "remindd/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (reminder.Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) PutReminder(ctx context.Context, r reminder.Reminder) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(id, owner_key, scheduled_at, description, context, recurrence, priority, status, created_at, last_fired_at, fired_count)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_key=excluded.owner_key,
		   scheduled_at=excluded.scheduled_at,
		   description=excluded.description,
		   context=excluded.context,
		   recurrence=excluded.recurrence,
		   priority=excluded.priority,
		   status=excluded.status,
		   last_fired_at=excluded.last_fired_at,
		   fired_count=excluded.fired_count`,
		r.ID.String(), r.OwnerKey, r.ScheduledAt.UnixMilli(), r.Description, string(r.Context),
		r.Recurrence, r.Priority, string(r.Status), fmtTime(r.CreatedAt), nullTime(r.LastFiredAt), r.FiredCount,
	)
	return err
}

func (s *sqliteStore) GetReminder(ctx context.Context, id uuid.UUID) (reminder.Reminder, error) {
	if s == nil || s.db == nil {
		return reminder.Reminder{}, ErrDisabled
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_key, scheduled_at, description, context, recurrence, priority, status, created_at, last_fired_at, fired_count
		 FROM reminders WHERE id = ?`, id.String())
	return scanReminder(row)
}

func (s *sqliteStore) FindDue(ctx context.Context, now time.Time, limit int) ([]reminder.Reminder, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	q := `SELECT id, owner_key, scheduled_at, description, context, recurrence, priority, status, created_at, last_fired_at, fired_count
	      FROM reminders WHERE status = 'pending' AND scheduled_at <= ? ORDER BY scheduled_at, id`
	args := []any{now.UnixMilli()}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reminder.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) AdvanceSchedule(ctx context.Context, id uuid.UUID, oldAt, newAt, firedAt time.Time) (reminder.Reminder, error) {
	if s == nil || s.db == nil {
		return reminder.Reminder{}, ErrDisabled
	}

	// Single-statement compare-and-set: the WHERE clause loses cleanly when a
	// concurrent sweep already advanced the record.
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders
		 SET scheduled_at = ?, last_fired_at = ?, fired_count = fired_count + 1
		 WHERE id = ? AND scheduled_at = ? AND status = 'pending'`,
		newAt.UnixMilli(), fmtTime(firedAt), id.String(), oldAt.UnixMilli(),
	)
	if err != nil {
		return reminder.Reminder{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return reminder.Reminder{}, err
	}
	if n == 0 {
		// Distinguish a missing record from a lost race.
		if _, err := s.GetReminder(ctx, id); errors.Is(err, reminder.ErrNotFound) {
			return reminder.Reminder{}, reminder.ErrNotFound
		}
		return reminder.Reminder{}, reminder.ErrConflict
	}
	return s.GetReminder(ctx, id)
}

func (s *sqliteStore) SetStatus(ctx context.Context, id uuid.UUID, status reminder.Status) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET status = ? WHERE id = ?`, string(status), id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return reminder.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (reminder.Reminder, error) {
	var (
		r           reminder.Reminder
		idStr       string
		ctxStr      string
		statusStr   string
		schedMS     int64
		createdStr  string
		lastFiredNS sql.NullString
	)
	err := row.Scan(&idStr, &r.OwnerKey, &schedMS, &r.Description, &ctxStr,
		&r.Recurrence, &r.Priority, &statusStr, &createdStr, &lastFiredNS, &r.FiredCount)
	if errors.Is(err, sql.ErrNoRows) {
		return reminder.Reminder{}, reminder.ErrNotFound
	}
	if err != nil {
		return reminder.Reminder{}, err
	}

	r.ID, err = uuid.Parse(idStr)
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("bad reminder id %q: %w", idStr, err)
	}
	r.Context = reminder.Context(ctxStr)
	r.Status = reminder.Status(statusStr)
	r.ScheduledAt = time.UnixMilli(schedMS).UTC()
	if r.CreatedAt, err = parseTime(createdStr); err != nil {
		return reminder.Reminder{}, err
	}
	if lastFiredNS.Valid {
		if r.LastFiredAt, err = parseTime(lastFiredNS.String); err != nil {
			return reminder.Reminder{}, err
		}
	}
	return r, nil
}

// scheduled_at is stored as unix milliseconds so the FindDue range scan and
// the AdvanceSchedule equality check compare integers, not strings. The
// remaining timestamps are RFC3339Nano in UTC; they are display-only.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return fmtTime(t)
}
