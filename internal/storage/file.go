package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"remindd/internal/reminder"
	logx "remindd/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.snapshot.json (periodic snapshot of all records)
//   - <prefix>.journal.jsonl (append-only journal of record upserts)
//
// The journal is replayed over the snapshot on open and periodically
// compacted back into it. All reads are served from the in-memory map; the
// mutex makes AdvanceSchedule's check-then-write atomic.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	snapshotPath string
	journalFile  *os.File
	records      map[uuid.UUID]reminder.Reminder

	writes int
}

func openFile(cfg Config, log logx.Logger) (reminder.Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	snapPath := prefix + ".snapshot.json"
	journalPath := prefix + ".journal.jsonl"

	records := map[uuid.UUID]reminder.Reminder{}
	_ = loadSnapshot(snapPath, records)
	_ = replayJournal(journalPath, records)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:          log,
		snapshotPath: snapPath,
		journalFile:  jf,
		records:      records,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return nil
	}
	// Compact on close so restarts start from a clean snapshot.
	if err := s.compactLocked(); err != nil {
		s.log.Debug("compact on close failed", logx.Err(err))
	}
	err := s.journalFile.Close()
	s.journalFile = nil
	return err
}

func (s *fileStore) PutReminder(ctx context.Context, r reminder.Reminder) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(r)
}

func (s *fileStore) GetReminder(ctx context.Context, id uuid.UUID) (reminder.Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return reminder.Reminder{}, reminder.ErrNotFound
	}
	return r, nil
}

func (s *fileStore) FindDue(ctx context.Context, now time.Time, limit int) ([]reminder.Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]reminder.Reminder, 0, 16)
	for _, r := range s.records {
		if r.Status != reminder.StatusPending {
			continue
		}
		if r.ScheduledAt.After(now) {
			continue
		}
		out = append(out, r)
	}
	// Stable order keeps batched sweeps deterministic across runs.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fileStore) AdvanceSchedule(ctx context.Context, id uuid.UUID, oldAt, newAt, firedAt time.Time) (reminder.Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return reminder.Reminder{}, reminder.ErrNotFound
	}
	if r.Status != reminder.StatusPending || !r.ScheduledAt.Equal(oldAt) {
		return reminder.Reminder{}, reminder.ErrConflict
	}

	r.ScheduledAt = newAt
	r.LastFiredAt = firedAt
	r.FiredCount++
	if err := s.upsertLocked(r); err != nil {
		return reminder.Reminder{}, err
	}
	return r, nil
}

func (s *fileStore) SetStatus(ctx context.Context, id uuid.UUID, status reminder.Status) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return reminder.ErrNotFound
	}
	r.Status = status
	return s.upsertLocked(r)
}

func (s *fileStore) upsertLocked(r reminder.Reminder) error {
	if s.journalFile == nil {
		return errors.New("journal closed")
	}
	if s.records == nil {
		s.records = map[uuid.UUID]reminder.Reminder{}
	}
	s.records[r.ID] = r

	if err := json.NewEncoder(s.journalFile).Encode(r); err != nil {
		return err
	}
	s.writes++
	if s.writes%1000 == 0 {
		// Best-effort compact.
		if err := s.compactLocked(); err != nil {
			s.log.Debug("compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) compactLocked() error {
	if s.records == nil {
		return nil
	}

	all := make([]reminder.Reminder, 0, len(s.records))
	for _, r := range s.records {
		all = append(all, r)
	}

	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(all); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}
	// Truncate journal.
	if err := s.journalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.journalFile.Seek(0, 2)
	return err
}

func loadSnapshot(path string, out map[uuid.UUID]reminder.Reminder) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var all []reminder.Reminder
	if err := json.NewDecoder(f).Decode(&all); err != nil {
		return err
	}
	for _, r := range all {
		out[r.ID] = r
	}
	return nil
}

func replayJournal(path string, out map[uuid.UUID]reminder.Reminder) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var r reminder.Reminder
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			// Skip torn tail writes; the journal is last-write-wins anyway.
			continue
		}
		if r.ID == uuid.Nil {
			continue
		}
		out[r.ID] = r
	}
	return sc.Err()
}
