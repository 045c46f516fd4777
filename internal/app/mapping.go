package app

import (
	"fmt"
	"strings"
	"time"

	"remindd/internal/dispatch"
	"remindd/internal/notifier"
	"remindd/internal/storage"
	kit "remindd/internal/transport"
)

func mapStorageConfig(cfg *Config) (storage.Config, error) {
	// Storage is mandatory for a reminder daemon; an omitted section gets the
	// file driver with a local default path.
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{Driver: "file", Path: "./remindd_store"}, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "", "file":
		if path == "" {
			path = "./remindd_store"
		}
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := parseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 1*time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapNotifierConfig(cfg *Config) (notifier.Config, error) {
	// Omitted section means enabled with runtime defaults.
	if cfg == nil || cfg.Notifier == nil {
		return notifier.Config{Enabled: true}, nil
	}
	nc := cfg.Notifier

	retryBase, err := parseDurationField("notifier.retry_base", nc.RetryBase)
	if err != nil {
		return notifier.Config{}, err
	}
	retryMaxDelay, err := parseDurationField("notifier.retry_max_delay", nc.RetryMaxDelay)
	if err != nil {
		return notifier.Config{}, err
	}
	dedupWindow, err := parseDurationField("notifier.dedup_window", nc.DedupWindow)
	if err != nil {
		return notifier.Config{}, err
	}
	if nc.Workers < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.workers must be >= 0")
	}
	if nc.QueueSize < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.queue_size must be >= 0")
	}
	if nc.RetryMax < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.retry_max must be >= 0")
	}

	return notifier.Config{
		Enabled:         nc.Enabled,
		Workers:         nc.Workers,
		QueueSize:       nc.QueueSize,
		RatePerSec:      nc.RatePerSec,
		RetryMax:        nc.RetryMax,
		RetryBase:       retryBase,
		RetryMaxDelay:   retryMaxDelay,
		DedupWindow:     dedupWindow,
		DedupMaxEntries: nc.DedupMaxEntries,
	}, nil
}

func mapDispatchConfig(cfg *Config) (dispatch.Config, error) {
	if cfg == nil {
		return dispatch.Config{}, nil
	}
	dc := cfg.Dispatch

	if s := strings.TrimSpace(dc.Sweep); s != "" {
		if _, err := dispatch.ParseSweepSpec(s); err != nil {
			return dispatch.Config{}, fmt.Errorf("dispatch.sweep: %w", err)
		}
	}
	if tz := strings.TrimSpace(dc.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return dispatch.Config{}, fmt.Errorf("dispatch.timezone: invalid %q: %w", tz, err)
		}
	}
	if dc.BatchSize < 0 {
		return dispatch.Config{}, fmt.Errorf("dispatch.batch_size must be >= 0")
	}

	return dispatch.Config{
		Enabled:   dc.Enabled,
		Sweep:     strings.TrimSpace(dc.Sweep),
		BatchSize: dc.BatchSize,
		Timezone:  strings.TrimSpace(dc.Timezone),
		Target:    kit.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID},
	}, nil
}
