package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Dispatch controls the due-reminder sweep (trigger spec, batch size).
	Dispatch DispatchConfig `json:"dispatch"`

	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// ChatID is the chat reminders are delivered to. ThreadID targets a
	// forum topic inside that chat (0 for none).
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`

	// SendTimeout is a Go duration string (e.g. "10s", "2m") bounding each
	// outbound API call.
	SendTimeout string `json:"send_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// DispatchConfig controls the dispatcher sweep.
//
// Sweep accepts the trigger vocabulary of the dispatch package:
// "cron:<expr>", "every:<duration>" or "daily:HH:MM". Empty means the
// default minute-resolution cron sweep.
type DispatchConfig struct {
	Enabled bool   `json:"enabled"`
	Sweep   string `json:"sweep,omitempty"`

	// BatchSize caps how many due reminders one sweep picks up. 0 means
	// no cap.
	BatchSize int `json:"batch_size,omitempty"`

	// Trigger timezone.
	Timezone string `json:"timezone,omitempty"`
}

// NotifierConfig controls the async notification pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// If the whole section is omitted, the notifier defaults to enabled=true.
type NotifierConfig struct {
	Enabled         bool   `json:"enabled"`
	Workers         int    `json:"workers"`
	QueueSize       int    `json:"queue_size"`
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        int    `json:"retry_max"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./remindd.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
