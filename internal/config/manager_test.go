package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{
		"telegram": {"token": "t", "chat_id": 42, "send_timeout": "5s"},
		"logging": {"level": "DEBUG", "console": true},
		"dispatch": {"enabled": true, "sweep": "*/5 * * * *", "batch_size": 10},
		"storage": {"driver": "file", "path": "./data/store"}
	}`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Telegram.ChatID != 42 {
		t.Fatalf("ChatID = %d, want 42", cfg.Telegram.ChatID)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Fatalf("Level = %q, want DEBUG", cfg.Logging.Level)
	}
	if !cfg.Dispatch.Enabled || cfg.Dispatch.Sweep != "*/5 * * * *" {
		t.Fatalf("Dispatch = %+v", cfg.Dispatch)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("Storage = %+v", cfg.Storage)
	}
	if cfg.Notifier != nil {
		t.Fatalf("Notifier = %+v, want nil when omitted", cfg.Notifier)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.yaml", `
telegram:
  token: t
  chat_id: 42
logging:
  level: INFO
dispatch:
  enabled: true
  sweep: "10m"
`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Telegram.ChatID != 42 {
		t.Fatalf("ChatID = %d, want 42", cfg.Telegram.ChatID)
	}
	if cfg.Dispatch.Sweep != "10m" {
		t.Fatalf("Sweep = %q, want 10m", cfg.Dispatch.Sweep)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{"telegram": {"token": "t"}, "surprise": 1}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("Parse() expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{"telegram": {"token": "t"}}{"extra": true}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("Parse() expected error for trailing data")
	}
}

func TestLoadCommitsAndGet(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{"telegram": {"token": "t", "chat_id": 7}}`)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get() did not return the committed config")
	}
}

func TestSubscribeDropOldest(t *testing.T) {
	t.Parallel()

	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	first := &Config{}
	second := &Config{}
	third := &Config{}
	m.publish(first)
	m.publish(second) // buffer full: first is dropped, second delivered
	m.publish(third)  // second dropped, third delivered

	got := <-ch
	if got != third {
		t.Fatal("expected the newest config to survive the full buffer")
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra config in channel: %p", extra)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	m := NewManager("unused")
	ch := m.Subscribe(1)
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after Unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	m.publish(&Config{})
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want time.Duration
		ok   bool
	}{
		{name: "seconds", raw: "5s", want: 5 * time.Second, ok: true},
		{name: "composite", raw: "1h30m", want: 90 * time.Minute, ok: true},
		{name: "empty", raw: "", want: 0, ok: true},
		{name: "garbage", raw: "fast", ok: false},
		{name: "negative", raw: "-5s", ok: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationField("test.field", tt.raw)
			if tt.ok {
				if err != nil {
					t.Fatalf("ParseDurationField(%q) error: %v", tt.raw, err)
				}
				if got != tt.want {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
				return
			}
			if err == nil {
				t.Fatalf("ParseDurationField(%q) expected error", tt.raw)
			}
		})
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()

	oldCfg := &Config{}
	newCfg := &Config{}
	newCfg.Telegram.ChatID = 42
	newCfg.Logging.Level = "DEBUG"
	newCfg.Dispatch.Enabled = true
	newCfg.Storage = &StorageConfig{Driver: "sqlite", Path: "/tmp/db"}

	sections, _ := SummarizeConfigChange(oldCfg, newCfg)
	want := []string{"dispatch", "logging", "storage", "telegram"}
	if len(sections) != len(want) {
		t.Fatalf("sections = %v, want %v", sections, want)
	}
	for i := range want {
		if sections[i] != want[i] {
			t.Fatalf("sections = %v, want %v", sections, want)
		}
	}

	if sections, _ := SummarizeConfigChange(newCfg, newCfg); len(sections) != 0 {
		t.Fatalf("identical configs reported changes: %v", sections)
	}
}
