package logx

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want zerolog.Level
	}{
		{raw: "TRACE", want: zerolog.TraceLevel},
		{raw: "debug", want: zerolog.DebugLevel},
		{raw: " info ", want: zerolog.InfoLevel},
		{raw: "WARN", want: zerolog.WarnLevel},
		{raw: "warning", want: zerolog.WarnLevel},
		{raw: "ERROR", want: zerolog.ErrorLevel},
		{raw: "", want: zerolog.InfoLevel},
		{raw: "verbose", want: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			if got := parseLevel(tt.raw, zerolog.InfoLevel); got != tt.want {
				t.Fatalf("parseLevel(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatTelegramLine(t *testing.T) {
	t.Parallel()

	line := []byte(`{"level":"warn","time":"2024-03-01T09:00:00Z","message":"sweep failed","count":3}`)
	got := formatTelegramLine(line)
	if !strings.HasPrefix(got, "[WARN] sweep failed") {
		t.Fatalf("formatted line = %q, want [WARN] prefix and message", got)
	}
	if !strings.Contains(got, "count=3") {
		t.Fatalf("formatted line = %q, want count attr", got)
	}
	if strings.Contains(got, "2024-03-01") {
		t.Fatalf("formatted line = %q, time should be stripped", got)
	}

	// Non-JSON input passes through.
	if got := formatTelegramLine([]byte("plain text\n")); got != "plain text" {
		t.Fatalf("plain passthrough = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short", 100); got != "short" {
		t.Fatalf("truncate(short) = %q", got)
	}
	long := strings.Repeat("x", 50)
	got := truncate(long, 20)
	if len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate(long, 20) = %q (len %d)", got, len(got))
	}
}

func TestLoggerZeroAndNop(t *testing.T) {
	t.Parallel()

	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero Logger should report IsZero")
	}
	nop := Nop()
	if nop.IsZero() {
		t.Fatal("Nop() should not report IsZero")
	}
	// Must not panic.
	nop.Info("ignored", String("k", "v"))
	zero.Info("ignored too")
}

func TestWithFieldsAccumulate(t *testing.T) {
	t.Parallel()

	base := Nop().With(String("a", "1"))
	child := base.With(String("b", "2"))
	if len(child.fields) != 2 {
		t.Fatalf("child fields = %d, want 2", len(child.fields))
	}
	if len(base.fields) != 1 {
		t.Fatalf("base fields = %d, want 1 (With must not mutate the parent)", len(base.fields))
	}
}
