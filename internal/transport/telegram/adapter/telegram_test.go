package adapter

import (
	"strings"
	"testing"

	logx "remindd/pkg/logx"
)

func TestSplitTelegramTextShort(t *testing.T) {
	t.Parallel()

	got := splitTelegramText("hello", 4000, "")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %v, want single untouched chunk", got)
	}
}

func TestSplitTelegramTextPrefersNewlines(t *testing.T) {
	t.Parallel()

	lines := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		lines = append(lines, strings.Repeat("a", 10))
	}
	s := strings.Join(lines, "\n")

	got := splitTelegramText(s, 50, "")
	if len(got) < 2 {
		t.Fatalf("got %d chunks, want multiple", len(got))
	}
	for i, c := range got {
		if len([]rune(c)) > 50 {
			t.Fatalf("chunk %d exceeds limit: %d runes", i, len([]rune(c)))
		}
		// Newline-boundary splits keep lines whole.
		for _, line := range strings.Split(c, "\n") {
			if line != strings.Repeat("a", 10) {
				t.Fatalf("chunk %d contains a torn line %q", i, line)
			}
		}
	}
}

func TestSplitTelegramTextHardLimit(t *testing.T) {
	t.Parallel()

	// No newlines at all: plain hard cuts.
	s := strings.Repeat("x", 105)
	got := splitTelegramText(s, 50, "")
	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3", len(got))
	}
	var total int
	for i, c := range got {
		if len([]rune(c)) > 50 {
			t.Fatalf("chunk %d exceeds limit", i)
		}
		total += len(c)
	}
	if total != 105 {
		t.Fatalf("reassembled length = %d, want 105 (no content lost)", total)
	}
}

func TestSplitTelegramTextAvoidsTornHTMLTags(t *testing.T) {
	t.Parallel()

	// The window ends in the middle of "<b": the split must move back to
	// before the tag instead of tearing it.
	s := strings.Repeat("y", 48) + "<b>x</b>"
	got := splitTelegramText(s, 50, "HTML")
	for i, c := range got {
		opens := strings.Count(c, "<")
		closes := strings.Count(c, ">")
		if opens != closes {
			t.Fatalf("chunk %d has a torn tag: %q", i, c)
		}
	}
	if got[0] != strings.Repeat("y", 48) {
		t.Fatalf("first chunk = %q, want the text before the tag", got[0])
	}
	if strings.Join(got, "") != s {
		t.Fatalf("content changed: %q", strings.Join(got, ""))
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("New() expected error for empty token")
	}
}
