package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	kit "remindd/internal/transport"
	logx "remindd/pkg/logx"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string

	failFirst int // fail this many calls before succeeding
	calls     int
}

func (f *fakeSender) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFirst {
		return kit.MessageRef{}, errors.New("send failed")
	}
	f.texts = append(f.texts, text)
	return kit.MessageRef{}, nil
}

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testNotification(text string) kit.Notification {
	return kit.Notification{
		Channel:  "telegram",
		Priority: "normal",
		Target:   kit.ChatTarget{ChatID: 42},
		Text:     text,
	}
}

func TestNotifyDeliversThroughPipeline(t *testing.T) {
	t.Parallel()

	snd := &fakeSender{}
	svc := New(Config{Enabled: true, Workers: 1, RatePerSec: 100}, snd, logx.Nop(), nil)
	svc.Start(context.Background())
	defer svc.Stop(context.Background())

	if err := svc.Notify(context.Background(), testNotification("hello")); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	waitFor(t, func() bool { return len(snd.sent()) == 1 })

	got := snd.sent()[0]
	if !strings.HasSuffix(got, "hello") {
		t.Fatalf("sent text = %q, want suffix %q", got, "hello")
	}
	// Normal priority carries the info prefix.
	if !strings.HasPrefix(got, "ℹ️ ") {
		t.Fatalf("sent text = %q, want info prefix", got)
	}
}

func TestNotifyRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	snd := &fakeSender{failFirst: 2}
	svc := New(Config{
		Enabled:    true,
		Workers:    1,
		RatePerSec: 100,
		RetryMax:   3,
		RetryBase:  time.Millisecond,
	}, snd, logx.Nop(), nil)
	svc.Start(context.Background())
	defer svc.Stop(context.Background())

	if err := svc.Notify(context.Background(), testNotification("retry me")); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	waitFor(t, func() bool { return len(snd.sent()) == 1 })
}

func TestNotifyDisabled(t *testing.T) {
	t.Parallel()

	svc := New(Config{Enabled: false}, &fakeSender{}, logx.Nop(), nil)
	if err := svc.Notify(context.Background(), testNotification("x")); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Notify() error = %v, want ErrDisabled", err)
	}
}

func TestNotifyBeforeStart(t *testing.T) {
	t.Parallel()

	svc := New(Config{Enabled: true}, &fakeSender{}, logx.Nop(), nil)
	if err := svc.Notify(context.Background(), testNotification("x")); !errors.Is(err, ErrStopped) {
		t.Fatalf("Notify() error = %v, want ErrStopped", err)
	}
}

func TestNotifyDedupSuppressesWithinWindow(t *testing.T) {
	t.Parallel()

	snd := &fakeSender{}
	svc := New(Config{
		Enabled:     true,
		Workers:     1,
		RatePerSec:  100,
		DedupWindow: time.Minute,
	}, snd, logx.Nop(), nil)
	svc.Start(context.Background())
	defer svc.Stop(context.Background())

	n := testNotification("same text")
	for i := 0; i < 3; i++ {
		if err := svc.Notify(context.Background(), n); err != nil {
			t.Fatalf("Notify() #%d error: %v", i, err)
		}
	}
	// A different text is a different key and passes.
	if err := svc.Notify(context.Background(), testNotification("other text")); err != nil {
		t.Fatalf("Notify(other) error: %v", err)
	}

	waitFor(t, func() bool { return len(snd.sent()) == 2 })
	time.Sleep(50 * time.Millisecond)
	if got := len(snd.sent()); got != 2 {
		t.Fatalf("sent %d messages, want 2 (duplicates suppressed)", got)
	}
}

func TestStopDrainsQueue(t *testing.T) {
	t.Parallel()

	snd := &fakeSender{}
	svc := New(Config{Enabled: true, Workers: 1, RatePerSec: 100}, snd, logx.Nop(), nil)
	svc.Start(context.Background())

	for i := 0; i < 5; i++ {
		n := testNotification("msg")
		n.Text = n.Text + string(rune('0'+i))
		if err := svc.Notify(context.Background(), n); err != nil {
			t.Fatalf("Notify() #%d error: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	svc.Stop(ctx)

	if got := len(snd.sent()); got != 5 {
		t.Fatalf("sent %d messages after drain, want 5", got)
	}
	if err := svc.Notify(context.Background(), testNotification("late")); !errors.Is(err, ErrStopped) {
		t.Fatalf("Notify() after Stop error = %v, want ErrStopped", err)
	}
}

func TestPrefixForPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		priority string
		want     string
	}{
		{priority: "urgent", want: "🚨 "},
		{priority: "high", want: "⚠️ "},
		{priority: "low", want: ""},
		{priority: "normal", want: "ℹ️ "},
		{priority: "", want: "ℹ️ "},
		{priority: "whatever", want: "ℹ️ "},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.priority, func(t *testing.T) {
			if got := prefixForPriority(tt.priority); got != tt.want {
				t.Fatalf("prefixForPriority(%q) = %q, want %q", tt.priority, got, tt.want)
			}
		})
	}
}

func TestRetryDelayBounds(t *testing.T) {
	t.Parallel()

	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 10; attempt++ {
		d := retryDelay(cfg, attempt)
		if d < 0 {
			t.Fatalf("retryDelay(attempt=%d) = %v, negative", attempt, d)
		}
		if d > cfg.RetryMaxDelay {
			t.Fatalf("retryDelay(attempt=%d) = %v, exceeds max %v", attempt, d, cfg.RetryMaxDelay)
		}
	}
}

func TestDedupKeyStability(t *testing.T) {
	t.Parallel()

	a := dedupKey(testNotification("hello"))
	b := dedupKey(testNotification("hello"))
	if a == "" || a != b {
		t.Fatalf("dedupKey not stable: %q vs %q", a, b)
	}
	if c := dedupKey(testNotification("bye")); c == a {
		t.Fatal("different text produced same dedup key")
	}
	empty := testNotification("hello")
	empty.Channel = ""
	if k := dedupKey(empty); k != "" {
		t.Fatalf("dedupKey without channel = %q, want empty", k)
	}
}
