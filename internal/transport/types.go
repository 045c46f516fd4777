package transport

import "context"

// ChatTarget addresses a chat (and optionally a forum topic thread) on the
// delivery platform.
type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Notification is a queued outbound message. Priority uses the reminder
// priority vocabulary ("low", "normal", "high", "urgent"); unknown values
// rank as "normal".
type Notification struct {
	Channel  string // "telegram" now
	Priority string
	Target   ChatTarget
	Text     string
	Options  *SendOptions
}

// Sender is the minimal outbound surface. The logging Telegram sink and the
// notifier both depend on this, not on the full Adapter.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// Adapter is a platform delivery adapter. remindd is outbound-only: it never
// consumes platform updates, it only pushes reminder notifications out.
type Adapter interface {
	Sender

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
