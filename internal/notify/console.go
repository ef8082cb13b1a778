package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Console logs messages instead of sending them and keeps a copy of each.
type Console struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewConsole creates a console mailer. A nil logger uses slog.Default.
func NewConsole(logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{logger: logger}
}

func (c *Console) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	to := make([]string, len(msg.To))
	for i, a := range msg.To {
		to[i] = a.String()
	}
	c.logger.InfoContext(ctx, "email",
		slog.Any("to", to),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Text),
	)

	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	return nil
}

// Sent returns the messages sent so far.
func (c *Console) Sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.sent...)
}
