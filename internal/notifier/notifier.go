package notifier

import (
	"context"
	"log/slog"

	"github.com/italolelis/fetchd/internal/logctx"
)

// Notifier delivers a short out-of-band alert to a human.
type Notifier interface {
	Notify(ctx context.Context, content string) error
}

// LogNotifier surfaces alerts as warnings in the service log. It is the
// fallback when no webhook is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, content string) error {
	logger := n.Logger
	if logger == nil {
		logger = logctx.LoggerFromContext(ctx)
	}

	logger.WarnContext(ctx, "alert", "content", content)

	return nil
}
