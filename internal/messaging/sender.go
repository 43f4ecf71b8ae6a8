package messaging

import (
	"context"

	"go.uber.org/zap"
)

// LogSender is the default Sender when no real transport is wired in. It
// writes outbound replies to the log, which keeps the webhook path usable
// in development.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendText(ctx context.Context, recipient, text string) error {
	s.logger.Info("outbound message",
		zap.String("to", recipient),
		zap.String("text", text),
	)
	return nil
}
