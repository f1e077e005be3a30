package sms

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogClient writes messages to the log instead of a carrier. Used in development.
type LogClient struct {
	logger *zap.Logger
}

func NewLogClient(logger *zap.Logger) *LogClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogClient{logger: logger}
}

func (c *LogClient) Send(ctx context.Context, to, body string) (*SendResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := "log-" + uuid.NewString()
	c.logger.Info("sms sandbox delivery", zap.String("to", to), zap.String("message_id", id), zap.String("body", body))
	return &SendResult{MessageID: id, Provider: ProviderLog}, nil
}
