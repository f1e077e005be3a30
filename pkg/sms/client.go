// Package sms sends text messages through a pluggable gateway.
package sms

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-escalation-api/pkg/config"
)

const (
	ProviderTwilio = "twilio"
	ProviderLog    = "log"
)

// SendResult identifies an accepted message.
type SendResult struct {
	MessageID string
	Provider  string
}

// Client is an SMS gateway.
type Client interface {
	Send(ctx context.Context, to, body string) (*SendResult, error)
}

// New selects the gateway named by cfg.Provider.
func New(cfg config.SMSConfig, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderTwilio:
		if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
			return nil, fmt.Errorf("twilio provider requires account sid, auth token and from number")
		}
		return NewTwilioClient(cfg.AccountSID, cfg.AuthToken, cfg.FromNumber), nil
	case ProviderLog, "":
		return NewLogClient(logger), nil
	default:
		return nil, fmt.Errorf("unsupported sms provider: %s", cfg.Provider)
	}
}
