// Package notify delivers password reset notices out of band. Delivery runs
// on a worker pool so request handlers never wait on the broker.
package notify

import (
	"context"

	"accountsvc/internal/domain"
	"accountsvc/pkg/logger"
)

const RoutingKeyPasswordReset = "account.password_reset"

// Sender delivers a single notice synchronously.
type Sender interface {
	Send(ctx context.Context, notice domain.ResetNotice) error
}

// LogSender is the sender used when no broker is configured. The raw token
// is never written to the log.
type LogSender struct {
	logger logger.Logger
}

func NewLogSender(logger logger.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, notice domain.ResetNotice) error {
	s.logger.InfoContext(ctx, "Password reset notice ready for delivery", map[string]interface{}{
		"account_id": notice.AccountID,
		"email":      notice.Email,
		"expires_at": notice.ExpiresAt,
	})
	return nil
}
