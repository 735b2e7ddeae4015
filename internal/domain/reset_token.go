package domain

import (
	"context"
	"time"
)

// ResetToken is a single-use, time-limited password reset credential.
// Only the SHA-256 digest of the raw token is persisted.
type ResetToken struct {
	ID        string
	AccountID string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// ResetNotice is handed to the delivery channel. It is the only place the raw
// token leaves the service.
type ResetNotice struct {
	AccountID string    `json:"account_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ResetTokenRepository interface {
	Create(ctx context.Context, token *ResetToken) error
	// Consume marks the token used and returns its account id. Unknown,
	// expired and already used tokens all yield ErrInvalidResetToken.
	Consume(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, notice ResetNotice) error
}
