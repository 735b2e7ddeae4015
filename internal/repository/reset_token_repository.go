package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"accountsvc/internal/domain"
	"accountsvc/pkg/logger"
)

type SQLResetTokenRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLResetTokenRepository(db *sql.DB, logger logger.Logger) *SQLResetTokenRepository {
	return &SQLResetTokenRepository{
		db:     db,
		logger: logger,
	}
}

func (r *SQLResetTokenRepository) Create(ctx context.Context, token *domain.ResetToken) error {
	defer observe("create", "reset_token")()

	id := uuid.NewString()
	query := `
		INSERT INTO password_reset_tokens (id, account_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.ExecContext(ctx, query,
		id,
		token.AccountID,
		token.TokenHash,
		token.ExpiresAt.UTC(),
		token.CreatedAt.UTC(),
	); err != nil {
		r.logger.ErrorContext(ctx, "Could not store reset token", map[string]interface{}{
			"account_id": token.AccountID,
			"error":      err.Error(),
		})
		return fmt.Errorf("create reset token: %w", err)
	}

	token.ID = id
	return nil
}

// Consume marks the token used in a single conditional statement, so two
// concurrent resets with the same token cannot both succeed.
func (r *SQLResetTokenRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	defer observe("consume", "reset_token")()

	now = now.UTC()
	query := `
		UPDATE password_reset_tokens
		SET used_at = $1
		WHERE token_hash = $2 AND used_at IS NULL AND expires_at > $3
		RETURNING account_id
	`

	var accountID string
	err := r.db.QueryRowContext(ctx, query, now, tokenHash, now).Scan(&accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrInvalidResetToken
		}
		r.logger.ErrorContext(ctx, "Could not consume reset token", map[string]interface{}{"error": err.Error()})
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return accountID, nil
}
