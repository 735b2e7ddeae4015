package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"accountsvc/internal/domain"
	"accountsvc/internal/validation"
	"accountsvc/pkg/logger"
	"accountsvc/pkg/metrics"
	"accountsvc/pkg/password"
)

type TokenIssuer interface {
	Issue(accountID, username, email string) (string, time.Time, error)
}

type AccountService struct {
	accounts domain.AccountRepository
	resets   domain.ResetTokenRepository
	tokens   TokenIssuer
	notifier domain.ResetNotifier
	logger   logger.Logger
	resetTTL time.Duration
	now      func() time.Time
}

func NewAccountService(
	accounts domain.AccountRepository,
	resets domain.ResetTokenRepository,
	tokens TokenIssuer,
	notifier domain.ResetNotifier,
	logger logger.Logger,
	resetTTL time.Duration,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		resets:   resets,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

func (s *AccountService) Register(ctx context.Context, username, email, plain string) (string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validation.ValidateUsername(username); err != nil {
		return "", err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return "", err
	}
	if err := validation.ValidatePassword(plain); err != nil {
		return "", err
	}

	hash, err := hashPassword(plain)
	if err != nil {
		return "", err
	}

	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Theme:        domain.ThemeSystem,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			// storage may report only the username constraint; email wins
			if _, ferr := s.accounts.FindByEmail(ctx, email); ferr == nil {
				err = domain.ErrDuplicateEmail
			}
		}
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrDuplicateUsername) {
			metrics.RecordAccountEvent("signup", "duplicate")
			s.logger.InfoContext(ctx, "Signup rejected", map[string]interface{}{"reason": err.Error()})
		}
		return "", err
	}

	metrics.RecordAccountEvent("signup", "created")
	s.logger.InfoContext(ctx, "Account created", map[string]interface{}{"account_id": account.ID})
	return account.ID, nil
}

func (s *AccountService) Login(ctx context.Context, identifier, plain string) (*domain.LoginResult, error) {
	account, err := s.accounts.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			password.Burn(plain)
			metrics.RecordAccountEvent("login", "rejected")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Matches(account.PasswordHash, plain) {
		metrics.RecordAccountEvent("login", "rejected")
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(account.ID, account.Username, account.Email)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	metrics.RecordAccountEvent("login", "success")
	s.logger.InfoContext(ctx, "Login succeeded", map[string]interface{}{"account_id": account.ID})

	return &domain.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      account.View(),
	}, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.AccountView, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := account.View()
	return &view, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) error {
	return s.applyPatch(ctx, "profile", id, patch)
}

func (s *AccountService) UpdateSettings(ctx context.Context, id string, theme *domain.Theme, language *string) error {
	return s.applyPatch(ctx, "settings", id, domain.ProfilePatch{Theme: theme, Language: language})
}

func (s *AccountService) applyPatch(ctx context.Context, op, id string, patch domain.ProfilePatch) error {
	if patch.Theme != nil {
		if err := validation.ValidateTheme(*patch.Theme); err != nil {
			return err
		}
	}

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !patch.ChangesFrom(account) {
		return domain.ErrNoChangeApplied
	}

	if err := s.accounts.ApplyProfilePatch(ctx, id, patch, s.now()); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Account updated", map[string]interface{}{"account_id": id, "op": op})
	return nil
}

func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}

	raw, hash, err := newResetToken()
	if err != nil {
		return err
	}

	now := s.now()
	rt := &domain.ResetToken{
		AccountID: account.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err := s.resets.Create(ctx, rt); err != nil {
		return err
	}

	notice := domain.ResetNotice{
		AccountID: account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Token:     raw,
		ExpiresAt: rt.ExpiresAt,
	}
	if err := s.notifier.NotifyPasswordReset(ctx, notice); err != nil {
		return fmt.Errorf("queue reset notice: %w", err)
	}

	metrics.RecordAccountEvent("forgot_password", "issued")
	s.logger.InfoContext(ctx, "Password reset token issued", map[string]interface{}{
		"account_id": account.ID,
		"expires_at": rt.ExpiresAt,
	})
	return nil
}

// ResetPassword consumes the token before comparing against the old password,
// so a rejected reuse still burns the token.
func (s *AccountService) ResetPassword(ctx context.Context, rawToken, newPassword string, confirmPassword *string) error {
	if confirmPassword != nil && *confirmPassword != newPassword {
		return domain.ErrPasswordMismatch
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}
	if rawToken == "" {
		return domain.ErrInvalidResetToken
	}

	accountID, err := s.resets.Consume(ctx, HashResetToken(rawToken), s.now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidResetToken) {
			metrics.RecordAccountEvent("reset_password", "invalid_token")
		}
		return err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	if password.Matches(account.PasswordHash, newPassword) {
		metrics.RecordAccountEvent("reset_password", "reused")
		return domain.ErrPasswordReused
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, hash, s.now()); err != nil {
		return err
	}

	metrics.RecordAccountEvent("reset_password", "success")
	s.logger.InfoContext(ctx, "Password reset completed", map[string]interface{}{"account_id": accountID})
	return nil
}

func hashPassword(plain string) (string, error) {
	hash, err := password.Hash(plain)
	if errors.Is(err, password.ErrTooLong) {
		return "", domain.NewValidationError("password", "Password must be at most 72 bytes long.")
	}
	return hash, err
}

func newResetToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

// HashResetToken is the digest stored in place of the raw token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
