package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"accountsvc/internal/domain"
	"accountsvc/pkg/logger"
)

// fakeAccountRepo mimics a store whose username constraint is checked before
// the email one, so the email-precedence probe in Register is exercised.
type fakeAccountRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.Account
	nextID   int
	failWith error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: make(map[string]*domain.Account)}
}

func (r *fakeAccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	for _, existing := range r.byID {
		if existing.Username == a.Username {
			return domain.ErrDuplicateUsername
		}
	}
	for _, existing := range r.byID {
		if existing.Email == a.Email {
			return domain.ErrDuplicateEmail
		}
	}
	r.nextID++
	a.ID = fmt.Sprintf("acc-%d", r.nextID)
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) find(match func(*domain.Account) bool) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, a := range r.byID {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *fakeAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.ID == id })
}

func (r *fakeAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Email == email })
}

func (r *fakeAccountRepo) FindByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Email == identifier || a.Username == identifier })
}

func (r *fakeAccountRepo) ApplyProfilePatch(_ context.Context, id string, patch domain.ProfilePatch, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	patch.ApplyTo(a)
	a.UpdatedAt = updatedAt
	return nil
}

func (r *fakeAccountRepo) UpdatePassword(_ context.Context, id string, hash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.PasswordHash = hash
	a.UpdatedAt = updatedAt
	return nil
}

type fakeResetRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.ResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: make(map[string]*domain.ResetToken)}
}

func (r *fakeResetRepo) Create(_ context.Context, t *domain.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tokens[t.TokenHash] = &cp
	return nil
}

func (r *fakeResetRepo) Consume(_ context.Context, hash string, now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[hash]
	if !ok || t.UsedAt != nil || !now.Before(t.ExpiresAt) {
		return "", domain.ErrInvalidResetToken
	}
	t.UsedAt = &now
	return t.AccountID, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []domain.ResetNotice
	err     error
}

func (n *recordingNotifier) NotifyPasswordReset(_ context.Context, notice domain.ResetNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) last() domain.ResetNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.notices[len(n.notices)-1]
}

func testLogger() logger.Logger {
	return logger.New(logger.ErrorLevel, io.Discard)
}
