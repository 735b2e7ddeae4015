package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountsvc/internal/domain"
)

func seedAccount(t *testing.T, repo *SQLAccountRepository) *domain.Account {
	t.Helper()
	a := newAccount("alice", "alice@example.com")
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func TestSQLResetTokenRepository_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	account := seedAccount(t, NewSQLAccountRepository(db, testLogger()))
	tokens := NewSQLResetTokenRepository(db, testLogger())

	now := time.Now().UTC()
	rt := &domain.ResetToken{AccountID: account.ID, TokenHash: "hash-1", ExpiresAt: now.Add(30 * time.Minute), CreatedAt: now}
	require.NoError(t, tokens.Create(ctx, rt))
	assert.NotEmpty(t, rt.ID)

	accountID, err := tokens.Consume(ctx, "hash-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, account.ID, accountID)

	_, err = tokens.Consume(ctx, "hash-1", now.Add(2*time.Minute))
	assert.ErrorIs(t, err, domain.ErrInvalidResetToken)
}

func TestSQLResetTokenRepository_Expired(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	account := seedAccount(t, NewSQLAccountRepository(db, testLogger()))
	tokens := NewSQLResetTokenRepository(db, testLogger())

	now := time.Now().UTC()
	require.NoError(t, tokens.Create(ctx, &domain.ResetToken{
		AccountID: account.ID, TokenHash: "hash-2", ExpiresAt: now.Add(time.Minute), CreatedAt: now,
	}))

	_, err := tokens.Consume(ctx, "hash-2", now.Add(2*time.Minute))
	assert.ErrorIs(t, err, domain.ErrInvalidResetToken)
}

func TestSQLResetTokenRepository_UnknownHash(t *testing.T) {
	tokens := NewSQLResetTokenRepository(newSQLiteDB(t), testLogger())

	_, err := tokens.Consume(context.Background(), "nope", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidResetToken)
}

func TestSQLResetTokenRepository_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	account := seedAccount(t, NewSQLAccountRepository(db, testLogger()))
	tokens := NewSQLResetTokenRepository(db, testLogger())

	now := time.Now().UTC()
	require.NoError(t, tokens.Create(ctx, &domain.ResetToken{
		AccountID: account.ID, TokenHash: "hash-3", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tokens.Consume(ctx, "hash-3", now); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestSQLResetTokenRepository_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)UPDATE\s+password_reset_tokens\s+SET\s+used_at`).
		WillReturnError(errors.New("connection reset"))

	_, err = NewSQLResetTokenRepository(db, testLogger()).Consume(context.Background(), "h", time.Now())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidResetToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}
