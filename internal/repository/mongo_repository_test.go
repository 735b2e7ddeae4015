package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"accountsvc/internal/domain"
)

func TestMongoDuplicate(t *testing.T) {
	dupErr := func(index, field, value string) error {
		msg := fmt.Sprintf("E11000 duplicate key error collection: user_information.user_credentials index: %s dup key: { %s: %q }",
			index, field, value)
		return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: msg}}}
	}

	assert.ErrorIs(t, mongoDuplicate(dupErr(emailIndexName, "email", "a@b.com")), domain.ErrDuplicateEmail)
	assert.ErrorIs(t, mongoDuplicate(dupErr(usernameIndexName, "user_name", "alice")), domain.ErrDuplicateUsername)
	// the conflicting value must not decide the classification
	assert.ErrorIs(t, mongoDuplicate(dupErr(usernameIndexName, "user_name", emailIndexName)), domain.ErrDuplicateUsername)
	assert.ErrorIs(t, mongoDuplicate(dupErr(emailIndexName, "email", usernameIndexName+"@b.com")), domain.ErrDuplicateEmail)
	assert.Nil(t, mongoDuplicate(dupErr("other_index", "x", "email")))
	assert.Nil(t, mongoDuplicate(errors.New("timeout")))
}

func newMongoDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database(fmt.Sprintf("accountsvc_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestMongoAccountRepository_Integration(t *testing.T) {
	db := newMongoDatabase(t)
	ctx := context.Background()

	repo := NewMongoAccountRepository(db, testLogger())
	require.NoError(t, repo.EnsureIndexes(ctx))

	a := newAccount("alice", "alice@example.com")
	require.NoError(t, repo.Create(ctx, a))

	assert.ErrorIs(t, repo.Create(ctx, newAccount("other", "alice@example.com")), domain.ErrDuplicateEmail)
	assert.ErrorIs(t, repo.Create(ctx, newAccount("alice", "other@example.com")), domain.ErrDuplicateUsername)

	got, err := repo.FindByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = repo.FindByID(ctx, "not-hex")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	require.NoError(t, repo.ApplyProfilePatch(ctx, a.ID, domain.ProfilePatch{Location: strPtr("Oslo")}, time.Now()))
	got, err = repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oslo", got.Location)
	assert.Equal(t, domain.ThemeSystem, got.Theme)
}

func TestMongoResetTokenRepository_Integration(t *testing.T) {
	db := newMongoDatabase(t)
	ctx := context.Background()

	tokens := NewMongoResetTokenRepository(db, testLogger())
	require.NoError(t, tokens.EnsureIndexes(ctx))

	now := time.Now().UTC()
	require.NoError(t, tokens.Create(ctx, &domain.ResetToken{
		AccountID: "acc-1", TokenHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}))

	id, err := tokens.Consume(ctx, "h", now)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", id)

	_, err = tokens.Consume(ctx, "h", now)
	assert.ErrorIs(t, err, domain.ErrInvalidResetToken)
}
