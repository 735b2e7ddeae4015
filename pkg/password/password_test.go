package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndMatches(t *testing.T) {
	hash, err := Hash("Password123!")
	require.NoError(t, err)

	assert.NotEqual(t, "Password123!", hash)
	assert.True(t, Matches(hash, "Password123!"))
	assert.False(t, Matches(hash, "Password123?"))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, Cost, cost)
}

func TestHash_IsSalted(t *testing.T) {
	a, err := Hash("Password123!")
	require.NoError(t, err)
	b, err := Hash("Password123!")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHash_TooLong(t *testing.T) {
	_, err := Hash(strings.Repeat("A", MaxLength+1))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestMatches_MalformedHash(t *testing.T) {
	assert.False(t, Matches("not-a-bcrypt-hash", "Password123!"))
}
