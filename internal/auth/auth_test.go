package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "64f1b0c2e4b0a1a2b3c4d5e6", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "64f1b0c2e4b0a1a2b3c4d5e6", userID)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", "64f1b0c2e4b0a1a2b3c4d5e6", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", "64f1b0c2e4b0a1a2b3c4d5e6", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("secret", "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)

	assert.True(t, CheckPasswordHash("hunter2", hash))
	assert.False(t, CheckPasswordHash("hunter3", hash))
}
