package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "secret", time.Minute)
	require.NoError(t, err)

	userID, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(42, "secret", time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other")
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken(42, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret")
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("not-a-token", "secret")
	assert.Error(t, err)
}
