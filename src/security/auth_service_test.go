package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-test-secret-at-least-32-bytes-long!"

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewAuthService(testSecret)

	token, err := svc.GenerateToken(42, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", subject)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewAuthService(testSecret)

	token, err := svc.GenerateToken(42, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewAuthService(testSecret).GenerateToken(42, time.Hour)
	require.NoError(t, err)

	_, err = NewAuthService("a-different-secret-also-32-bytes!!").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(testSecret)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestGenerateRefreshTokenIsUnique(t *testing.T) {
	svc := NewAuthService(testSecret)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		token, err := svc.GenerateRefreshToken()
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.False(t, seen[token], "refresh tokens must not repeat")
		seen[token] = true
	}
}
