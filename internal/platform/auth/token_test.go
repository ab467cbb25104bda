package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := IssueToken(secret, "user-1", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = ParseToken([]byte("other-secret"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := IssueToken(secret, "user-1", RoleViewer, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken(secret, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
