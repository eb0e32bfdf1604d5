package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateToken("secret", "user-1", "a@b.c", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, "autovideo-api", claims.Issuer)
}

func TestValidateToken_Rejects(t *testing.T) {
	good, err := GenerateToken("secret", "user-1", "", 0)
	require.NoError(t, err)
	_, err = ValidateToken(good, "other")
	assert.Error(t, err)

	past := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "u",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
	})
	s, err := past.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ValidateToken(s, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	noUser, err := GenerateToken("secret", "", "", 0)
	require.NoError(t, err)
	_, err = ValidateToken(noUser, "secret")
	assert.Error(t, err)
}
