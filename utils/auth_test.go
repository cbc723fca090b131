package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("segredo", time.Hour)
	token, err := m.GenerateJWTToken("escola-42")
	require.NoError(t, err)

	claims, err := m.ParseJWTToken(token)
	require.NoError(t, err)
	assert.Equal(t, "escola-42", claims.Subject)
}

func TestTokenRejections(t *testing.T) {
	m := NewTokenManager("segredo", time.Hour)

	other, err := NewTokenManager("outro", time.Hour).GenerateJWTToken("x")
	require.NoError(t, err)
	_, err = m.ParseJWTToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "x",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	signed, err := expired.SignedString([]byte("segredo"))
	require.NoError(t, err)
	_, err = m.ParseJWTToken(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = m.ParseJWTToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNoSecretDisablesTokens(t *testing.T) {
	assert.Nil(t, NewTokenManager("", time.Hour))
}
