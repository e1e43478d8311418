package jwtutil

import (
	"testing"
	"time"

	"storefront-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUtil() *JWTUtil {
	return NewJWTUtil(&config.JWTConfig{
		SigningKey:      "0123456789abcdef0123456789abcdef",
		ExpirationHours: 24,
		RememberMeHours: 168,
	})
}

func TestGenerateAndValidate(t *testing.T) {
	j := newUtil()

	token, expires, err := j.GenerateToken("ana@example.com", 7, "ADMIN", false)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expires, time.Minute)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "ADMIN", claims.Role)
}

func TestRememberMeExtendsLifetime(t *testing.T) {
	j := newUtil()
	_, expires, err := j.GenerateToken("a@b.c", 1, "USER", true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expires, time.Minute)
}

func TestExpiredTokenRejected(t *testing.T) {
	j := newUtil()
	j.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, _, err := j.GenerateToken("a@b.c", 1, "USER", false)
	require.NoError(t, err)

	j.now = time.Now
	_, err = j.ValidateToken(token)
	assert.Error(t, err)
}

func TestForeignSignatureRejected(t *testing.T) {
	token, _, err := newUtil().GenerateToken("a@b.c", 1, "USER", false)
	require.NoError(t, err)

	other := NewJWTUtil(&config.JWTConfig{SigningKey: "another-secret-another-secret-xx", ExpirationHours: 1})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}
