package remote

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTestToken(t *testing.T, exp time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{"sub": "device@clockout.app"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestSession_DecodesExpiry(t *testing.T) {
	exp := time.Now().Add(45 * time.Minute).Truncate(time.Second)

	session := newSession(signedTestToken(t, exp), "bearer", User{Email: "device@clockout.app"})

	assert.Equal(t, exp.Unix(), session.ExpiresAt.Unix())
	assert.Equal(t, "device@clockout.app", session.User.Email)
}

func TestSession_Valid(t *testing.T) {
	now := time.Now()

	t.Run("empty token is invalid", func(t *testing.T) {
		assert.False(t, Session{}.Valid(now))
	})

	t.Run("future expiry is valid", func(t *testing.T) {
		session := newSession(signedTestToken(t, now.Add(time.Hour)), "bearer", User{})
		assert.True(t, session.Valid(now))
	})

	t.Run("expired token is invalid", func(t *testing.T) {
		session := newSession(signedTestToken(t, now.Add(-time.Minute)), "bearer", User{})
		assert.False(t, session.Valid(now))
	})

	t.Run("expiry inside the leeway window is invalid", func(t *testing.T) {
		session := newSession(signedTestToken(t, now.Add(expiryLeeway/2)), "bearer", User{})
		assert.False(t, session.Valid(now))
	})

	t.Run("token without exp claim is trusted", func(t *testing.T) {
		session := newSession(signedTestToken(t, time.Time{}), "bearer", User{})
		assert.True(t, session.Valid(now))
	})

	t.Run("opaque token is trusted", func(t *testing.T) {
		session := Session{Token: "not-a-jwt"}
		assert.True(t, session.Valid(now))
	})
}
