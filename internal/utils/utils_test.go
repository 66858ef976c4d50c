package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("other", hash))
	assert.False(t, CheckPasswordHash("s3cret-pass", ""))
	assert.False(t, CheckPasswordHash("s3cret-pass", "not-a-bcrypt-hash"))

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestHashPasswordIsSalted(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSessionIssuerRoundTrip(t *testing.T) {
	issuer := NewSessionIssuer("test-signing-secret-123", time.Hour)

	token, err := issuer.Generate("65f000000000000000000001", "staff")
	require.NoError(t, err)

	claims, err := issuer.Validate(token, "staff")
	require.NoError(t, err)
	assert.Equal(t, "65f000000000000000000001", claims.Subject)
	assert.Equal(t, "staff", claims.Kind)
}

func TestSessionIssuerRejects(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer := NewSessionIssuer("test-signing-secret-123", time.Hour).WithClock(func() time.Time { return now })

	token, err := issuer.Generate("abc", "client")
	require.NoError(t, err)

	t.Run("other secret", func(t *testing.T) {
		other := NewSessionIssuer("another-signing-secret", time.Hour).WithClock(func() time.Time { return now })
		_, err := other.Validate(token, "client")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := issuer.WithClock(func() time.Time { return now.Add(2 * time.Hour) })
		_, err := later.Validate(token, "client")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong kind", func(t *testing.T) {
		_, err := issuer.Validate(token, "staff")
		assert.ErrorIs(t, err, ErrWrongKind)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Validate("not.a.token", "client")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			Kind: "client",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "abc",
				Issuer:    sessionIssuer,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Validate(raw, "client")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestSessionIssuerWithoutSecret(t *testing.T) {
	issuer := NewSessionIssuer("", time.Hour)
	_, err := issuer.Generate("abc", "staff")
	assert.True(t, errors.Is(err, ErrMissingSecret))
}

func TestNewOneTimeToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := NewOneTimeToken()
		require.NoError(t, err)
		// 32 random bytes, unpadded base64url
		assert.Len(t, tok, 43)
		assert.NotContains(t, tok, "+")
		assert.NotContains(t, tok, "/")
		_, dup := seen[tok]
		assert.False(t, dup)
		seen[tok] = struct{}{}
	}
}
