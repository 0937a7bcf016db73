package service

import (
	"encoding/hex"
	"go-trip-api/model"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	first, err := hasher.Hash("correct horse battery")
	require.NoError(t, err)
	second, err := hasher.Hash("correct horse battery")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "salted hashes must differ")
	assert.True(t, hasher.Verify("correct horse battery", first))
	assert.True(t, hasher.Verify("correct horse battery", second))
	assert.False(t, hasher.Verify("wrong", first))
	assert.False(t, hasher.Verify("correct horse battery", ""), "empty hash checks the dummy and fails")
}

func TestNewPasswordHasher_RejectsBadCost(t *testing.T) {
	_, err := NewPasswordHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func TestOpaqueTokens(t *testing.T) {
	a, err := GenerateOpaqueToken()
	require.NoError(t, err)
	b, err := GenerateOpaqueToken()
	require.NoError(t, err)

	assert.Len(t, a, 2*opaqueTokenBytes)
	_, err = hex.DecodeString(a)
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)

	assert.Equal(t, HashOpaqueToken(a), HashOpaqueToken(a))
	assert.NotEqual(t, HashOpaqueToken(a), HashOpaqueToken(b))
	assert.NotEqual(t, a, HashOpaqueToken(a))
}

func TestTokenCodec(t *testing.T) {
	user := &model.User{ID: "user-1", Name: "Ann", Email: "ann@example.com"}
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	newCodec := func() *TokenCodec {
		c := NewTokenCodec("test-secret", "go-trip-api", 15*time.Minute)
		c.now = func() time.Time { return now }
		return c
	}

	t.Run("round trip", func(t *testing.T) {
		codec := newCodec()
		token, err := codec.Sign(user)
		require.NoError(t, err)

		claims, err := codec.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, "ann@example.com", claims.Email)
		assert.Equal(t, "Ann", claims.Name)
		assert.Equal(t, now.Add(15*time.Minute), claims.ExpiresAt.Time)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("expired", func(t *testing.T) {
		codec := newCodec()
		token, err := codec.Sign(user)
		require.NoError(t, err)

		codec.now = func() time.Time { return now.Add(16 * time.Minute) }
		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered payload", func(t *testing.T) {
		codec := newCodec()
		token, err := codec.Sign(user)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		other, err := codec.Sign(&model.User{ID: "user-2"})
		require.NoError(t, err)
		parts[1] = strings.Split(other, ".")[1]

		_, err = codec.Verify(strings.Join(parts, "."))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret or issuer", func(t *testing.T) {
		token, err := newCodec().Sign(user)
		require.NoError(t, err)

		otherSecret := NewTokenCodec("another-secret", "go-trip-api", time.Minute)
		otherSecret.now = func() time.Time { return now }
		_, err = otherSecret.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)

		otherIssuer := NewTokenCodec("test-secret", "someone-else", time.Minute)
		otherIssuer.now = func() time.Time { return now }
		_, err = otherIssuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned token", func(t *testing.T) {
		claims := &model.AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "go-trip-api",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = newCodec().Verify(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := newCodec().Verify("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
