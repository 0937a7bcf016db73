package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"go-trip-api/logger"
	"go-trip-api/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for any access token that fails verification.
var ErrInvalidToken = errors.New("invalid access token")

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// opaqueTokenBytes is the entropy of a raw refresh token before hex encoding.
const opaqueTokenBytes = 40

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost      int
	dummyHash []byte
}

// NewPasswordHasher precomputes a dummy hash with the same cost so that a
// login for an unknown email costs as much as one for a known email.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-equaliser-not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("could not compute dummy hash: %w", err)
	}
	return &PasswordHasher{cost: cost, dummyHash: dummy}, nil
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

// Verify compares password against hash. An empty hash is checked against the
// dummy hash and always fails.
func (h *PasswordHasher) Verify(password, hash string) bool {
	if hash == "" {
		bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateOpaqueToken returns a random refresh token value for the client.
func GenerateOpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("could not read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashOpaqueToken is the storage key for a raw refresh token.
func HashOpaqueToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// TokenCodec signs and verifies HS256 access tokens.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenCodec(secret, issuer string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of tokens produced by Sign.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

func (c *TokenCodec) Sign(user *model.User) (string, error) {
	now := c.now()
	claims := &model.AccessClaims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Error("Failed to sign JWT")
		return "", fmt.Errorf("failed to sign token string: %w", err)
	}
	return tokenString, nil
}

// Verify fails closed: a bad signature, another algorithm, a wrong issuer, a
// missing or past expiry and a missing subject all yield ErrInvalidToken.
func (c *TokenCodec) Verify(tokenString string) (*model.AccessClaims, error) {
	claims := &model.AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
