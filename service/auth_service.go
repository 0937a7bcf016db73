package service

import (
	"context"
	"errors"
	"fmt"
	"go-trip-api/logger"
	"go-trip-api/model"
	"go-trip-api/repository"
	"go-trip-api/validation"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrUnauthorized        = errors.New("authentication required")
)

const userCacheTTL = 5 * time.Minute

// AuthEventRecorder receives one event per session operation.
type AuthEventRecorder interface {
	RecordAuthEvent(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthEvent(string, string) {}

// Session is the outcome of register, login and refresh. RefreshToken is the
// raw value destined for the cookie and is never stored.
type Session struct {
	User             *model.User
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthService implements the session protocol on top of the credential store.
type AuthService struct {
	users      repository.IUserRepository
	tokens     repository.ITokenRepository
	hasher     *PasswordHasher
	codec      *TokenCodec
	refreshTTL time.Duration
	cache      ICacheClient
	events     AuthEventRecorder
	now        func() time.Time
}

type AuthOption func(*AuthService)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithUserCache enables cache-aside reads for CurrentUser.
func WithUserCache(cache ICacheClient) AuthOption {
	return func(s *AuthService) { s.cache = cache }
}

func WithAuthEvents(r AuthEventRecorder) AuthOption {
	return func(s *AuthService) { s.events = r }
}

func NewAuthService(users repository.IUserRepository, tokens repository.ITokenRepository,
	hasher *PasswordHasher, codec *TokenCodec, refreshTTL time.Duration, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:      users,
		tokens:     tokens,
		hasher:     hasher,
		codec:      codec,
		refreshTTL: refreshTTL,
		events:     noopRecorder{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshTTL is the lifetime of refresh tokens and of the cookie carrying them.
func (s *AuthService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// Register creates the account and opens a session for it. Email uniqueness
// is decided by the store, so of two concurrent registrations one gets ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*Session, error) {
	if len(req.Password) > MaxPasswordBytes {
		return nil, validation.Errors{"password": "password must be at most 72 bytes"}
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.events.RecordAuthEvent("register", "email_taken")
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("user_id", user.ID).Info("User registered")
	s.events.RecordAuthEvent("register", "success")
	return session, nil
}

// Login always runs one bcrypt comparison, against the dummy hash when the
// email is unknown, and returns the same error for both failure causes.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	if !s.hasher.Verify(req.Password, hash) || user == nil {
		s.events.RecordAuthEvent("login", "invalid_credentials")
		logger.Log.Info("Login rejected")
		return nil, ErrInvalidCredentials
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("user_id", user.ID).Info("User logged in")
	s.events.RecordAuthEvent("login", "success")
	return session, nil
}

// Refresh exchanges a raw refresh token for a new access token and a new
// refresh token. The presented token is single-use. Every failure cause
// collapses into ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*Session, error) {
	if rawToken == "" {
		s.events.RecordAuthEvent("refresh", "invalid")
		return nil, ErrInvalidRefreshToken
	}

	now := s.now()
	oldHash := HashOpaqueToken(rawToken)
	current, err := s.tokens.GetActive(ctx, oldHash, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.events.RecordAuthEvent("refresh", "invalid")
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	// Everything that can fail runs before the presented token is consumed.
	user, err := s.users.GetUserByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.events.RecordAuthEvent("refresh", "invalid")
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	access, err := s.codec.Sign(user)
	if err != nil {
		return nil, err
	}
	newRaw, err := GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}
	replacement := &model.RefreshToken{
		TokenHash: HashOpaqueToken(newRaw),
		ExpiresAt: now.Add(s.refreshTTL),
	}

	if _, err := s.tokens.Rotate(ctx, oldHash, replacement, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.events.RecordAuthEvent("refresh", "invalid")
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	s.events.RecordAuthEvent("refresh", "success")
	return &Session{
		User:             user,
		AccessToken:      access,
		RefreshToken:     newRaw,
		RefreshExpiresAt: replacement.ExpiresAt,
	}, nil
}

// Logout revokes the caller's refresh token if one was presented. Revocation
// is best effort; Logout itself never fails for an authenticated caller.
func (s *AuthService) Logout(ctx context.Context, userID, rawToken string) {
	log := logger.Log.WithField("user_id", userID)
	if rawToken != "" {
		if err := s.tokens.Revoke(ctx, HashOpaqueToken(rawToken), userID, s.now()); err != nil {
			log.WithError(err).Warn("Failed to revoke refresh token on logout")
		}
	}
	log.Info("User logged out")
	s.events.RecordAuthEvent("logout", "success")
}

// LogoutAll revokes every refresh token the user holds, ending the session on
// every device once their access tokens expire.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.tokens.RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}
	logger.Log.WithFields(logrus.Fields{"user_id": userID, "revoked": n}).Info("All sessions revoked")
	s.events.RecordAuthEvent("logout_all", "success")
	return n, nil
}

// Authenticate verifies a bearer access token.
func (s *AuthService) Authenticate(accessToken string) (*model.AccessClaims, error) {
	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// CurrentUser returns the account behind an authenticated request. A user
// deleted since the token was issued is treated as unauthenticated.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	key := userCacheKey(userID)
	var cached model.User
	if getCached(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	setCached(ctx, s.cache, key, user, userCacheTTL)
	return user, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *model.User) (*Session, error) {
	access, err := s.codec.Sign(user)
	if err != nil {
		return nil, err
	}
	raw, err := GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}
	token := &model.RefreshToken{
		UserID:    user.ID,
		TokenHash: HashOpaqueToken(raw),
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("could not store refresh token: %w", err)
	}
	return &Session{
		User:             user,
		AccessToken:      access,
		RefreshToken:     raw,
		RefreshExpiresAt: token.ExpiresAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userCacheKey(userID string) string {
	return "user:" + userID
}
