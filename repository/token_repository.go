package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-trip-api/logger"
	"go-trip-api/model"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ITokenRepository defines the contract for refresh token database operations.
type ITokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	GetActive(ctx context.Context, tokenHash string, now time.Time) (*model.RefreshToken, error)
	Rotate(ctx context.Context, oldHash string, replacement *model.RefreshToken, now time.Time) (*model.RefreshToken, error)
	Revoke(ctx context.Context, tokenHash, userID string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error)
}

// TokenRepository implements ITokenRepository.
type TokenRepository struct {
	DB *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

// Create inserts a new refresh token record into the database.
func (r *TokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    token.UserID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new refresh token")

	query := `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES ($1, $2, $3, $4) RETURNING created_at`
	err := r.DB.QueryRowContext(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt).Scan(&token.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return err
	}
	return nil
}

// GetActive returns the token identified by tokenHash when it is neither
// revoked nor expired at now, and ErrNotFound otherwise.
func (r *TokenRepository) GetActive(ctx context.Context, tokenHash string, now time.Time) (*model.RefreshToken, error) {
	token := &model.RefreshToken{TokenHash: tokenHash}
	query := `
		SELECT id, user_id, expires_at, created_at FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2`
	err := r.DB.QueryRowContext(ctx, query, tokenHash, now).Scan(&token.ID, &token.UserID, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).Error("Failed to execute get refresh token query")
		return nil, err
	}
	return token, nil
}

// Rotate revokes the valid token identified by oldHash and inserts replacement
// for the same user in one transaction. The conditional UPDATE locks the row,
// so a concurrent second rotation of the same token matches nothing and gets
// ErrNotFound instead of minting another replacement.
func (r *TokenRepository) Rotate(ctx context.Context, oldHash string, replacement *model.RefreshToken, now time.Time) (*model.RefreshToken, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	old := &model.RefreshToken{TokenHash: oldHash}
	revoke := `
		UPDATE refresh_tokens SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2
		RETURNING id, user_id, expires_at, created_at`
	err = tx.QueryRowContext(ctx, revoke, oldHash, now).Scan(&old.ID, &old.UserID, &old.ExpiresAt, &old.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not revoke refresh token: %w", err)
	}
	revokedAt := now
	old.RevokedAt = &revokedAt

	if replacement.ID == "" {
		replacement.ID = uuid.NewString()
	}
	replacement.UserID = old.UserID
	replacement.CreatedAt = now

	insert := `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insert, replacement.ID, replacement.UserID, replacement.TokenHash, replacement.ExpiresAt, replacement.CreatedAt); err != nil {
		return nil, fmt.Errorf("could not insert replacement refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":      old.UserID,
		"old_token_id": old.ID,
		"new_token_id": replacement.ID,
	}).Info("Refresh token rotated")
	return old, nil
}

// Revoke marks the caller's token as revoked. Revoking an unknown or already
// revoked token is not an error.
func (r *TokenRepository) Revoke(ctx context.Context, tokenHash, userID string, now time.Time) error {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to revoke a refresh token")

	query := `UPDATE refresh_tokens SET revoked_at = $3 WHERE token_hash = $1 AND user_id = $2 AND revoked_at IS NULL`
	if _, err := r.DB.ExecContext(ctx, query, tokenHash, userID, now); err != nil {
		log.WithError(err).Error("Failed to execute revoke refresh token query")
		return err
	}
	return nil
}

// RevokeAllForUser revokes every active refresh token of a user.
// This is used for logging out from all sessions.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to revoke all refresh tokens for a user")

	query := `UPDATE refresh_tokens SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, now)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke all refresh tokens query")
		return 0, err
	}
	return res.RowsAffected()
}
