package repository

import (
	"context"
	"database/sql"
	"errors"
	"go-trip-api/logger"
	"go-trip-api/model"
	"strings"

	"github.com/google/uuid"
)

// IUserRepository defines the contract for user persistence.
type IUserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// CreateUser inserts a user. Email uniqueness is enforced by a unique index on
// lower(email), so concurrent registrations cannot both succeed.
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	log := logger.Log.WithField("user_id", user.ID)
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (id, name, email, password_hash) VALUES ($1, $2, $3, $4) RETURNING created_at`
	err := r.DB.QueryRowContext(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		log.WithError(err).Error("Failed to execute create user query")
		return err
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE lower(email) = $1`
	err := r.DB.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).Error("Failed to execute get user by email query")
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).WithField("user_id", id).Error("Failed to execute get user by id query")
		return nil, err
	}
	return user, nil
}
