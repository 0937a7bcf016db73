package repository

import (
	"context"
	"database/sql"
	"errors"
	"go-trip-api/logger"
	"go-trip-api/model"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IStayRepository defines the contract for stay persistence.
type IStayRepository interface {
	Create(ctx context.Context, stay *model.Stay) error
	GetByID(ctx context.Context, id string) (*model.Stay, error)
	ListByTrip(ctx context.Context, tripID string) ([]*model.Stay, error)
	Update(ctx context.Context, stay *model.Stay) error
	Delete(ctx context.Context, id string) error
}

type StayRepository struct {
	DB *sql.DB
}

func NewStayRepository(db *sql.DB) *StayRepository {
	return &StayRepository{DB: db}
}

const stayColumns = `id, trip_id, name, address, check_in, check_out, confirmation_number, notes, created_at, updated_at`

func scanStay(row interface{ Scan(...interface{}) error }) (*model.Stay, error) {
	var (
		s        model.Stay
		checkIn  time.Time
		checkOut time.Time
	)
	err := row.Scan(&s.ID, &s.TripID, &s.Name, &s.Address, &checkIn, &checkOut,
		&s.ConfirmationNumber, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.CheckIn = dateOf(checkIn)
	s.CheckOut = dateOf(checkOut)
	return &s, nil
}

func (r *StayRepository) Create(ctx context.Context, s *model.Stay) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	log := logger.Log.WithFields(logrus.Fields{"stay_id": s.ID, "trip_id": s.TripID})
	log.Info("Executing query to create a new stay")

	query := `
		INSERT INTO stays (id, trip_id, name, address, check_in, check_out, confirmation_number, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, s.ID, s.TripID, s.Name, s.Address, s.CheckIn.String(),
		s.CheckOut.String(), s.ConfirmationNumber, s.Notes).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create stay query")
		return err
	}
	return nil
}

func (r *StayRepository) GetByID(ctx context.Context, id string) (*model.Stay, error) {
	s, err := scanStay(r.DB.QueryRowContext(ctx, `SELECT `+stayColumns+` FROM stays WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *StayRepository) ListByTrip(ctx context.Context, tripID string) ([]*model.Stay, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+stayColumns+` FROM stays WHERE trip_id = $1 ORDER BY check_in ASC`, tripID)
	if err != nil {
		logger.Log.WithError(err).WithField("trip_id", tripID).Error("Failed to execute query for stays by trip ID")
		return nil, err
	}
	defer rows.Close()

	stays := []*model.Stay{}
	for rows.Next() {
		s, err := scanStay(rows)
		if err != nil {
			return nil, err
		}
		stays = append(stays, s)
	}
	return stays, rows.Err()
}

func (r *StayRepository) Update(ctx context.Context, s *model.Stay) error {
	query := `
		UPDATE stays
		SET name = $2, address = $3, check_in = $4, check_out = $5, confirmation_number = $6, notes = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := r.DB.QueryRowContext(ctx, query, s.ID, s.Name, s.Address, s.CheckIn.String(), s.CheckOut.String(),
		s.ConfirmationNumber, s.Notes).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		logger.Log.WithError(err).WithField("stay_id", s.ID).Error("Failed to execute update stay query")
		return err
	}
	return nil
}

func (r *StayRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.DB, "stays", id)
}
