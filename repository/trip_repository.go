package repository

import (
	"context"
	"database/sql"
	"errors"
	"go-trip-api/logger"
	"go-trip-api/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ITripRepository defines the contract for trip persistence.
type ITripRepository interface {
	Create(ctx context.Context, trip *model.Trip) error
	GetByID(ctx context.Context, id string) (*model.Trip, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Trip, error)
	Update(ctx context.Context, trip *model.Trip) error
	Delete(ctx context.Context, id string) error
}

type TripRepository struct {
	DB *sql.DB
}

func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{DB: db}
}

const tripColumns = `id, user_id, name, description, destinations, status, start_date, end_date, created_at, updated_at`

func scanTrip(row interface{ Scan(...interface{}) error }) (*model.Trip, error) {
	var (
		trip      model.Trip
		status    string
		startDate sql.NullTime
		endDate   sql.NullTime
	)
	err := row.Scan(&trip.ID, &trip.UserID, &trip.Name, &trip.Description, pq.Array(&trip.Destinations),
		&status, &startDate, &endDate, &trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return nil, err
	}
	trip.Status = model.TripStatus(status)
	trip.StartDate = dateFromNull(startDate)
	trip.EndDate = dateFromNull(endDate)
	if trip.Destinations == nil {
		trip.Destinations = []string{}
	}
	return &trip, nil
}

func (r *TripRepository) Create(ctx context.Context, trip *model.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	if trip.Destinations == nil {
		trip.Destinations = []string{}
	}
	log := logger.Log.WithFields(logrus.Fields{
		"trip_id": trip.ID,
		"user_id": trip.UserID,
	})
	log.Info("Executing query to create a new trip")

	query := `
		INSERT INTO trips (id, user_id, name, description, destinations, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, trip.ID, trip.UserID, trip.Name, trip.Description,
		pq.Array(trip.Destinations), string(trip.Status), nullableDate(trip.StartDate), nullableDate(trip.EndDate)).
		Scan(&trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create trip query")
		return err
	}
	return nil
}

func (r *TripRepository) GetByID(ctx context.Context, id string) (*model.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	trip, err := scanTrip(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).WithField("trip_id", id).Error("Failed to execute get trip query")
		return nil, err
	}
	return trip, nil
}

// ListByUser returns every trip of a user. Search, status filtering, sorting
// and pagination happen after status derivation in the service layer.
func (r *TripRepository) ListByUser(ctx context.Context, userID string) ([]*model.Trip, error) {
	log := logger.Log.WithField("user_id", userID)

	query := `SELECT ` + tripColumns + ` FROM trips WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for trips by user ID")
		return nil, err
	}
	defer rows.Close()

	trips := []*model.Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan trip row")
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

func (r *TripRepository) Update(ctx context.Context, trip *model.Trip) error {
	if trip.Destinations == nil {
		trip.Destinations = []string{}
	}
	log := logger.Log.WithField("trip_id", trip.ID)
	log.Info("Executing query to update a trip")

	query := `
		UPDATE trips
		SET name = $2, description = $3, destinations = $4, status = $5, start_date = $6, end_date = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := r.DB.QueryRowContext(ctx, query, trip.ID, trip.Name, trip.Description, pq.Array(trip.Destinations),
		string(trip.Status), nullableDate(trip.StartDate), nullableDate(trip.EndDate)).Scan(&trip.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		log.WithError(err).Error("Failed to execute update trip query")
		return err
	}
	return nil
}

// Delete removes a trip; flights, stays and activities cascade.
func (r *TripRepository) Delete(ctx context.Context, id string) error {
	log := logger.Log.WithField("trip_id", id)
	log.Info("Executing query to delete a trip")

	res, err := r.DB.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute delete trip query")
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
