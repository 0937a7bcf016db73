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

// IActivityRepository defines the contract for activity persistence.
type IActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	GetByID(ctx context.Context, id string) (*model.Activity, error)
	ListByTrip(ctx context.Context, tripID string) ([]*model.Activity, error)
	Update(ctx context.Context, activity *model.Activity) error
	Delete(ctx context.Context, id string) error
}

type ActivityRepository struct {
	DB *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

const activityColumns = `id, trip_id, name, date, start_time, end_time, location, notes, created_at, updated_at`

func scanActivity(row interface{ Scan(...interface{}) error }) (*model.Activity, error) {
	var (
		a         model.Activity
		date      time.Time
		startTime sql.NullTime
		endTime   sql.NullTime
	)
	err := row.Scan(&a.ID, &a.TripID, &a.Name, &date, &startTime, &endTime, &a.Location, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Date = dateOf(date)
	a.StartTime = timeFromNull(startTime)
	a.EndTime = timeFromNull(endTime)
	return &a, nil
}

func (r *ActivityRepository) Create(ctx context.Context, a *model.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	log := logger.Log.WithFields(logrus.Fields{"activity_id": a.ID, "trip_id": a.TripID})
	log.Info("Executing query to create a new activity")

	query := `
		INSERT INTO activities (id, trip_id, name, date, start_time, end_time, location, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, a.ID, a.TripID, a.Name, a.Date.String(),
		nullableTime(a.StartTime), nullableTime(a.EndTime), a.Location, a.Notes).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create activity query")
		return err
	}
	return nil
}

func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*model.Activity, error) {
	a, err := scanActivity(r.DB.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *ActivityRepository) ListByTrip(ctx context.Context, tripID string) ([]*model.Activity, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE trip_id = $1 ORDER BY date ASC, start_time ASC NULLS FIRST`, tripID)
	if err != nil {
		logger.Log.WithError(err).WithField("trip_id", tripID).Error("Failed to execute query for activities by trip ID")
		return nil, err
	}
	defer rows.Close()

	activities := []*model.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (r *ActivityRepository) Update(ctx context.Context, a *model.Activity) error {
	query := `
		UPDATE activities
		SET name = $2, date = $3, start_time = $4, end_time = $5, location = $6, notes = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := r.DB.QueryRowContext(ctx, query, a.ID, a.Name, a.Date.String(), nullableTime(a.StartTime),
		nullableTime(a.EndTime), a.Location, a.Notes).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		logger.Log.WithError(err).WithField("activity_id", a.ID).Error("Failed to execute update activity query")
		return err
	}
	return nil
}

func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.DB, "activities", id)
}

// deleteByID removes one row from a child table of trips. table is always a
// constant supplied by this package.
func deleteByID(ctx context.Context, db *sql.DB, table, id string) error {
	log := logger.Log.WithFields(logrus.Fields{"table": table, "id": id})
	log.Info("Executing delete query")

	res, err := db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		log.WithError(err).Error("Failed to execute delete query")
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
