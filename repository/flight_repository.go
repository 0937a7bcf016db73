package repository

import (
	"context"
	"database/sql"
	"errors"
	"go-trip-api/logger"
	"go-trip-api/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IFlightRepository defines the contract for flight persistence.
type IFlightRepository interface {
	Create(ctx context.Context, flight *model.Flight) error
	GetByID(ctx context.Context, id string) (*model.Flight, error)
	ListByTrip(ctx context.Context, tripID string) ([]*model.Flight, error)
	Update(ctx context.Context, flight *model.Flight) error
	Delete(ctx context.Context, id string) error
}

type FlightRepository struct {
	DB *sql.DB
}

func NewFlightRepository(db *sql.DB) *FlightRepository {
	return &FlightRepository{DB: db}
}

const flightColumns = `id, trip_id, airline, flight_number, departure_airport, arrival_airport,
	departure_time, arrival_time, confirmation_number, notes, created_at, updated_at`

func scanFlight(row interface{ Scan(...interface{}) error }) (*model.Flight, error) {
	var f model.Flight
	err := row.Scan(&f.ID, &f.TripID, &f.Airline, &f.FlightNumber, &f.DepartureAirport, &f.ArrivalAirport,
		&f.DepartureTime, &f.ArrivalTime, &f.ConfirmationNumber, &f.Notes, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FlightRepository) Create(ctx context.Context, f *model.Flight) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	log := logger.Log.WithFields(logrus.Fields{"flight_id": f.ID, "trip_id": f.TripID})
	log.Info("Executing query to create a new flight")

	query := `
		INSERT INTO flights (id, trip_id, airline, flight_number, departure_airport, arrival_airport,
			departure_time, arrival_time, confirmation_number, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, f.ID, f.TripID, f.Airline, f.FlightNumber, f.DepartureAirport,
		f.ArrivalAirport, f.DepartureTime, f.ArrivalTime, f.ConfirmationNumber, f.Notes).
		Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create flight query")
		return err
	}
	return nil
}

func (r *FlightRepository) GetByID(ctx context.Context, id string) (*model.Flight, error) {
	f, err := scanFlight(r.DB.QueryRowContext(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (r *FlightRepository) ListByTrip(ctx context.Context, tripID string) ([]*model.Flight, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+flightColumns+` FROM flights WHERE trip_id = $1 ORDER BY departure_time ASC`, tripID)
	if err != nil {
		logger.Log.WithError(err).WithField("trip_id", tripID).Error("Failed to execute query for flights by trip ID")
		return nil, err
	}
	defer rows.Close()

	flights := []*model.Flight{}
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *FlightRepository) Update(ctx context.Context, f *model.Flight) error {
	query := `
		UPDATE flights
		SET airline = $2, flight_number = $3, departure_airport = $4, arrival_airport = $5,
			departure_time = $6, arrival_time = $7, confirmation_number = $8, notes = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := r.DB.QueryRowContext(ctx, query, f.ID, f.Airline, f.FlightNumber, f.DepartureAirport, f.ArrivalAirport,
		f.DepartureTime, f.ArrivalTime, f.ConfirmationNumber, f.Notes).Scan(&f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		logger.Log.WithError(err).WithField("flight_id", f.ID).Error("Failed to execute update flight query")
		return err
	}
	return nil
}

func (r *FlightRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.DB, "flights", id)
}
