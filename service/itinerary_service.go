package service

import (
	"context"
	"errors"
	"go-trip-api/logger"
	"go-trip-api/model"
	"go-trip-api/repository"
	"go-trip-api/validation"

	"github.com/sirupsen/logrus"
)

var (
	ErrFlightNotFound   = errors.New("flight not found")
	ErrStayNotFound     = errors.New("stay not found")
	ErrActivityNotFound = errors.New("activity not found")
)

var flightSchema = validation.Schema{
	"airline":           {validation.Required(), validation.Type(validation.TypeString), validation.MaxLength(100)},
	"flight_number":     {validation.Required(), validation.Type(validation.TypeString), validation.MaxLength(20)},
	"departure_airport": {validation.Required(), validation.Type(validation.TypeString), validation.MaxLength(100)},
	"arrival_airport":   {validation.Required(), validation.Type(validation.TypeString), validation.MaxLength(100)},
	"departure_time":    {validation.Required(), validation.Type(validation.TypeDateTime)},
	"arrival_time": {
		validation.Required(),
		validation.Type(validation.TypeDateTime),
		validation.After("arrival_time", "departure_time", validation.TypeDateTime, false),
	},
	"confirmation_number": {validation.Type(validation.TypeString), validation.MaxLength(100)},
	"notes":               {validation.Type(validation.TypeString), validation.MaxLength(2000)},
}

var staySchema = validation.Schema{
	"name":     {validation.Required(), validation.Type(validation.TypeString), validation.MaxLength(200)},
	"address":  {validation.Type(validation.TypeString), validation.MaxLength(500)},
	"check_in": {validation.Required(), validation.Type(validation.TypeDate)},
	"check_out": {
		validation.Required(),
		validation.Type(validation.TypeDate),
		validation.After("check_out", "check_in", validation.TypeDate, false),
	},
	"confirmation_number": {validation.Type(validation.TypeString), validation.MaxLength(100)},
	"notes":               {validation.Type(validation.TypeString), validation.MaxLength(2000)},
}

var activitySchema = validation.Schema{
	"name":       {validation.Required(), validation.Type(validation.TypeString), validation.MaxLength(200)},
	"date":       {validation.Required(), validation.Type(validation.TypeDate)},
	"start_time": {validation.Type(validation.TypeTime)},
	"end_time": {
		validation.Type(validation.TypeTime),
		validation.After("end_time", "start_time", validation.TypeTime, false),
	},
	"location": {validation.Type(validation.TypeString), validation.MaxLength(200)},
	"notes":    {validation.Type(validation.TypeString), validation.MaxLength(2000)},
}

// ItineraryService manages the flights, stays and activities of a trip. Every
// call first checks trip ownership, and an item is only visible through the
// trip it belongs to.
type ItineraryService struct {
	trips      *TripService
	flights    repository.IFlightRepository
	stays      repository.IStayRepository
	activities repository.IActivityRepository
}

func NewItineraryService(trips *TripService, flights repository.IFlightRepository,
	stays repository.IStayRepository, activities repository.IActivityRepository) *ItineraryService {
	return &ItineraryService{
		trips:      trips,
		flights:    flights,
		stays:      stays,
		activities: activities,
	}
}

// --- Flights ---

func (s *ItineraryService) CreateFlight(ctx context.Context, userID, tripID string, input map[string]any) (*model.Flight, error) {
	if _, err := s.trips.Authorize(ctx, userID, tripID); err != nil {
		return nil, err
	}
	if errs := validation.Validate(flightSchema, input); errs != nil {
		return nil, errs
	}

	flight := &model.Flight{TripID: tripID}
	applyFlight(flight, input)
	if err := s.flights.Create(ctx, flight); err != nil {
		return nil, err
	}
	logItem("flight", flight.ID, tripID).Info("Flight added to trip")
	return flight, nil
}

func (s *ItineraryService) ListFlights(ctx context.Context, userID, tripID string) ([]*model.Flight, error) {
	if _, err := s.trips.Authorize(ctx, userID, tripID); err != nil {
		return nil, err
	}
	return s.flights.ListByTrip(ctx, tripID)
}

func (s *ItineraryService) GetFlight(ctx context.Context, userID, tripID, flightID string) (*model.Flight, error) {
	if _, err := s.trips.Authorize(ctx, userID, tripID); err != nil {
		return nil, err
	}
	return s.loadFlight(ctx, tripID, flightID)
}

func (s *ItineraryService) UpdateFlight(ctx context.Context, userID, tripID, flightID string, patch map[string]any) (*model.Flight, error) {
	flight, err := s.GetFlight(ctx, userID, tripID, flightID)
	if err != nil {
		return nil, err
	}
	if errs := validation.ValidatePartial(flightSchema, patch, flight.ValidationView()); errs != nil {
		return nil, errs
	}

	applyFlight(flight, patch)
	if err := s.flights.Update(ctx, flight); err != nil {
		return nil, notFoundAs(err, ErrFlightNotFound)
	}
	return flight, nil
}

func (s *ItineraryService) DeleteFlight(ctx context.Context, userID, tripID, flightID string) error {
	if _, err := s.GetFlight(ctx, userID, tripID, flightID); err != nil {
		return err
	}
	return notFoundAs(s.flights.Delete(ctx, flightID), ErrFlightNotFound)
}

func (s *ItineraryService) loadFlight(ctx context.Context, tripID, flightID string) (*model.Flight, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, notFoundAs(err, ErrFlightNotFound)
	}
	if flight.TripID != tripID {
		return nil, ErrFlightNotFound
	}
	return flight, nil
}

// --- Stays ---

func (s *ItineraryService) CreateStay(ctx context.Context, userID, tripID string, input map[string]any) (*model.Stay, error) {
	if _, err := s.trips.Authorize(ctx, userID, tripID); err != nil {
		return nil, err
	}
	if errs := validation.Validate(staySchema, input); errs != nil {
		return nil, errs
	}

	stay := &model.Stay{TripID: tripID}
	applyStay(stay, input)
	if err := s.stays.Create(ctx, stay); err != nil {
		return nil, err
	}
	logItem("stay", stay.ID, tripID).Info("Stay added to trip")
	return stay, nil
}

func (s *ItineraryService) ListStays(ctx context.Context, userID, tripID string) ([]*model.Stay, error) {
	if _, err := s.trips.Authorize(ctx, userID, tripID); err != nil {
		return nil, err
	}
	return s.stays.ListByTrip(ctx, tripID)
}

func (s *ItineraryService) GetStay(ctx context.Context, userID, tripID, stayID string) (*model.Stay, error) {
	if _, err := s.trips.Authorize(ctx, userID, tripID); err != nil {
		return nil, err
	}
	stay, err := s.stays.GetByID(ctx, stayID)
	if err != nil {
		return nil, notFoundAs(err, ErrStayNotFound)
	}
	if stay.TripID != tripID {
		return nil, ErrStayNotFound
	}
	return stay, nil
}

func (s *ItineraryService) UpdateStay(ctx context.Context, userID, tripID, stayID string, patch map[string]any) (*model.Stay, error) {
	stay, err := s.GetStay(ctx, userID, tripID, stayID)
	if err != nil {
		return nil, err
	}
	if errs := validation.ValidatePartial(staySchema, patch, stay.ValidationView()); errs != nil {
		return nil, errs
	}

	applyStay(stay, patch)
	if err := s.stays.Update(ctx, stay); err != nil {
		return nil, notFoundAs(err, ErrStayNotFound)
	}
	return stay, nil
}

func (s *ItineraryService) DeleteStay(ctx context.Context, userID, tripID, stayID string) error {
	if _, err := s.GetStay(ctx, userID, tripID, stayID); err != nil {
		return err
	}
	return notFoundAs(s.stays.Delete(ctx, stayID), ErrStayNotFound)
}

// --- Activities ---

func (s *ItineraryService) CreateActivity(ctx context.Context, userID, tripID string, input map[string]any) (*model.Activity, error) {
	if _, err := s.trips.Authorize(ctx, userID, tripID); err != nil {
		return nil, err
	}
	if errs := validation.Validate(activitySchema, input); errs != nil {
		return nil, errs
	}

	activity := &model.Activity{TripID: tripID}
	applyActivity(activity, input)
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, err
	}
	logItem("activity", activity.ID, tripID).Info("Activity added to trip")
	return activity, nil
}

func (s *ItineraryService) ListActivities(ctx context.Context, userID, tripID string) ([]*model.Activity, error) {
	if _, err := s.trips.Authorize(ctx, userID, tripID); err != nil {
		return nil, err
	}
	return s.activities.ListByTrip(ctx, tripID)
}

func (s *ItineraryService) GetActivity(ctx context.Context, userID, tripID, activityID string) (*model.Activity, error) {
	if _, err := s.trips.Authorize(ctx, userID, tripID); err != nil {
		return nil, err
	}
	activity, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		return nil, notFoundAs(err, ErrActivityNotFound)
	}
	if activity.TripID != tripID {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// UpdateActivity validates end_time against the stored start_time when the
// patch only moves one end of the window.
func (s *ItineraryService) UpdateActivity(ctx context.Context, userID, tripID, activityID string, patch map[string]any) (*model.Activity, error) {
	activity, err := s.GetActivity(ctx, userID, tripID, activityID)
	if err != nil {
		return nil, err
	}
	if errs := validation.ValidatePartial(activitySchema, patch, activity.ValidationView()); errs != nil {
		return nil, errs
	}

	applyActivity(activity, patch)
	if err := s.activities.Update(ctx, activity); err != nil {
		return nil, notFoundAs(err, ErrActivityNotFound)
	}
	return activity, nil
}

func (s *ItineraryService) DeleteActivity(ctx context.Context, userID, tripID, activityID string) error {
	if _, err := s.GetActivity(ctx, userID, tripID, activityID); err != nil {
		return err
	}
	return notFoundAs(s.activities.Delete(ctx, activityID), ErrActivityNotFound)
}

func applyFlight(f *model.Flight, input map[string]any) {
	patchString(input, "airline", &f.Airline)
	patchString(input, "flight_number", &f.FlightNumber)
	patchString(input, "departure_airport", &f.DepartureAirport)
	patchString(input, "arrival_airport", &f.ArrivalAirport)
	patchDateTime(input, "departure_time", &f.DepartureTime)
	patchDateTime(input, "arrival_time", &f.ArrivalTime)
	patchString(input, "confirmation_number", &f.ConfirmationNumber)
	patchString(input, "notes", &f.Notes)
}

func applyStay(st *model.Stay, input map[string]any) {
	patchString(input, "name", &st.Name)
	patchString(input, "address", &st.Address)
	patchDate(input, "check_in", &st.CheckIn)
	patchDate(input, "check_out", &st.CheckOut)
	patchString(input, "confirmation_number", &st.ConfirmationNumber)
	patchString(input, "notes", &st.Notes)
}

func applyActivity(a *model.Activity, input map[string]any) {
	patchString(input, "name", &a.Name)
	patchDate(input, "date", &a.Date)
	patchNullableTime(input, "start_time", &a.StartTime)
	patchNullableTime(input, "end_time", &a.EndTime)
	patchString(input, "location", &a.Location)
	patchString(input, "notes", &a.Notes)
}

// notFoundAs translates the repository's ErrNotFound into target.
func notFoundAs(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}

func logItem(kind, id, tripID string) *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{kind + "_id": id, "trip_id": tripID})
}
