package service

import (
	"context"
	"errors"
	"go-trip-api/logger"
	"go-trip-api/model"
	"go-trip-api/repository"
	"go-trip-api/validation"
	"time"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"
)

var (
	ErrTripNotFound = errors.New("trip not found")
	ErrForbidden    = errors.New("resource belongs to another user")
)

const tripListCacheTTL = time.Minute

var tripSchema = validation.Schema{
	"name":         {validation.Required(), validation.Type(validation.TypeString), validation.MaxLength(200)},
	"description":  {validation.Type(validation.TypeString), validation.MaxLength(2000)},
	"destinations": {validation.Type(validation.TypeArray), validation.MaxItems(50), validation.EachString("destinations", 200)},
	"status":       {validation.Enum(model.TripStatuses...)},
	"start_date":   {validation.Type(validation.TypeDate)},
	"end_date": {
		validation.Type(validation.TypeDate),
		validation.After("end_date", "start_date", validation.TypeDate, true),
	},
}

// TodayIn returns a clock reporting the current calendar date in loc.
func TodayIn(loc *time.Location) func() civil.Date {
	return func() civil.Date {
		return civil.DateOf(time.Now().In(loc))
	}
}

type TripService struct {
	repo  repository.ITripRepository
	cache ICacheClient
	today func() civil.Date
}

// NewTripService builds the service. cache may be nil.
func NewTripService(repo repository.ITripRepository, cache ICacheClient, today func() civil.Date) *TripService {
	return &TripService{repo: repo, cache: cache, today: today}
}

// Create validates the body and stores a new trip for userID.
func (s *TripService) Create(ctx context.Context, userID string, input map[string]any) (*model.Trip, error) {
	if errs := validation.Validate(tripSchema, input); errs != nil {
		return nil, errs
	}

	trip := &model.Trip{UserID: userID, Destinations: []string{}}
	applyTrip(trip, input)
	if trip.Status == "" {
		trip.Status = model.TripStatusPlanning
	}

	if err := s.repo.Create(ctx, trip); err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, tripListCacheKey(userID))
	logger.Log.WithFields(logrus.Fields{"trip_id": trip.ID, "user_id": userID}).Info("Trip created")
	return s.withDerivedStatus(trip), nil
}

func (s *TripService) Get(ctx context.Context, userID, tripID string) (*model.Trip, error) {
	trip, err := s.Authorize(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	return s.withDerivedStatus(trip), nil
}

// List returns one page of the user's trips and the total number of matches.
func (s *TripService) List(ctx context.Context, userID string, q TripQuery) ([]*model.Trip, int, error) {
	key := tripListCacheKey(userID)
	var trips []*model.Trip
	if !getCached(ctx, s.cache, key, &trips) {
		var err error
		trips, err = s.repo.ListByUser(ctx, userID)
		if err != nil {
			return nil, 0, err
		}
		setCached(ctx, s.cache, key, trips, tripListCacheTTL)
	}

	page, total := ApplyTripQuery(trips, q, s.today())
	return page, total, nil
}

// Update applies a partial update. Cross-field rules see the stored trip
// merged with the patch, so moving start_date past the stored end_date fails.
func (s *TripService) Update(ctx context.Context, userID, tripID string, patch map[string]any) (*model.Trip, error) {
	trip, err := s.Authorize(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	if errs := validation.ValidatePartial(tripSchema, patch, trip.ValidationView()); errs != nil {
		return nil, errs
	}

	applyTrip(trip, patch)
	if err := s.repo.Update(ctx, trip); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	invalidate(ctx, s.cache, tripListCacheKey(userID))
	return s.withDerivedStatus(trip), nil
}

func (s *TripService) Delete(ctx context.Context, userID, tripID string) error {
	if _, err := s.Authorize(ctx, userID, tripID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tripID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTripNotFound
		}
		return err
	}
	invalidate(ctx, s.cache, tripListCacheKey(userID))
	logger.Log.WithFields(logrus.Fields{"trip_id": tripID, "user_id": userID}).Info("Trip deleted")
	return nil
}

// Authorize loads a trip and checks that userID owns it. Flights, stays and
// activities are only reachable through this check.
func (s *TripService) Authorize(ctx context.Context, userID, tripID string) (*model.Trip, error) {
	trip, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	if trip.UserID != userID {
		logger.Log.WithFields(logrus.Fields{"trip_id": tripID, "user_id": userID}).Warn("Rejected access to another user's trip")
		return nil, ErrForbidden
	}
	return trip, nil
}

func (s *TripService) withDerivedStatus(trip *model.Trip) *model.Trip {
	out := *trip
	out.Status = ComputeTripStatus(trip, s.today())
	return &out
}

func applyTrip(trip *model.Trip, input map[string]any) {
	patchString(input, "name", &trip.Name)
	patchString(input, "description", &trip.Description)
	patchDestinations(input, "destinations", &trip.Destinations)
	if status := stringOf(input["status"]); status != "" {
		trip.Status = model.TripStatus(status)
	}
	patchNullableDate(input, "start_date", &trip.StartDate)
	patchNullableDate(input, "end_date", &trip.EndDate)
}

func tripListCacheKey(userID string) string {
	return "trips:" + userID
}
