package service

import (
	"context"
	"go-trip-api/repository/memory"
	"go-trip-api/validation"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itineraryFixture struct {
	svc    *ItineraryService
	trips  *TripService
	tripID string
}

func newItineraryFixture(t *testing.T) itineraryFixture {
	t.Helper()
	store := memory.NewStore()
	trips := NewTripService(store.Trips(), nil, fixedToday("2026-01-05"))
	trip, err := trips.Create(context.Background(), "owner", map[string]any{"name": "Japan"})
	require.NoError(t, err)
	return itineraryFixture{
		svc:    NewItineraryService(trips, store.Flights(), store.Stays(), store.Activities()),
		trips:  trips,
		tripID: trip.ID,
	}
}

func TestItineraryService_Flights(t *testing.T) {
	f := newItineraryFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateFlight(ctx, "owner", f.tripID, map[string]any{
		"airline":           "JAL",
		"flight_number":     "JL44",
		"departure_airport": "LHR",
		"arrival_airport":   "HND",
		"departure_time":    "2026-01-01T11:00:00Z",
		"arrival_time":      "2026-01-01T09:00:00Z",
	})
	errs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, validation.Errors{"arrival_time": "arrival_time must be after departure_time"}, errs)

	flight, err := f.svc.CreateFlight(ctx, "owner", f.tripID, map[string]any{
		"airline":           "JAL",
		"flight_number":     "JL44",
		"departure_airport": "LHR",
		"arrival_airport":   "HND",
		"departure_time":    "2026-01-01T11:00:00+01:00",
		"arrival_time":      "2026-01-02T07:00:00+09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), flight.DepartureTime)

	_, err = f.svc.UpdateFlight(ctx, "owner", f.tripID, flight.ID, map[string]any{"departure_time": "2026-01-03T00:00:00Z"})
	errs, ok = validation.AsErrors(err)
	require.True(t, ok)
	assert.Contains(t, errs, "arrival_time")

	updated, err := f.svc.UpdateFlight(ctx, "owner", f.tripID, flight.ID, map[string]any{"notes": "aisle seat"})
	require.NoError(t, err)
	assert.Equal(t, "aisle seat", updated.Notes)
	assert.Equal(t, "JL44", updated.FlightNumber)

	list, err := f.svc.ListFlights(ctx, "owner", f.tripID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.ListFlights(ctx, "intruder", f.tripID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.DeleteFlight(ctx, "owner", f.tripID, flight.ID))
	_, err = f.svc.GetFlight(ctx, "owner", f.tripID, flight.ID)
	assert.ErrorIs(t, err, ErrFlightNotFound)
}

func TestItineraryService_Stays(t *testing.T) {
	f := newItineraryFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateStay(ctx, "owner", f.tripID, map[string]any{
		"name":      "Ryokan",
		"check_in":  "2026-01-03",
		"check_out": "2026-01-03",
	})
	errs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, "check_out must be after check_in", errs["check_out"])

	stay, err := f.svc.CreateStay(ctx, "owner", f.tripID, map[string]any{
		"name":      "Ryokan",
		"check_in":  "2026-01-03",
		"check_out": "2026-01-05",
	})
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2026, Month: time.January, Day: 5}, stay.CheckOut)

	_, err = f.svc.UpdateStay(ctx, "owner", f.tripID, stay.ID, map[string]any{"check_in": "2026-01-06"})
	_, ok = validation.AsErrors(err)
	assert.True(t, ok)

	_, err = f.svc.GetStay(ctx, "intruder", f.tripID, stay.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestItineraryService_Activities(t *testing.T) {
	f := newItineraryFixture(t)
	ctx := context.Background()

	activity, err := f.svc.CreateActivity(ctx, "owner", f.tripID, map[string]any{
		"name":       "Tea ceremony",
		"date":       "2026-01-04",
		"start_time": "09:00",
		"end_time":   "10:30",
	})
	require.NoError(t, err)
	require.NotNil(t, activity.StartTime)
	assert.Equal(t, civil.Time{Hour: 9}, *activity.StartTime)

	t.Run("moving start past the stored end fails on end_time", func(t *testing.T) {
		_, err := f.svc.UpdateActivity(ctx, "owner", f.tripID, activity.ID, map[string]any{"start_time": "11:00"})
		errs, ok := validation.AsErrors(err)
		require.True(t, ok)
		assert.Equal(t, validation.Errors{"end_time": "end_time must be after start_time"}, errs)

		stored, err := f.svc.GetActivity(ctx, "owner", f.tripID, activity.ID)
		require.NoError(t, err)
		assert.Equal(t, civil.Time{Hour: 9}, *stored.StartTime, "rejected patch leaves the record untouched")
	})

	t.Run("clearing both times", func(t *testing.T) {
		updated, err := f.svc.UpdateActivity(ctx, "owner", f.tripID, activity.ID, map[string]any{"start_time": nil, "end_time": nil})
		require.NoError(t, err)
		assert.Nil(t, updated.StartTime)
		assert.Nil(t, updated.EndTime)
	})
}

func TestItineraryService_ItemsAreScopedToTheirTrip(t *testing.T) {
	f := newItineraryFixture(t)
	ctx := context.Background()

	other, err := f.trips.Create(ctx, "owner", map[string]any{"name": "Second trip"})
	require.NoError(t, err)

	activity, err := f.svc.CreateActivity(ctx, "owner", f.tripID, map[string]any{"name": "Museum", "date": "2026-01-04"})
	require.NoError(t, err)

	_, err = f.svc.GetActivity(ctx, "owner", other.ID, activity.ID)
	assert.ErrorIs(t, err, ErrActivityNotFound)

	assert.ErrorIs(t, f.svc.DeleteActivity(ctx, "owner", other.ID, activity.ID), ErrActivityNotFound)

	_, err = f.svc.ListStays(ctx, "owner", "missing-trip")
	assert.ErrorIs(t, err, ErrTripNotFound)
}
