package service

import (
	"go-trip-api/model"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func date(s string) *civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestComputeTripStatus(t *testing.T) {
	trip := &model.Trip{
		Status:    model.TripStatusPlanning,
		StartDate: date("2026-01-01"),
		EndDate:   date("2026-01-10"),
	}

	tests := []struct {
		today string
		want  model.TripStatus
	}{
		{"2026-01-15", model.TripStatusCompleted},
		{"2026-01-05", model.TripStatusOngoing},
		{"2026-01-01", model.TripStatusOngoing},
		{"2026-01-10", model.TripStatusOngoing},
		{"2026-01-11", model.TripStatusCompleted},
		{"2025-12-01", model.TripStatusPlanning},
		{"2025-12-31", model.TripStatusPlanning},
	}
	for _, tt := range tests {
		t.Run(tt.today, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeTripStatus(trip, *date(tt.today)))
		})
	}
}

func TestComputeTripStatus_MissingDateKeepsStoredStatus(t *testing.T) {
	for _, stored := range []model.TripStatus{model.TripStatusPlanning, model.TripStatusOngoing, model.TripStatusCompleted} {
		noStart := &model.Trip{Status: stored, EndDate: date("2026-01-10")}
		noEnd := &model.Trip{Status: stored, StartDate: date("2026-01-01")}

		for _, today := range []string{"2025-01-01", "2026-01-05", "2027-01-01"} {
			assert.Equal(t, stored, ComputeTripStatus(noStart, *date(today)))
			assert.Equal(t, stored, ComputeTripStatus(noEnd, *date(today)))
		}
	}
}

func TestDedupeDestinations(t *testing.T) {
	t.Run("json list keeps first casing and order", func(t *testing.T) {
		got := DedupeDestinations([]any{"Tokyo", "TOKYO", "osaka", "Osaka"})
		assert.Equal(t, []any{"Tokyo", "osaka"}, got)
	})

	t.Run("string slice", func(t *testing.T) {
		got := DedupeDestinations([]string{"Tokyo", "tokyo", "Osaka"})
		assert.Equal(t, []string{"Tokyo", "Osaka"}, got)
	})

	t.Run("non-list input passes through", func(t *testing.T) {
		assert.Equal(t, "Tokyo", DedupeDestinations("Tokyo"))
		assert.Nil(t, DedupeDestinations(nil))
		assert.Equal(t, 42.0, DedupeDestinations(42.0))
	})

	t.Run("empty list", func(t *testing.T) {
		assert.Equal(t, []any{}, DedupeDestinations([]any{}))
	})
}
