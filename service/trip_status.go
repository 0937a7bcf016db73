package service

import (
	"go-trip-api/model"
	"strings"

	"cloud.google.com/go/civil"
)

// ComputeTripStatus derives the displayed status from the trip dates. Without
// both dates the stored status is returned unchanged.
func ComputeTripStatus(trip *model.Trip, today civil.Date) model.TripStatus {
	if trip.StartDate == nil || trip.EndDate == nil {
		return trip.Status
	}
	switch {
	case trip.EndDate.Before(today):
		return model.TripStatusCompleted
	case trip.StartDate.After(today):
		return model.TripStatusPlanning
	default:
		return model.TripStatusOngoing
	}
}

// DedupeDestinations removes case-insensitive duplicates from a destination
// list, keeping the first spelling and the original order. Anything that is
// not a list is returned as is.
func DedupeDestinations(value any) any {
	switch list := value.(type) {
	case []string:
		return NormalizeDestinations(list)
	case []any:
		seen := make(map[string]struct{}, len(list))
		out := make([]any, 0, len(list))
		for _, v := range list {
			s, ok := v.(string)
			if !ok {
				out = append(out, v)
				continue
			}
			key := strings.ToLower(s)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
		return out
	default:
		return value
	}
}

func NormalizeDestinations(destinations []string) []string {
	seen := make(map[string]struct{}, len(destinations))
	out := make([]string, 0, len(destinations))
	for _, d := range destinations {
		key := strings.ToLower(d)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
