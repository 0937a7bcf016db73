package model

import (
	"time"

	"cloud.google.com/go/civil"
)

type TripStatus string

const (
	TripStatusPlanning  TripStatus = "PLANNING"
	TripStatusOngoing   TripStatus = "ONGOING"
	TripStatusCompleted TripStatus = "COMPLETED"
)

// TripStatuses lists the valid statuses in display order.
var TripStatuses = []string{
	string(TripStatusPlanning),
	string(TripStatusOngoing),
	string(TripStatusCompleted),
}

// Trip is the top-level aggregate; flights, stays and activities belong to a trip.
// Status holds the stored value; responses carry the derived status instead.
type Trip struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Destinations []string    `json:"destinations"`
	Status       TripStatus  `json:"status"`
	StartDate    *civil.Date `json:"start_date"`
	EndDate      *civil.Date `json:"end_date"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ValidationView exposes the stored fields in request shape so partial
// updates can be validated against the merged record.
func (t *Trip) ValidationView() map[string]any {
	destinations := make([]any, len(t.Destinations))
	for i, d := range t.Destinations {
		destinations[i] = d
	}
	return map[string]any{
		"name":         t.Name,
		"description":  t.Description,
		"destinations": destinations,
		"status":       string(t.Status),
		"start_date":   dateValue(t.StartDate),
		"end_date":     dateValue(t.EndDate),
	}
}

func dateValue(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
