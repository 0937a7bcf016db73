package model

import (
	"time"

	"cloud.google.com/go/civil"
)

// Flight is a leg of travel attached to a trip.
type Flight struct {
	ID                 string    `json:"id"`
	TripID             string    `json:"trip_id"`
	Airline            string    `json:"airline"`
	FlightNumber       string    `json:"flight_number"`
	DepartureAirport   string    `json:"departure_airport"`
	ArrivalAirport     string    `json:"arrival_airport"`
	DepartureTime      time.Time `json:"departure_time"`
	ArrivalTime        time.Time `json:"arrival_time"`
	ConfirmationNumber string    `json:"confirmation_number"`
	Notes              string    `json:"notes"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (f *Flight) ValidationView() map[string]any {
	return map[string]any{
		"airline":             f.Airline,
		"flight_number":       f.FlightNumber,
		"departure_airport":   f.DepartureAirport,
		"arrival_airport":     f.ArrivalAirport,
		"departure_time":      f.DepartureTime.Format(time.RFC3339),
		"arrival_time":        f.ArrivalTime.Format(time.RFC3339),
		"confirmation_number": f.ConfirmationNumber,
		"notes":               f.Notes,
	}
}

// Stay is an accommodation booking between two calendar dates.
type Stay struct {
	ID                 string     `json:"id"`
	TripID             string     `json:"trip_id"`
	Name               string     `json:"name"`
	Address            string     `json:"address"`
	CheckIn            civil.Date `json:"check_in"`
	CheckOut           civil.Date `json:"check_out"`
	ConfirmationNumber string     `json:"confirmation_number"`
	Notes              string     `json:"notes"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (s *Stay) ValidationView() map[string]any {
	return map[string]any{
		"name":                s.Name,
		"address":             s.Address,
		"check_in":            s.CheckIn.String(),
		"check_out":           s.CheckOut.String(),
		"confirmation_number": s.ConfirmationNumber,
		"notes":               s.Notes,
	}
}

// Activity is something planned for a single day, optionally with a time window.
type Activity struct {
	ID        string      `json:"id"`
	TripID    string      `json:"trip_id"`
	Name      string      `json:"name"`
	Date      civil.Date  `json:"date"`
	StartTime *civil.Time `json:"start_time"`
	EndTime   *civil.Time `json:"end_time"`
	Location  string      `json:"location"`
	Notes     string      `json:"notes"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (a *Activity) ValidationView() map[string]any {
	view := map[string]any{
		"name":       a.Name,
		"date":       a.Date.String(),
		"start_time": nil,
		"end_time":   nil,
		"location":   a.Location,
		"notes":      a.Notes,
	}
	if a.StartTime != nil {
		view["start_time"] = a.StartTime.String()
	}
	if a.EndTime != nil {
		view["end_time"] = a.EndTime.String()
	}
	return view
}
