package repository

import (
	"database/sql"
	"time"

	"cloud.google.com/go/civil"
)

func nullableDate(d *civil.Date) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullableTime(t *civil.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.String()
}

func dateFromNull(nt sql.NullTime) *civil.Date {
	if !nt.Valid {
		return nil
	}
	d := civil.DateOf(nt.Time)
	return &d
}

func timeFromNull(nt sql.NullTime) *civil.Time {
	if !nt.Valid {
		return nil
	}
	t := civil.TimeOf(nt.Time)
	return &t
}

func dateOf(t time.Time) civil.Date {
	return civil.DateOf(t)
}
