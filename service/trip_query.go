package service

import (
	"cmp"
	"go-trip-api/model"
	"go-trip-api/validation"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

const (
	SortByName      = "name"
	SortByCreatedAt = "created_at"
	SortByStartDate = "start_date"

	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// TripQuery is a validated listing request.
type TripQuery struct {
	Search    string
	Status    model.TripStatus
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

var tripQuerySchema = validation.Schema{
	"search":     {validation.Type(validation.TypeString), validation.MaxLength(200)},
	"status":     {validation.Enum(model.TripStatuses...)},
	"sort_by":    {validation.Enum(SortByName, SortByCreatedAt, SortByStartDate)},
	"sort_order": {validation.Enum(SortAsc, SortDesc)},
}

// ParseTripQuery validates listing parameters. An unknown status, sort_by or
// sort_order is reported against that field instead of falling back to a default.
func ParseTripQuery(values url.Values) (TripQuery, error) {
	input := map[string]any{}
	for _, key := range []string{"search", "status", "sort_by", "sort_order"} {
		if values.Has(key) {
			input[key] = values.Get(key)
		}
	}
	errs := validation.Validate(tripQuerySchema, input)

	q := TripQuery{
		Search:    strings.TrimSpace(values.Get("search")),
		Status:    model.TripStatus(strings.TrimSpace(values.Get("status"))),
		SortBy:    strings.TrimSpace(values.Get("sort_by")),
		SortOrder: strings.TrimSpace(values.Get("sort_order")),
		Page:      DefaultPage,
		Limit:     DefaultLimit,
	}
	if q.SortBy == "" {
		q.SortBy = SortByCreatedAt
	}
	if q.SortOrder == "" {
		q.SortOrder = SortDesc
	}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			errs = addFieldError(errs, "page", "page must be a positive integer")
		} else {
			q.Page = page
		}
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > MaxLimit {
			errs = addFieldError(errs, "limit", "limit must be an integer between 1 and 100")
		} else {
			q.Limit = limit
		}
	}
	if _, bad := errs["page"]; !bad && q.Page-1 > math.MaxInt/q.Limit {
		errs = addFieldError(errs, "page", "page is out of range")
	}

	if len(errs) > 0 {
		return TripQuery{}, errs
	}
	return q, nil
}

func addFieldError(errs validation.Errors, field, msg string) validation.Errors {
	if errs == nil {
		errs = validation.Errors{}
	}
	errs[field] = msg
	return errs
}

// ApplyTripQuery runs search, status derivation, status filtering, sorting and
// pagination, in that order. It returns copies carrying the derived status and
// the number of trips matched before pagination.
func ApplyTripQuery(trips []*model.Trip, q TripQuery, today civil.Date) ([]*model.Trip, int) {
	needle := strings.ToLower(q.Search)
	matched := make([]*model.Trip, 0, len(trips))
	for _, t := range trips {
		if needle != "" && !tripMatches(t, needle) {
			continue
		}
		derived := *t
		derived.Status = ComputeTripStatus(t, today)
		if q.Status != "" && derived.Status != q.Status {
			continue
		}
		matched = append(matched, &derived)
	}

	sortTrips(matched, q.SortBy, q.SortOrder == SortDesc)

	total := len(matched)
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	page := q.Page
	if page <= 0 {
		page = DefaultPage
	}
	if page-1 >= (total+limit-1)/limit {
		return []*model.Trip{}, total
	}
	start := (page - 1) * limit
	end := min(start+limit, total)
	return matched[start:end], total
}

func tripMatches(t *model.Trip, needle string) bool {
	if strings.Contains(strings.ToLower(t.Name), needle) {
		return true
	}
	for _, d := range t.Destinations {
		if strings.Contains(strings.ToLower(d), needle) {
			return true
		}
	}
	return false
}

// sortTrips is stable so equal keys keep repository order. Trips without a
// start date sort last in both directions.
func sortTrips(trips []*model.Trip, sortBy string, desc bool) {
	direction := 1
	if desc {
		direction = -1
	}
	slices.SortStableFunc(trips, func(a, b *model.Trip) int {
		switch sortBy {
		case SortByName:
			return direction * cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByStartDate:
			switch {
			case a.StartDate == nil && b.StartDate == nil:
				return 0
			case a.StartDate == nil:
				return 1
			case b.StartDate == nil:
				return -1
			}
			return direction * compareDates(*a.StartDate, *b.StartDate)
		default:
			return direction * a.CreatedAt.Compare(b.CreatedAt)
		}
	})
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
