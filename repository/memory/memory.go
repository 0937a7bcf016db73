// Package memory provides in-process implementations of the repository
// interfaces. They hold the same invariants as the Postgres tables (unique
// lower-cased email, conditional token rotation) and back the service, handler
// and client tests.
package memory

import (
	"context"
	"go-trip-api/model"
	"go-trip-api/repository"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is a shared in-memory database.
type Store struct {
	mu         sync.Mutex
	users      map[string]*model.User
	tokens     map[string]*model.RefreshToken // keyed by token hash
	trips      map[string]*model.Trip
	flights    map[string]*model.Flight
	stays      map[string]*model.Stay
	activities map[string]*model.Activity
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:      map[string]*model.User{},
		tokens:     map[string]*model.RefreshToken{},
		trips:      map[string]*model.Trip{},
		flights:    map[string]*model.Flight{},
		stays:      map[string]*model.Stay{},
		activities: map[string]*model.Activity{},
		now:        time.Now,
	}
}

func (s *Store) Users() *UserRepository { return &UserRepository{s} }
func (s *Store) Tokens() *TokenRepository { return &TokenRepository{s} }
func (s *Store) Trips() *TripRepository { return &TripRepository{s} }
func (s *Store) Flights() *FlightRepository { return &FlightRepository{s} }
func (s *Store) Stays() *StayRepository { return &StayRepository{s} }
func (s *Store) Activities() *ActivityRepository { return &ActivityRepository{s} }

// TokensFor returns copies of every refresh token row of a user.
func (s *Store) TokensFor(userID string) []model.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RefreshToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out
}

type UserRepository struct{ s *Store }

var _ repository.IUserRepository = (*UserRepository)(nil)

func (r *UserRepository) CreateUser(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = r.s.now()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) GetUserByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// DeleteUser removes a user and, like the foreign key cascade, its tokens.
func (r *UserRepository) DeleteUser(id string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.users, id)
	for hash, t := range r.s.tokens {
		if t.UserID == id {
			delete(r.s.tokens, hash)
		}
	}
}

type TokenRepository struct{ s *Store }

var _ repository.ITokenRepository = (*TokenRepository)(nil)

func (r *TokenRepository) Create(_ context.Context, token *model.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	token.CreatedAt = r.s.now()
	cp := *token
	r.s.tokens[token.TokenHash] = &cp
	return nil
}

func (r *TokenRepository) GetActive(_ context.Context, tokenHash string, now time.Time) (*model.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[tokenHash]
	if !ok || !t.IsValid(now) {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TokenRepository) Rotate(_ context.Context, oldHash string, replacement *model.RefreshToken, now time.Time) (*model.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.s.tokens[oldHash]
	if !ok || !old.IsValid(now) {
		return nil, repository.ErrNotFound
	}
	revokedAt := now
	old.RevokedAt = &revokedAt

	if replacement.ID == "" {
		replacement.ID = uuid.NewString()
	}
	replacement.UserID = old.UserID
	replacement.CreatedAt = now
	cp := *replacement
	r.s.tokens[replacement.TokenHash] = &cp

	result := *old
	return &result, nil
}

func (r *TokenRepository) Revoke(_ context.Context, tokenHash, userID string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t, ok := r.s.tokens[tokenHash]; ok && t.UserID == userID && t.RevokedAt == nil {
		revokedAt := now
		t.RevokedAt = &revokedAt
	}
	return nil
}

func (r *TokenRepository) RevokeAllForUser(_ context.Context, userID string, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, t := range r.s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			revokedAt := now
			t.RevokedAt = &revokedAt
			n++
		}
	}
	return n, nil
}

type TripRepository struct{ s *Store }

var _ repository.ITripRepository = (*TripRepository)(nil)

func (r *TripRepository) Create(_ context.Context, trip *model.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	trip.CreatedAt = r.s.now()
	trip.UpdatedAt = trip.CreatedAt
	r.s.trips[trip.ID] = copyTrip(trip)
	return nil
}

func (r *TripRepository) GetByID(_ context.Context, id string) (*model.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyTrip(t), nil
}

func (r *TripRepository) ListByUser(_ context.Context, userID string) ([]*model.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	trips := []*model.Trip{}
	for _, t := range r.s.trips {
		if t.UserID == userID {
			trips = append(trips, copyTrip(t))
		}
	}
	sort.SliceStable(trips, func(i, j int) bool {
		return trips[i].CreatedAt.After(trips[j].CreatedAt)
	})
	return trips, nil
}

func (r *TripRepository) Update(_ context.Context, trip *model.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}
	trip.UpdatedAt = r.s.now()
	r.s.trips[trip.ID] = copyTrip(trip)
	return nil
}

func (r *TripRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trips[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.trips, id)
	for k, f := range r.s.flights {
		if f.TripID == id {
			delete(r.s.flights, k)
		}
	}
	for k, st := range r.s.stays {
		if st.TripID == id {
			delete(r.s.stays, k)
		}
	}
	for k, a := range r.s.activities {
		if a.TripID == id {
			delete(r.s.activities, k)
		}
	}
	return nil
}

func copyTrip(t *model.Trip) *model.Trip {
	cp := *t
	cp.Destinations = append([]string{}, t.Destinations...)
	return &cp
}

type FlightRepository struct{ s *Store }

var _ repository.IFlightRepository = (*FlightRepository)(nil)

func (r *FlightRepository) Create(_ context.Context, f *model.Flight) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = r.s.now()
	f.UpdatedAt = f.CreatedAt
	cp := *f
	r.s.flights[f.ID] = &cp
	return nil
}

func (r *FlightRepository) GetByID(_ context.Context, id string) (*model.Flight, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.flights[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *FlightRepository) ListByTrip(_ context.Context, tripID string) ([]*model.Flight, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*model.Flight{}
	for _, f := range r.s.flights {
		if f.TripID == tripID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.Before(out[j].DepartureTime) })
	return out, nil
}

func (r *FlightRepository) Update(_ context.Context, f *model.Flight) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.flights[f.ID]; !ok {
		return repository.ErrNotFound
	}
	f.UpdatedAt = r.s.now()
	cp := *f
	r.s.flights[f.ID] = &cp
	return nil
}

func (r *FlightRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.flights[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.flights, id)
	return nil
}

type StayRepository struct{ s *Store }

var _ repository.IStayRepository = (*StayRepository)(nil)

func (r *StayRepository) Create(_ context.Context, st *model.Stay) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	st.CreatedAt = r.s.now()
	st.UpdatedAt = st.CreatedAt
	cp := *st
	r.s.stays[st.ID] = &cp
	return nil
}

func (r *StayRepository) GetByID(_ context.Context, id string) (*model.Stay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.stays[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *StayRepository) ListByTrip(_ context.Context, tripID string) ([]*model.Stay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*model.Stay{}
	for _, st := range r.s.stays {
		if st.TripID == tripID {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (r *StayRepository) Update(_ context.Context, st *model.Stay) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.stays[st.ID]; !ok {
		return repository.ErrNotFound
	}
	st.UpdatedAt = r.s.now()
	cp := *st
	r.s.stays[st.ID] = &cp
	return nil
}

func (r *StayRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.stays[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.stays, id)
	return nil
}

type ActivityRepository struct{ s *Store }

var _ repository.IActivityRepository = (*ActivityRepository)(nil)

func (r *ActivityRepository) Create(_ context.Context, a *model.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = r.s.now()
	a.UpdatedAt = a.CreatedAt
	r.s.activities[a.ID] = copyActivity(a)
	return nil
}

func (r *ActivityRepository) GetByID(_ context.Context, id string) (*model.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.activities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyActivity(a), nil
}

func (r *ActivityRepository) ListByTrip(_ context.Context, tripID string) ([]*model.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*model.Activity{}
	for _, a := range r.s.activities {
		if a.TripID == tripID {
			out = append(out, copyActivity(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *ActivityRepository) Update(_ context.Context, a *model.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.activities[a.ID]; !ok {
		return repository.ErrNotFound
	}
	a.UpdatedAt = r.s.now()
	r.s.activities[a.ID] = copyActivity(a)
	return nil
}

func (r *ActivityRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.activities[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.activities, id)
	return nil
}

func copyActivity(a *model.Activity) *model.Activity {
	cp := *a
	if a.StartTime != nil {
		st := *a.StartTime
		cp.StartTime = &st
	}
	if a.EndTime != nil {
		et := *a.EndTime
		cp.EndTime = &et
	}
	return &cp
}
