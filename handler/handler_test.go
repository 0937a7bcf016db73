package handler

import (
	"context"
	"errors"
	"fmt"
	"go-trip-api/common"
	"go-trip-api/model"
	"go-trip-api/ratelimit"
	"go-trip-api/service"
	"go-trip-api/validation"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Authenticate(token string) (*model.AccessClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessClaims), args.Error(1)
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, policy ratelimit.Policy, key string) (ratelimit.Decision, error) {
	args := m.Called(policy.Name, key)
	return args.Get(0).(ratelimit.Decision), args.Error(1)
}

type recorder struct {
	rejections []string
	requests   []string
}

func (r *recorder) RecordRateLimitRejection(policy string) { r.rejections = append(r.rejections, policy) }

func (r *recorder) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	r.requests = append(r.requests, fmt.Sprintf("%s %s %d", method, route, status))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{validation.Errors{"name": "name is required"}, http.StatusBadRequest, common.CodeValidation},
		{service.ErrEmailTaken, http.StatusConflict, common.CodeEmailTaken},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, common.CodeInvalidCredentials},
		{service.ErrInvalidRefreshToken, http.StatusUnauthorized, common.CodeInvalidRefreshToken},
		{service.ErrUnauthorized, http.StatusUnauthorized, common.CodeUnauthorized},
		{service.ErrForbidden, http.StatusForbidden, common.CodeForbidden},
		{service.ErrTripNotFound, http.StatusNotFound, common.CodeNotFound},
		{fmt.Errorf("load: %w", service.ErrStayNotFound), http.StatusNotFound, common.CodeNotFound},
		{errors.New("connection reset"), http.StatusInternalServerError, common.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			appErr := mapServiceError(tt.err)
			assert.Equal(t, tt.status, appErr.Status)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}

	fields := mapServiceError(validation.Errors{"end_date": "bad"}).Fields
	assert.Equal(t, map[string]string{"end_date": "bad"}, fields)
}

func TestAuthMiddleware(t *testing.T) {
	auth := new(mockAuthenticator)
	claims := &model.AccessClaims{Email: "a@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
	auth.On("Authenticate", "good").Return(claims, nil)
	auth.On("Authenticate", "bad").Return(nil, service.ErrUnauthorized)

	var seen string
	h := AuthMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer good", http.StatusOK},
		{"case-insensitive scheme", "bearer good", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"no token", "Bearer ", http.StatusUnauthorized},
		{"rejected", "Bearer bad", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "user-1", seen)
			} else {
				assert.Contains(t, rr.Body.String(), common.CodeUnauthorized)
			}
		})
	}
}

func TestRateLimitByAddress(t *testing.T) {
	policy := ratelimit.Policy{Name: "login", Limit: 1, Window: time.Minute}

	t.Run("rejects with retry-after", func(t *testing.T) {
		limiter := new(mockLimiter)
		limiter.On("Allow", "login", "203.0.113.7").
			Return(ratelimit.Decision{Allowed: false, RetryAfter: 90 * time.Second}, nil)
		rec := &recorder{}

		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		rr := httptest.NewRecorder()
		RateLimitByAddress(limiter, policy, rec)(okHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "90", rr.Header().Get("Retry-After"))
		assert.Equal(t, []string{"login"}, rec.rejections)
	})

	t.Run("backend failure lets the request through", func(t *testing.T) {
		limiter := new(mockLimiter)
		limiter.On("Allow", "login", mock.Anything).Return(ratelimit.Decision{}, errors.New("redis down"))

		rr := httptest.NewRecorder()
		RateLimitByAddress(limiter, policy, nil)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestAPIRateLimit(t *testing.T) {
	limiter := ratelimit.NewAPILimiter(1, time.Minute)
	defer limiter.Stop()
	rec := &recorder{}
	h := APIRateLimit(limiter, rec)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserIDKey, "user-1"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, []string{"api"}, rec.rejections)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/trips", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map write")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), common.CodeInternal)
	assert.NotContains(t, rr.Body.String(), "nil map")
}

func TestRequestLogger_RecordsRoutePattern(t *testing.T) {
	rec := &recorder{}
	r := chi.NewRouter()
	r.Use(RequestLogger(rec))
	r.Get("/trips/{tripID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/trips/abc", nil))
	require.Len(t, rec.requests, 1)
	assert.Equal(t, "GET /trips/{tripID} 418", rec.requests[0])
}

func TestCORSMiddleware_IgnoresOtherOrigins(t *testing.T) {
	h := CORSMiddleware("https://app.example.com")(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestPathID(t *testing.T) {
	r := chi.NewRouter()
	var got string
	var gotErr *common.AppError
	r.Get("/trips/{tripID}", func(w http.ResponseWriter, req *http.Request) {
		got, gotErr = pathID(req, "tripID", "Trip")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/trips/3b241101-e2bb-4255-8caf-4136c566a962", nil))
	assert.Nil(t, gotErr)
	assert.Equal(t, "3b241101-e2bb-4255-8caf-4136c566a962", got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/trips/42", nil))
	require.NotNil(t, gotErr)
	assert.Equal(t, http.StatusNotFound, gotErr.Status)
}
