package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-trip-api/app"
	"go-trip-api/client"
	"go-trip-api/config"
	"go-trip-api/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Env = config.EnvDevelopment
	cfg.JWT.SecretKey = "client-test-secret"
	cfg.JWT.Issuer = "go-trip-api"
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.Auth.RefreshTTL = 24 * time.Hour
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Auth.CookieName = "refresh_token"
	cfg.Auth.CookiePath = "/api/v1/auth"
	cfg.RateLimit.Login = 100
	cfg.RateLimit.Register = 100
	cfg.RateLimit.Session = 100
	cfg.RateLimit.Window = 15 * time.Minute
	cfg.RateLimit.APIPerMinute = 1000
	cfg.App.Timezone = "UTC"
	return cfg
}

type apiServer struct {
	*httptest.Server
	refreshes atomic.Int32
}

// newAPIServer runs the real router and counts refresh calls. gate, when
// set, runs before every request is routed.
func newAPIServer(t *testing.T, gate func(r *http.Request)) *apiServer {
	t.Helper()
	a, err := app.New(testConfig(), app.MemoryStores(memory.NewStore()), nil, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	s := &apiServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			s.refreshes.Add(1)
		}
		if gate != nil {
			gate(r)
		}
		a.Router.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) baseURL() string { return s.URL + "/api/v1" }

func newClient(t *testing.T, baseURL string, opts ...client.Option) *client.Client {
	t.Helper()
	c, err := client.New(baseURL, opts...)
	require.NoError(t, err)
	return c
}

func getTrips(t *testing.T, c *client.Client) (*http.Response, error) {
	t.Helper()
	req, err := c.NewRequest(context.Background(), http.MethodGet, "/trips", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	if err == nil {
		t.Cleanup(func() { resp.Body.Close() })
	}
	return resp, err
}

func TestClient_RegisterAndIdentity(t *testing.T) {
	srv := newAPIServer(t, nil)
	c := newClient(t, srv.baseURL())
	assert.Equal(t, client.StateAnonymous, c.State())

	user, err := c.Register(context.Background(), "Ada", "ada@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, client.StateAuthenticated, c.State())

	id, ok := c.Identity()
	require.True(t, ok)
	assert.Equal(t, user.ID, id.UserID)
	assert.Equal(t, "Ada", id.Name)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), id.ExpiresAt, time.Minute)

	resp, err := getTrips(t, c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_FailedLoginDoesNotRefresh(t *testing.T) {
	srv := newAPIServer(t, nil)
	_, err := newClient(t, srv.baseURL()).Register(context.Background(), "Ada", "ada@example.com", "correct-horse")
	require.NoError(t, err)

	var lost atomic.Int32
	c := newClient(t, srv.baseURL(), client.WithSessionLost(func() { lost.Add(1) }))
	_, err = c.Login(context.Background(), "ada@example.com", "wrong-password")

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)
	assert.Equal(t, int32(0), srv.refreshes.Load())
	assert.Equal(t, int32(0), lost.Load())
	assert.Equal(t, client.StateAnonymous, c.State())
}

func TestClient_ConcurrentUnauthorizedRequestsShareOneRefresh(t *testing.T) {
	// Hold the three stale requests until all of them are in flight.
	const n = 3
	var arrived atomic.Int32
	allIn := make(chan struct{})
	srv := newAPIServer(t, func(r *http.Request) {
		if r.URL.Path == "/api/v1/trips" && r.Header.Get("Authorization") == "Bearer stale" {
			if arrived.Add(1) == n {
				close(allIn)
			}
			select {
			case <-allIn:
			case <-time.After(2 * time.Second):
			}
		}
	})

	store := &client.MemoryTokenStore{}
	c := newClient(t, srv.baseURL(), client.WithTokenStore(store))
	_, err := c.Register(context.Background(), "Ada", "ada@example.com", "correct-horse")
	require.NoError(t, err)
	store.SetToken("stale")

	var wg sync.WaitGroup
	statuses := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := c.NewRequest(context.Background(), http.MethodGet, "/trips", nil)
			if err != nil {
				errs[i] = err
				return
			}
			resp, err := c.Do(req)
			if err != nil {
				errs[i] = err
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, statuses[i], "request %d is replayed with the new token", i)
	}
	assert.Equal(t, int32(1), srv.refreshes.Load())
	assert.NotEqual(t, "stale", store.Token())
	assert.Equal(t, client.StateAuthenticated, c.State())
}

func TestClient_RefreshFailureLosesSession(t *testing.T) {
	srv := newAPIServer(t, nil)
	store := &client.MemoryTokenStore{}
	var lost atomic.Int32
	c := newClient(t, srv.baseURL(), client.WithTokenStore(store), client.WithSessionLost(func() { lost.Add(1) }))
	store.SetToken("stale")

	_, err := getTrips(t, c)
	require.ErrorIs(t, err, client.ErrSessionLost)
	assert.Equal(t, int32(1), srv.refreshes.Load())
	assert.Equal(t, int32(1), lost.Load())
	assert.Empty(t, store.Token())
	assert.Equal(t, client.StateAnonymous, c.State())

	_, ok := c.Identity()
	assert.False(t, ok)
}

func TestClient_Restore(t *testing.T) {
	srv := newAPIServer(t, nil)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	first := newClient(t, srv.baseURL(), client.WithCookieJar(jar))
	user, err := first.Register(context.Background(), "Ada", "ada@example.com", "correct-horse")
	require.NoError(t, err)

	t.Run("cookie present", func(t *testing.T) {
		c := newClient(t, srv.baseURL(), client.WithCookieJar(jar))
		assert.Equal(t, client.StateAuthenticated, c.Restore(context.Background()))
		id, ok := c.Identity()
		require.True(t, ok)
		assert.Equal(t, user.ID, id.UserID)
	})

	t.Run("no cookie", func(t *testing.T) {
		var lost atomic.Int32
		c := newClient(t, srv.baseURL(), client.WithSessionLost(func() { lost.Add(1) }))
		assert.Equal(t, client.StateAnonymous, c.Restore(context.Background()))
		assert.Equal(t, int32(0), lost.Load(), "a failed restore is not a lost session")
	})
}

func TestClient_Logout(t *testing.T) {
	srv := newAPIServer(t, nil)
	c := newClient(t, srv.baseURL())
	_, err := c.Register(context.Background(), "Ada", "ada@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, client.StateAnonymous, c.State())
	_, ok := c.Identity()
	assert.False(t, ok)

	assert.Equal(t, client.StateAnonymous, c.Restore(context.Background()), "the refresh cookie was revoked")
}

func TestClient_RetriesOnlyOnce(t *testing.T) {
	var refreshes, calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			refreshes.Add(1)
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"data":{"access_token":"fresh"}}`)
		default:
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":{"code":"UNAUTHORIZED","message":"nope"}}`)
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/api/v1")
	resp, err := getTrips(t, c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "the replayed 401 is returned as is")
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ReplaysRequestBody(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			io.WriteString(w, `{"data":{"access_token":"fresh"}}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization")+" "+string(body))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/api/v1")
	// A plain io.Reader has no GetBody, so the transport has to buffer it.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/trips", io.MultiReader(strings.NewReader(`{"title":"Lisbon"}`)))
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{` {"title":"Lisbon"}`, `Bearer fresh {"title":"Lisbon"}`}, seen)
}

func TestAPIError(t *testing.T) {
	err := error(&client.APIError{Status: 404, Code: "NOT_FOUND", Message: "Trip not found"})
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "404 NOT_FOUND: Trip not found", err.Error())
}
