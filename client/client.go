// Package client is a Go HTTP client for the trip API that keeps the access
// token in memory and renews it transparently with the refresh cookie.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"go-trip-api/model"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

// ErrSessionLost is returned when a request needed a refresh and the refresh failed.
var ErrSessionLost = errors.New("session lost")

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	refreshPath  = "/auth/refresh"
	logoutPath   = "/auth/logout"
)

type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// TokenStore holds the access token. It must not persist the token.
type TokenStore interface {
	Token() string
	SetToken(token string)
}

// MemoryTokenStore is the default TokenStore.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func (s *MemoryTokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *MemoryTokenStore) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// User mirrors the account returned by register, login and /auth/me.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is what the current access token says about its holder.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// APIError is a decoded {"error": {...}} envelope.
type APIError struct {
	Status     int
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

type Option func(*Client)

// WithTokenStore replaces the in-memory token holder.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// WithSessionLost registers a callback run once each time a refresh fails
// outside of Restore. It is typically used to send the user to a login screen.
func WithSessionLost(fn func()) Option {
	return func(c *Client) { c.onSessionLost = fn }
}

// WithTransport sets the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// WithCookieJar shares a jar, and with it the refresh cookie, between clients.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) { c.jar = jar }
}

// Client is safe for concurrent use. The token, the session state and the
// refresh generation are only changed through the refresh path and the
// login, register and logout helpers.
type Client struct {
	baseURL       string
	base          http.RoundTripper
	jar           http.CookieJar
	tokens        TokenStore
	onSessionLost func()

	http    *http.Client
	refresh *http.Client
	group   singleflight.Group

	mu    sync.Mutex
	state State
	gen   uint64
}

// New returns a client for the API rooted at baseURL, e.g. https://host/api/v1.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		base:    http.DefaultTransport,
		tokens:  &MemoryTokenStore{},
		state:   StateAnonymous,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		c.jar = jar
	}

	c.http = &http.Client{Transport: &transport{c: c, base: c.base}, Jar: c.jar, Timeout: 30 * time.Second}
	c.refresh = &http.Client{Transport: c.base, Jar: c.jar, Timeout: 30 * time.Second}
	return c, nil
}

// HTTPClient returns the intercepting client for requests the typed helpers do not cover.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// NewRequest builds a request for path relative to the base URL, encoding
// body as JSON when it is not nil.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req through the refresh interceptor.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// DoJSON sends a request and decodes the "data" member of a 2xx response into
// out. Error envelopes come back as *APIError.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

// Register creates an account and starts a session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*User, error) {
	return c.authenticate(ctx, registerPath, map[string]string{"name": name, "email": email, "password": password})
}

// Login starts a session. A 401 from login never triggers a refresh.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	return c.authenticate(ctx, loginPath, map[string]string{"email": email, "password": password})
}

func (c *Client) authenticate(ctx context.Context, path string, body map[string]string) (*User, error) {
	var out struct {
		User        *User  `json:"user"`
		AccessToken string `json:"access_token"`
	}
	if err := c.DoJSON(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	c.setSession(out.AccessToken)
	return out.User, nil
}

// Logout ends the session locally even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.DoJSON(ctx, http.MethodPost, logoutPath, nil, nil)
	c.mu.Lock()
	c.tokens.SetToken("")
	c.state = StateAnonymous
	c.gen++
	c.mu.Unlock()

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return nil
	}
	if errors.Is(err, ErrSessionLost) {
		return nil
	}
	return err
}

// Restore tries one silent refresh from the cookie. The state is Loading
// while it runs. A failed restore leaves the client Anonymous without calling
// the session-lost callback.
func (c *Client) Restore(ctx context.Context) State {
	c.mu.Lock()
	c.state = StateLoading
	gen := c.gen
	c.mu.Unlock()

	_, _ = c.refreshSince(ctx, gen)
	return c.State()
}

// Identity decodes the claims of the held access token without verifying
// the signature; the server verifies it on every request.
func (c *Client) Identity() (*Identity, bool) {
	token := c.tokens.Token()
	if token == "" {
		return nil, false
	}
	var claims model.AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, false
	}
	id := &Identity{UserID: claims.Subject, Email: claims.Email, Name: claims.Name}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, true
}

func (c *Client) setSession(token string) {
	c.mu.Lock()
	c.tokens.SetToken(token)
	c.state = StateAuthenticated
	c.gen++
	c.mu.Unlock()
}

func (c *Client) snapshot() (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens.Token(), c.gen
}

// refreshSince returns a usable access token for a caller whose request was
// sent at generation gen. Callers arriving while a refresh is in flight share
// its result. A caller whose generation is already stale gets the outcome of
// the refresh that superseded it instead of starting another.
func (c *Client) refreshSince(ctx context.Context, gen uint64) (string, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		c.mu.Lock()
		if c.gen != gen {
			token := c.tokens.Token()
			c.mu.Unlock()
			if token == "" {
				return "", ErrSessionLost
			}
			return token, nil
		}
		c.mu.Unlock()
		return c.doRefresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) doRefresh(ctx context.Context) (string, error) {
	token, err := c.callRefresh(ctx)

	c.mu.Lock()
	prev := c.state
	c.gen++
	if err != nil {
		c.tokens.SetToken("")
		c.state = StateAnonymous
		c.mu.Unlock()
		if prev != StateLoading && c.onSessionLost != nil {
			c.onSessionLost()
		}
		return "", fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	c.tokens.SetToken(token)
	c.state = StateAuthenticated
	c.mu.Unlock()
	return token, nil
}

func (c *Client) callRefresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.refresh.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := decodeResponse(resp, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("refresh response carried no access token")
	}
	return out.AccessToken, nil
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		envelope := struct {
			Data any `json:"data"`
		}{Data: out}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	var envelope struct {
		Error *APIError `json:"error"`
	}
	envelope.Error = apiErr
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || apiErr.Code == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
