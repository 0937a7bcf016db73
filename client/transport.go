package client

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

// transport attaches the bearer token and, on a 401, refreshes once and
// replays the request once. A replay that fails again is returned as is.
type transport struct {
	c    *Client
	base http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req, err := replayable(req)
	if err != nil {
		return nil, err
	}

	token, gen := t.c.snapshot()
	resp, err := t.base.RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || t.skipsRefresh(req) {
		return resp, err
	}

	newToken, err := t.c.refreshSince(req.Context(), gen)
	if err != nil {
		drain(resp)
		return nil, err
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			drain(resp)
			return nil, err
		}
		retry.Body = body
	}
	drain(resp)
	return t.base.RoundTrip(withBearer(retry, newToken))
}

func (t *transport) skipsRefresh(req *http.Request) bool {
	p := req.URL.Path
	return strings.HasSuffix(p, loginPath) || strings.HasSuffix(p, refreshPath)
}

// withBearer returns a copy of req carrying token. RoundTrippers must not
// modify the caller's request.
func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if token == "" {
		out.Header.Del("Authorization")
	} else {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return out
}

// replayable returns req, or a copy of it with a buffered body when the body
// cannot be obtained again through GetBody.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}
	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	out.Body, _ = out.GetBody()
	return out, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
