// Package ratelimit throttles the authentication endpoints per client address
// with sliding-window counters, and the trip API per user with token buckets.
package ratelimit

import (
	"context"
	"time"
)

// Policy is a named budget of Limit requests per sliding Window.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one Allow call. RetryAfter is only set when the
// request was rejected and tells the caller when the oldest counted request
// leaves the window.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests per policy and key.
type Limiter interface {
	Allow(ctx context.Context, policy Policy, key string) (Decision, error)
}

// AuthPolicies are the three independent buckets of the auth endpoints.
// Refresh and logout share the session bucket.
type AuthPolicies struct {
	Login    Policy
	Register Policy
	Session  Policy
}

func NewAuthPolicies(login, register, session int, window time.Duration) AuthPolicies {
	return AuthPolicies{
		Login:    Policy{Name: "login", Limit: login, Window: window},
		Register: Policy{Name: "register", Limit: register, Window: window},
		Session:  Policy{Name: "session", Limit: session, Window: window},
	}
}

func bucketKey(policy Policy, key string) string {
	return "ratelimit:" + policy.Name + ":" + key
}
