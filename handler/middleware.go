package handler

import (
	"go-trip-api/common"
	"go-trip-api/logger"
	"go-trip-api/ratelimit"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// HTTPRecorder receives one observation per completed request.
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, statusCode int, d time.Duration)
}

// RateLimitRecorder counts rejected requests per policy.
type RateLimitRecorder interface {
	RecordRateLimitRejection(policy string)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// RequestLogger logs every request and records it under its route pattern,
// so /trips/{tripID} is one series no matter how many trips exist.
func RequestLogger(rec HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			if rec != nil {
				rec.RecordHTTPRequest(r.Method, route, sr.statusCode, duration)
			}

			fields := logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"route":       route,
				"status":      sr.statusCode,
				"duration_ms": float64(duration.Microseconds()) / 1000,
			}
			if reqID := chimw.GetReqID(r.Context()); reqID != "" {
				fields["request_id"] = reqID
			}
			if userID, ok := UserIDFromContext(r.Context()); ok {
				fields["user_id"] = userID
			}

			entry := logger.Log.WithFields(fields)
			switch {
			case sr.statusCode >= http.StatusInternalServerError:
				entry.Error("HTTP request")
			case sr.statusCode >= http.StatusBadRequest:
				entry.Warn("HTTP request")
			default:
				entry.Info("HTTP request")
			}
		})
	}
}

// CORSMiddleware allows one origin with credentials. A wildcard cannot be
// combined with cookies, so an empty origin disables the headers.
func CORSMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowedOrigin != "" && r.Header.Get("Origin") == allowedOrigin {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// RateLimitByAddress throttles by client address under policy. When the
// limiter backend fails the request is let through and the failure logged.
func RateLimitByAddress(limiter ratelimit.Limiter, policy ratelimit.Policy, rec RateLimitRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := clientAddress(r)
			decision, err := limiter.Allow(r.Context(), policy, addr)
			if err != nil {
				logger.Log.WithError(err).WithField("policy", policy.Name).Error("Rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !decision.Allowed {
				if rec != nil {
					rec.RecordRateLimitRejection(policy.Name)
				}
				logger.Log.WithFields(logrus.Fields{
					"policy":  policy.Name,
					"address": addr,
				}).Warn("Rate limit exceeded")
				common.NewRateLimitError(decision.RetryAfter).Send(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// APIRateLimit applies the per-user token bucket. It must run after AuthMiddleware.
func APIRateLimit(limiter *ratelimit.APILimiter, rec RateLimitRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				common.NewUnauthorizedError(nil).Send(w)
				return
			}
			if allowed, retryAfter := limiter.Allow(userID); !allowed {
				if rec != nil {
					rec.RecordRateLimitRejection("api")
				}
				logger.Log.WithField("user_id", userID).Warn("Rate limit exceeded")
				common.NewRateLimitError(retryAfter).Send(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddress is the host part of RemoteAddr. Behind a trusted proxy the
// router rewrites RemoteAddr from the forwarding headers first.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
