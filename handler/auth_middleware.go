package handler

import (
	"context"
	"go-trip-api/common"
	"go-trip-api/model"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserIDKey    contextKey = "userID"
	UserEmailKey contextKey = "userEmail"
)

// Authenticator verifies a bearer access token.
type Authenticator interface {
	Authenticate(accessToken string) (*model.AccessClaims, error)
}

// AuthMiddleware requires a valid bearer access token and stores the caller's
// identity on the request context.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				common.NewUnauthorizedError(nil).Send(w)
				return
			}

			headerParts := strings.SplitN(authHeader, " ", 2)
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") || headerParts[1] == "" {
				common.NewUnauthorizedError(nil).Send(w)
				return
			}

			claims, err := auth.Authenticate(strings.TrimSpace(headerParts[1]))
			if err != nil {
				common.NewUnauthorizedError(err).Send(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user's ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

func requireUserID(r *http.Request) (string, *common.AppError) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return "", common.NewUnauthorizedError(nil)
	}
	return userID, nil
}
