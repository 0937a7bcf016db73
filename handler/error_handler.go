package handler

import (
	"errors"
	"go-trip-api/common"
	"go-trip-api/logger"
	"go-trip-api/service"
	"go-trip-api/validation"
	"net/http"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// ErrorHandlingMiddleware adapts a handler that returns *common.AppError.
func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

// mapServiceError translates service and validation errors into the client
// envelope. Anything unrecognised becomes a 500 with the detail logged only.
func mapServiceError(err error) *common.AppError {
	if fields, ok := validation.AsErrors(err); ok {
		return common.NewValidationError(fields)
	}

	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return common.NewEmailTakenError()
	case errors.Is(err, service.ErrInvalidCredentials):
		return common.NewInvalidCredentialsError()
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return common.NewInvalidRefreshTokenError()
	case errors.Is(err, service.ErrUnauthorized):
		return common.NewUnauthorizedError(err)
	case errors.Is(err, service.ErrForbidden):
		return common.NewForbiddenError()
	case errors.Is(err, service.ErrTripNotFound):
		return common.NewNotFoundError("Trip")
	case errors.Is(err, service.ErrFlightNotFound):
		return common.NewNotFoundError("Flight")
	case errors.Is(err, service.ErrStayNotFound):
		return common.NewNotFoundError("Stay")
	case errors.Is(err, service.ErrActivityNotFound):
		return common.NewNotFoundError("Activity")
	default:
		return common.NewInternalError(err)
	}
}

// RecoveryMiddleware turns a panic into the generic internal error response.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Log.WithFields(logrus.Fields{
					"panic":  rec,
					"method": r.Method,
					"path":   r.URL.Path,
					"stack":  string(debug.Stack()),
				}).Error("Recovered from panic")
				common.NewInternalError(nil).Send(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
