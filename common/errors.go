package common

import (
	"encoding/json"
	"go-trip-api/logger"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Error codes exposed to clients.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeEmailTaken          = "EMAIL_TAKEN"
	CodeRateLimited         = "RATE_LIMIT_EXCEEDED"
	CodeInternal            = "INTERNAL_ERROR"
	CodeBadRequest          = "BAD_REQUEST"
)

const genericInternalMessage = "An unexpected error occurred"

// AppError is the single error type handlers return. Send renders it as
// {"error": {"message", "code", "fields"?, "retry_after"?}}.
type AppError struct {
	Status     int               `json:"-"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	RetryAfter time.Duration     `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewValidationError(fields map[string]string) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: "Validation failed",
		Fields:  fields,
	}
}

func NewBadRequestError(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message, err)
}

func NewUnauthorizedError(err error) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, "Authentication required", err)
}

func NewInvalidCredentialsError() *AppError {
	return NewAppError(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password", nil)
}

func NewInvalidRefreshTokenError() *AppError {
	return NewAppError(http.StatusUnauthorized, CodeInvalidRefreshToken, "Invalid or expired refresh token", nil)
}

func NewForbiddenError() *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, "You do not have access to this resource", nil)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, resource+" not found", nil)
}

func NewEmailTakenError() *AppError {
	return NewAppError(http.StatusConflict, CodeEmailTaken, "An account with this email already exists", nil)
}

func NewRateLimitError(retryAfter time.Duration) *AppError {
	e := NewAppError(http.StatusTooManyRequests, CodeRateLimited, "Too many requests, please try again later", nil)
	e.RetryAfter = retryAfter
	return e
}

// NewInternalError hides err from the client; it is only logged.
func NewInternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternal, genericInternalMessage, err)
}

// RetryAfterSeconds rounds the retry-after duration up to whole seconds, minimum 1.
func (e *AppError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

type errorBody struct {
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	Fields     map[string]string `json:"fields,omitempty"`
	RetryAfter *int              `json:"retry_after,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func (e *AppError) Send(w http.ResponseWriter) {
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	fields := logrus.Fields{
		"status_code": status,
		"code":        e.Code,
	}
	if e.Err != nil {
		fields["internal_error"] = e.Err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Log.WithFields(fields).Error(e.Message)
	} else if e.Err != nil {
		logger.Log.WithFields(fields).Warn(e.Message)
	}

	body := errorBody{
		Message: e.Message,
		Code:    e.Code,
	}
	if status >= http.StatusInternalServerError {
		body.Message = genericInternalMessage
		body.Code = CodeInternal
	}
	if e.Code == CodeValidation {
		body.Fields = e.Fields
		if body.Fields == nil {
			body.Fields = map[string]string{}
		}
	}
	if status == http.StatusTooManyRequests {
		secs := e.RetryAfterSeconds()
		body.RetryAfter = &secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorEnvelope{Error: body})
}

// WriteJSON writes payload with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// DataEnvelope wraps successful responses as {"data": ...}.
type DataEnvelope struct {
	Data interface{} `json:"data"`
}

// PageEnvelope wraps paginated list responses.
type PageEnvelope struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}
