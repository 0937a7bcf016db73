package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestSend_InternalErrorHidesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	NewAppError(http.StatusInternalServerError, CodeNotFound, "pq: relation trips does not exist", errors.New("boom")).Send(rr)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, CodeInternal, body["code"])
	assert.Equal(t, "An unexpected error occurred", body["message"])
	assert.NotContains(t, rr.Body.String(), "pq:")
}

func TestSend_ValidationErrorAlwaysHasFields(t *testing.T) {
	rr := httptest.NewRecorder()
	NewValidationError(nil).Send(rr)

	body := decodeEnvelope(t, rr)
	assert.Equal(t, CodeValidation, body["code"])
	assert.Equal(t, map[string]any{}, body["fields"])
}

func TestSend_FieldsOnlyForValidation(t *testing.T) {
	rr := httptest.NewRecorder()
	e := NewForbiddenError()
	e.Fields = map[string]string{"x": "y"}
	e.Send(rr)

	_, ok := decodeEnvelope(t, rr)["fields"]
	assert.False(t, ok)
}

func TestSend_RateLimitSetsRetryAfter(t *testing.T) {
	rr := httptest.NewRecorder()
	NewRateLimitError(1500 * time.Millisecond).Send(rr)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("Retry-After"))
	assert.Equal(t, 2.0, decodeEnvelope(t, rr)["retry_after"])
}

func TestRetryAfterSeconds_Minimum(t *testing.T) {
	assert.Equal(t, 1, NewRateLimitError(0).RetryAfterSeconds())
}

func TestDecodeJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "object", body: `{"name":"Japan","destinations":["Tokyo"]}`},
		{name: "empty", body: ``, wantErr: "Request body is required"},
		{name: "malformed", body: `{"name":`, wantErr: "Invalid request body"},
		{name: "array", body: `["a"]`, wantErr: "Invalid request body"},
		{name: "null", body: `null`, wantErr: "Request body must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			payload, appErr := DecodeJSONObject(httptest.NewRecorder(), req)
			if tt.wantErr == "" {
				require.Nil(t, appErr)
				assert.Equal(t, "Japan", payload["name"])
				return
			}
			require.NotNil(t, appErr)
			assert.Equal(t, http.StatusBadRequest, appErr.Status)
			assert.Equal(t, tt.wantErr, appErr.Message)
		})
	}
}
