package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

// DecodeJSONObject reads the request body as a JSON object. Field rules are
// applied later by the validation package, so unknown keys are kept.
func DecodeJSONObject(w http.ResponseWriter, r *http.Request) (map[string]any, *AppError) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	var payload map[string]any
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewBadRequestError("Request body is required", err)
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, NewBadRequestError("Request body is too large", err)
		}
		return nil, NewBadRequestError("Invalid request body", err)
	}
	if payload == nil {
		return nil, NewBadRequestError("Request body must be a JSON object", nil)
	}
	return payload, nil
}
