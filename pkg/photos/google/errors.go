package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/marmos91/photobridge/pkg/pipeline"
)

// ErrBatchTooLarge is returned by BatchCreate for more than MaxBatchSize tokens.
var ErrBatchTooLarge = errors.New("batch exceeds the service limit")

// APIError is an error response from the library API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("google: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("google: %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the request may succeed if repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Unwrap lets errors.Is(err, pipeline.ErrTransient) match temporary errors.
func (e *APIError) Unwrap() error {
	if e.Temporary() {
		return pipeline.ErrTransient
	}
	return nil
}

// parseAPIError builds an APIError from a non-2xx response body.
func parseAPIError(statusCode int, body []byte) *APIError {
	var envelope struct {
		Error APIError `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		envelope.Error.StatusCode = statusCode
		return &envelope.Error
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
