package gridapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the grid API.
type APIError struct {
	StatusCode int
	Path       string
	Message    string // server-provided "error" field, may be empty
}

func (e *APIError) Error() string {
	if e.StatusCode == http.StatusUnauthorized {
		return "Unauthorized"
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.StatusCode)
}

// Permanent reports whether retrying the same request cannot succeed: any
// 4xx other than 408 and 429.
func (e *APIError) Permanent() bool {
	if e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsTransient reports whether err is worth retrying: network errors,
// timeouts, 408, 429 and 5xx.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Permanent()
	}
	return true
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func newAPIError(path string, resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Path: path}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var body ErrorResponse
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = strings.TrimSpace(body.Error)
	}
	return apiErr
}
