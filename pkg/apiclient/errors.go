package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

// IsAuthError reports whether the request lacked a valid token.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsUnavailable reports whether the server answered but is not ready.
func (e *APIError) IsUnavailable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

// decodeError reads either a problem document or an unhealthy envelope.
func decodeError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}

	var problem APIError
	if json.Unmarshal(body, &problem) == nil && problem.Title != "" {
		apiErr.Title = problem.Title
		apiErr.Detail = problem.Detail
		return apiErr
	}

	apiErr.Title = http.StatusText(status)
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		apiErr.Detail = env.Error
	} else {
		apiErr.Detail = strings.TrimSpace(string(body))
	}
	return apiErr
}
