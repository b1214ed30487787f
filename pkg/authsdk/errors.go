package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
	Errors     map[string]string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("authsdk: %d %s %v", e.StatusCode, e.Message, e.Errors)
	}
	return fmt.Sprintf("authsdk: %d %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status of an *APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// parseErrorResponse turns a failure envelope into an *APIError. Bodies that
// are not envelopes (a proxy's HTML page, say) fall back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}

	var env ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		apiErr.Message = env.Message
		apiErr.Errors = env.Errors
	}
	return apiErr
}
