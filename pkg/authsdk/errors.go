package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned in ErrorResponse.Error.
const (
	ErrorCodeUnauthorized    = "unauthorized"
	ErrorCodeForbidden       = "forbidden"
	ErrorCodeConflict        = "conflict"
	ErrorCodeBadRequest      = "bad_request"
	ErrorCodeNotFound        = "not_found"
	ErrorCodeInternal        = "internal_error"
	ErrorCodeTimeout         = "timeout"
	ErrorCodeValidation      = "validation_error"
	ErrorCodeTooManyRequests = "rate_limit_exceeded"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string

	// Details is set for validation errors.
	Details map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// StatusOf returns the HTTP status of an *APIError in err's chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// parseErrorResponse turns a non-2xx response body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var v ValidationErrorResponse
	if err := json.Unmarshal(body, &v); err == nil && v.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        v.Error,
			Description: v.ErrorDescription,
			Details:     v.Details,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeInternal,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
