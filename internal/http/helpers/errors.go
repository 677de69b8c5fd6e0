package helpers

import (
	"encoding/json"
	"net/http"
)

// Standard Error Responses

var (
	ErrInvalidJSON         = &HTTPError{Code: "invalid_json", Message: "Invalid JSON format", Status: http.StatusBadRequest}
	ErrBadRequest          = &HTTPError{Code: "bad_request", Message: "Bad request", Status: http.StatusBadRequest}
	ErrEmailInvalid        = &HTTPError{Code: "email_invalid", Message: "Email address is not valid", Status: http.StatusBadRequest}
	ErrEmailNotAccepted    = &HTTPError{Code: "email_not_accepted", Message: "Email domain is not handled by this service", Status: http.StatusBadRequest}
	ErrNoSession           = &HTTPError{Code: "no_session", Message: "No pending authentication for this session", Status: http.StatusUnauthorized}
	ErrStaleToken          = &HTTPError{Code: "stale_token", Message: "Authentication response is stale or reused", Status: http.StatusUnauthorized}
	ErrNotProven           = &HTTPError{Code: "not_proven", Message: "Email was not proven by this session", Status: http.StatusUnauthorized}
	ErrEmailUnverified     = &HTTPError{Code: "email_unverified", Message: "Provider reports the email as unverified", Status: http.StatusForbidden}
	ErrPublicKeyInvalid    = &HTTPError{Code: "public_key_invalid", Message: "Public key is missing or malformed", Status: http.StatusBadRequest}
	ErrTooManyRequests     = &HTTPError{Code: "rate_limited", Message: "Too many requests", Status: http.StatusTooManyRequests}
	ErrProviderUnavailable = &HTTPError{Code: "provider_unavailable", Message: "Identity provider is unreachable", Status: http.StatusBadGateway}
	ErrProviderInvalid     = &HTTPError{Code: "provider_invalid_response", Message: "Identity provider returned an unusable response", Status: http.StatusBadGateway}
	ErrNotFound            = &HTTPError{Code: "not_found", Message: "Not found", Status: http.StatusNotFound}
	ErrMethodNotAllowed    = &HTTPError{Code: "method_not_allowed", Message: "Method not allowed", Status: http.StatusMethodNotAllowed}
	ErrInternalServerError = &HTTPError{Code: "internal_error", Message: "Internal server error", Status: http.StatusInternalServerError}
)

// HTTPError represents a standard API error.
type HTTPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Status  int    `json:"-"`
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// WithDetail returns a copy of the error with specific details.
func (e *HTTPError) WithDetail(detail string) *HTTPError {
	return &HTTPError{
		Code:    e.Code,
		Message: e.Message,
		Detail:  detail,
		Status:  e.Status,
	}
}

// WriteError writes the error to the response writer.
func WriteError(w http.ResponseWriter, err error) {
	var httpErr *HTTPError
	if hErr, ok := err.(*HTTPError); ok {
		httpErr = hErr
	} else {
		// Default to internal error if unknown type
		httpErr = ErrInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpErr.Status)
	_ = json.NewEncoder(w).Encode(httpErr)
}

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
