package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
	validation "github.com/go-ozzo/ozzo-validation"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// statusFor maps a service error kind to its HTTP status.
func statusFor(kind error) int {
	switch kind {
	case service.ErrUnauthorized:
		return http.StatusUnauthorized
	case service.ErrForbidden:
		return http.StatusForbidden
	case service.ErrConflict:
		return http.StatusConflict
	case service.ErrBadRequest:
		return http.StatusBadRequest
	case service.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as an authsdk.ErrorResponse. Anything that is not a
// *service.Error is treated as an internal failure and never leaked.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var se *service.Error
	if !errors.As(err, &se) {
		log.Error("unhandled error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, authsdk.ErrorCodeInternal, "internal server error")
		return
	}

	status := statusFor(se.Kind)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "code", se.Code, "err", err)
	}
	httpx.WriteError(w, status, se.Code, se.Message)
}

// guardError is the AccessGuard error handler: every rejection is a 401
// carrying the reason.
func guardError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		writeError(w, r, err)
		return
	}
	httpx.WriteError(w, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized, err.Error())
}

// writeValidationError reports ozzo-validation failures field by field.
func writeValidationError(w http.ResponseWriter, err error) {
	resp := authsdk.ValidationErrorResponse{
		ErrorResponse: authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeValidation,
			ErrorDescription: "request validation failed",
		},
	}

	var fields validation.Errors
	if errors.As(err, &fields) {
		resp.Details = make(map[string]string, len(fields))
		for name, ferr := range fields {
			resp.Details[name] = ferr.Error()
		}
	} else {
		resp.ErrorDescription = err.Error()
	}

	httpx.WriteJSON(w, http.StatusBadRequest, resp)
}

// decodeBody decodes a JSON body into dst. With optional set an empty body
// leaves dst untouched. It writes the 400 itself and reports false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}

	httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeBadRequest, "invalid JSON body")
	return false
}
