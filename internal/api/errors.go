// Package api provides the HTTP handlers and shared response utilities
// for the PolitiGuessr API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/politiguessr/internal/middleware"
)

// Common error codes used throughout the API.
const (
	// ErrCodeValidation indicates input validation failure.
	ErrCodeValidation = "validation_error"

	// ErrCodeAuthFailed indicates authentication failure.
	ErrCodeAuthFailed = "auth_failed"

	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeRateLimited indicates the caller exhausted its daily
	// game-start allowance.
	ErrCodeRateLimited = "rate_limited"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"

	// ErrCodeBadRequest indicates a malformed request.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeInvalidSession indicates a session token that is
	// malformed, tampered with, or expired. All three cases report the
	// same code: a forger learns nothing from the response.
	ErrCodeInvalidSession = "invalid_session"

	// ErrCodeUnknownRound indicates a guess for a round ordinal that is
	// not in the session.
	ErrCodeUnknownRound = "unknown_round"

	// ErrCodeDuplicateSubmission indicates the account already has a
	// ranked entry for the challenge date.
	ErrCodeDuplicateSubmission = "duplicate_submission"

	// ErrCodeDependencyUnavailable indicates an unreachable backing
	// store; the request can be retried.
	ErrCodeDependencyUnavailable = "dependency_unavailable"
)

// ErrorResponse represents the standard error response format.
// All API errors return JSON in this structure:
// {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Tier is set on rate_limited responses so the client can render
	// an upgrade path.
	Tier string `json:"tier,omitempty"`
}

// WriteError writes a standardized JSON error response with the given
// status code. Set the error code on the context first so the logging
// middleware can record it:
//
//	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeUnknownRound)
//	api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeUnknownRound, "No such round")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	writeErrorDetail(w, ctx, status, ErrorDetail{Code: code, Message: message})
}

// WriteRateLimited writes the 429 response for an exhausted daily
// allowance, including the caller's tier.
func WriteRateLimited(w http.ResponseWriter, ctx context.Context, tier string) {
	writeErrorDetail(w, ctx, http.StatusTooManyRequests, ErrorDetail{
		Code:    ErrCodeRateLimited,
		Message: "Daily game limit reached",
		Tier:    tier,
	})
}

func writeErrorDetail(w http.ResponseWriter, ctx context.Context, status int, detail ErrorDetail) {
	// Propagate the error code to the logging middleware if supported.
	middleware.UpdateResponseContext(w, ctx)

	data, err := json.Marshal(ErrorResponse{Error: detail})
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// writeJSON writes a 200 JSON response body.
func writeJSON(w http.ResponseWriter, ctx context.Context, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// StatusCodeMapping returns the recommended HTTP status code for common
// error codes.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeAuthFailed, ErrCodeInvalidSession:
		return http.StatusUnauthorized
	case ErrCodeNotFound, ErrCodeUnknownRound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeDuplicateSubmission:
		return http.StatusConflict
	case ErrCodeDependencyUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
