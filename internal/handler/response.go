package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/scanpay/scanpay-api/internal/domain"
	"github.com/scanpay/scanpay-api/internal/inference"
	"github.com/scanpay/scanpay-api/internal/saltedge"
	"github.com/scanpay/scanpay-api/internal/service"
)

// APIResponse is the envelope of every JSON response. Failures carry Code
// and Message; successes carry Data and optionally Meta.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Meta    any    `json:"meta,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
	})
}

func RespondSuccessWithMeta(w http.ResponseWriter, status int, data, meta any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func RespondMessage(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Message: message,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: details,
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var (
		appErr      *AppError
		details     any
		apiErr      *saltedge.APIError
		unparseable *service.UnparseableOutputError
	)

	switch {
	case errors.As(err, &apiErr):
		appErr, details = upstreamError(apiErr)
	case errors.As(err, &unparseable):
		appErr = ErrAIOutputUnparseable
		details = map[string]string{"raw_output": unparseable.Raw}
	case errors.Is(err, inference.ErrUnparseableOutput):
		appErr = ErrAIOutputUnparseable
	case errors.Is(err, saltedge.ErrMissingCredentials):
		appErr = ErrAggregatorNotConfigured
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		appErr = ErrInvalidToken
	case errors.Is(err, domain.ErrCustomerIDRequired):
		appErr = ErrCustomerIDRequired
	case errors.Is(err, domain.ErrConsentScopesRequired):
		appErr = ErrConsentScopesRequired
	case errors.Is(err, domain.ErrConnectionIDRequired):
		appErr = ErrConnectionIDRequired
	case errors.Is(err, domain.ErrAccountIDRequired):
		appErr = ErrAccountIDRequired
	case errors.Is(err, domain.ErrInvalidEmail):
		appErr = ErrInvalidEmail
	case errors.Is(err, domain.ErrDuplicateEmail):
		appErr = ErrAlreadyOnWaitlist
	case errors.Is(err, domain.ErrCaptchaRequired):
		appErr = ErrCaptchaRequired
	case errors.Is(err, domain.ErrCaptchaFailed):
		appErr = ErrCaptchaFailed
	case errors.Is(err, domain.ErrEmailDelivery):
		appErr = ErrEmailDelivery
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, details)
}

// upstreamError keeps a Salt Edge 404 a 404; every other upstream failure is
// a bad gateway. Only the error class and upstream status are echoed.
func upstreamError(apiErr *saltedge.APIError) (*AppError, any) {
	details := map[string]any{"upstream_status": apiErr.StatusCode}
	if apiErr.ErrorClass != "" {
		details["error_class"] = apiErr.ErrorClass
	}
	if apiErr.StatusCode == http.StatusNotFound {
		return ErrResourceNotFound, details
	}
	return ErrUpstream, details
}
