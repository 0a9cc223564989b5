package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrCustomerIDRequired      = &AppError{http.StatusBadRequest, "CUSTOMER_ID_REQUIRED", "Customer ID is required"}
	ErrConsentScopesRequired   = &AppError{http.StatusBadRequest, "CONSENT_SCOPES_REQUIRED", "Consent with scopes is required"}
	ErrConnectionIDRequired    = &AppError{http.StatusBadRequest, "CONNECTION_ID_REQUIRED", "Connection ID is required"}
	ErrAccountIDRequired       = &AppError{http.StatusBadRequest, "ACCOUNT_ID_REQUIRED", "Account ID is required"}
	ErrUpstream                = &AppError{http.StatusBadGateway, "UPSTREAM_ERROR", "Banking provider request failed"}
	ErrAggregatorNotConfigured = &AppError{http.StatusServiceUnavailable, "AGGREGATOR_NOT_CONFIGURED", "Banking provider is not configured"}
	ErrInvalidSignature        = &AppError{http.StatusUnauthorized, "INVALID_SIGNATURE", "Callback signature is invalid"}
	ErrCallbackFailed          = &AppError{http.StatusInternalServerError, "CALLBACK_PROCESSING_FAILED", "Failed to process callback"}

	ErrInvalidEmail        = &AppError{http.StatusBadRequest, "INVALID_EMAIL", "Invalid email format"}
	ErrAlreadyOnWaitlist   = &AppError{http.StatusConflict, "ALREADY_ON_WAITLIST", "You are already on the waitlist!"}
	ErrCaptchaRequired     = &AppError{http.StatusBadRequest, "CAPTCHA_REQUIRED", "Verification token is required"}
	ErrCaptchaFailed       = &AppError{http.StatusBadRequest, "CAPTCHA_FAILED", "reCAPTCHA verification failed. Please try again."}
	ErrVerificationFailed  = &AppError{http.StatusForbidden, "VERIFICATION_FAILED", "Invalid verification token"}
	ErrEmailDelivery       = &AppError{http.StatusInternalServerError, "EMAIL_DELIVERY_FAILED", "Failed to send message"}
	ErrAIOutputUnparseable = &AppError{http.StatusInternalServerError, "AI_OUTPUT_UNPARSEABLE", "Failed to parse AI response"}
)
