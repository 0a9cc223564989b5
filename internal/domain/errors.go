package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrCustomerIDRequired    = errors.New("customer_id is required")
	ErrConsentScopesRequired = errors.New("consent with scopes is required")
	ErrConnectionIDRequired  = errors.New("connection_id is required")
	ErrAccountIDRequired     = errors.New("account_id is required")
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrCaptchaRequired       = errors.New("captcha token is required")
	ErrCaptchaFailed         = errors.New("captcha verification failed")
	ErrEmailDelivery         = errors.New("email delivery failed")
)
