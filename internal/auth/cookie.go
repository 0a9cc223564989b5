package auth

import (
	"net/http"
	"time"
)

const (
	SessionCookie      = "scanpay_session"
	CodeVerifierCookie = "scanpay_code_verifier"
)

// SessionCookieFor wraps an access token in the cookie the session
// middleware reads back.
func SessionCookieFor(token string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie deletes the named cookie on the client.
func ExpiredCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
