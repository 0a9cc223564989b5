package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/scanpay/scanpay-api/internal/auth"
	"github.com/scanpay/scanpay-api/internal/domain"
	"github.com/scanpay/scanpay-api/internal/logging"
)

const (
	appPath    = "/app"
	signInPath = "/signin"

	defaultSessionTTL = time.Hour
)

type authBackend interface {
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*auth.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type userStore interface {
	Upsert(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type AuthHandler struct {
	backend       authBackend
	users         userStore
	secureCookies bool
	now           func() time.Time
}

func NewAuthHandler(backend authBackend, users userStore, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		backend:       backend,
		users:         users,
		secureCookies: secureCookies,
		now:           time.Now,
	}
}

func signInError(reason string) string {
	return signInPath + "?error=" + reason
}

// Callback finishes the hosted sign-in: it trades the code for a session,
// mirrors the profile into the users table and drops the session cookie.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	code := r.URL.Query().Get("code")
	if code == "" {
		log.Warn("auth callback without code")
		http.Redirect(w, r, signInError("auth_missing_code"), http.StatusFound)
		return
	}

	var verifier string
	if c, err := r.Cookie(auth.CodeVerifierCookie); err == nil {
		verifier = c.Value
	}

	session, err := h.backend.ExchangeCode(r.Context(), code, verifier)
	if err != nil {
		log.Error("code exchange failed", "error", err)
		reason := "auth_callback_error"
		if errors.Is(err, auth.ErrBackendNotConfigured) {
			reason = "auth_callback_unexpected_error"
		}
		http.Redirect(w, r, signInError(reason), http.StatusFound)
		return
	}

	user := toDomainUser(session.User, h.now().UTC())
	if err := h.users.Upsert(r.Context(), user); err != nil {
		log.Error("user upsert failed", "user_id", user.ID, "error", err)
	}

	ttl := time.Duration(session.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	http.SetCookie(w, auth.SessionCookieFor(session.AccessToken, ttl, h.secureCookies))
	http.SetCookie(w, auth.ExpiredCookie(auth.CodeVerifierCookie, h.secureCookies))

	log.Info("user signed in", "user_id", user.ID, "provider", user.Provider)
	http.Redirect(w, r, appPath, http.StatusFound)
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if c, err := r.Cookie(auth.SessionCookie); err == nil && c.Value != "" {
		if err := h.backend.SignOut(r.Context(), c.Value); err != nil {
			log.Warn("backend sign out failed", "error", err)
		}
	}

	http.SetCookie(w, auth.ExpiredCookie(auth.SessionCookie, h.secureCookies))
	http.Redirect(w, r, signInPath, http.StatusSeeOther)
}

type userDTO struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name,omitempty"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Provider      string     `json:"provider,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	LastSignIn    *time.Time `json:"last_sign_in,omitempty"`
}

// CurrentUser returns the signed-in user. The stored profile is optional;
// without it the token claims alone are returned.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	dto := userDTO{
		ID:        claims.UserID,
		Email:     claims.Email,
		FullName:  claims.FullName,
		AvatarURL: claims.AvatarURL,
		Provider:  claims.Provider,
	}

	u, err := h.users.GetByID(r.Context(), claims.UserID)
	switch {
	case err == nil:
		dto.Email = u.Email
		dto.FullName = u.FullName
		dto.AvatarURL = u.AvatarURL
		dto.Provider = u.Provider
		dto.EmailVerified = u.EmailVerified
		dto.LastSignIn = &u.LastSignIn
	case errors.Is(err, domain.ErrNotFound):
	default:
		logging.FromContext(r.Context()).Error("load user failed", "user_id", claims.UserID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, dto)
}

func toDomainUser(u auth.User, now time.Time) *domain.User {
	provider := u.AppMetadata.Provider
	if provider == "" {
		provider = "email"
	}
	fullName := u.UserMetadata.FullName
	if fullName == "" {
		fullName = u.UserMetadata.Name
	}
	return &domain.User{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      fullName,
		AvatarURL:     u.UserMetadata.AvatarURL,
		Provider:      provider,
		EmailVerified: u.EmailConfirmedAt != nil && *u.EmailConfirmedAt != "",
		LastSignIn:    now,
	}
}
