package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/scanpay/scanpay-api/internal/domain"
	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/service"
)

type waitlistService interface {
	Join(ctx context.Context, in service.WaitlistInput) (*domain.WaitlistEntry, error)
}

type WaitlistHandler struct {
	waitlist waitlistService
}

func NewWaitlistHandler(waitlist waitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist}
}

type joinWaitlistRequest struct {
	Email          string `json:"email"`
	UTMSource      string `json:"utm_source"`
	TurnstileToken string `json:"turnstileToken"`
}

func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req joinWaitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	_, err := h.waitlist.Join(r.Context(), service.WaitlistInput{
		Email:          req.Email,
		UTMSource:      req.UTMSource,
		TurnstileToken: req.TurnstileToken,
		IPAddress:      forwardedFor(r),
	})
	switch {
	case err == nil:
		RespondSuccess(w, http.StatusOK, nil)
	case errors.Is(err, domain.ErrCaptchaFailed):
		RespondAppError(w, ErrVerificationFailed, nil)
	default:
		log.Warn("waitlist signup failed", "error", err)
		RespondDomainError(w, err)
	}
}

// forwardedFor returns the raw X-Forwarded-For header, or "unknown".
func forwardedFor(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); v != "" {
		return v
	}
	return "unknown"
}

// clientIP is the first X-Forwarded-For hop, falling back to the peer address.
func clientIP(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		first, _, _ := strings.Cut(v, ",")
		return strings.TrimSpace(first)
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
