package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/service"
)

const contactSentMessage = "Your message has been sent. Thank you for getting in touch!"

type contactService interface {
	Submit(ctx context.Context, in service.ContactInput) error
}

type ContactHandler struct {
	contact contactService
}

func NewContactHandler(contact contactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

type contactRequest struct {
	Email          string `json:"email"`
	Message        string `json:"message"`
	RecaptchaToken string `json:"recaptchaToken"`
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	err := h.contact.Submit(r.Context(), service.ContactInput{
		Email:          req.Email,
		Message:        req.Message,
		RecaptchaToken: req.RecaptchaToken,
		RemoteIP:       clientIP(r),
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("contact submission failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondMessage(w, http.StatusOK, contactSentMessage)
}
