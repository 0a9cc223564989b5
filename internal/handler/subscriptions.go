package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/service"
)

type subscriptionExtractor interface {
	Extract(ctx context.Context, emails []service.EmailSummary) ([]service.Subscription, error)
}

type SubscriptionHandler struct {
	subscriptions subscriptionExtractor
}

func NewSubscriptionHandler(subscriptions subscriptionExtractor) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

type getSubscriptionsRequest struct {
	Emails []service.EmailSummary `json:"emails"`
}

type subscriptionsResponse struct {
	Subscriptions []service.Subscription `json:"subscriptions"`
}

func (h *SubscriptionHandler) GetSubscriptions(w http.ResponseWriter, r *http.Request) {
	var req getSubscriptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Emails == nil {
		RespondValidationError(w, []FieldError{{Field: "emails", Message: "must be an array"}})
		return
	}

	subs, err := h.subscriptions.Extract(r.Context(), req.Emails)
	if err != nil {
		logging.FromContext(r.Context()).Error("subscription extraction failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, subscriptionsResponse{Subscriptions: subs})
}
