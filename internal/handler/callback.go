package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/service"
)

type callbackProcessor interface {
	Process(ctx context.Context, payload service.CallbackPayload) (service.Callback, error)
}

type signatureVerifier interface {
	Verify(signature string, body []byte) error
}

type CallbackHandler struct {
	processor callbackProcessor
	verifier  signatureVerifier
}

func NewCallbackHandler(processor callbackProcessor, verifier signatureVerifier) *CallbackHandler {
	return &CallbackHandler{processor: processor, verifier: verifier}
}

type callbackAck struct {
	Received bool `json:"received"`
}

// Receive answers 200 for every callback it could handle and 500 otherwise,
// so the aggregator redelivers.
func (h *CallbackHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read callback body", "error", err)
		RespondAppError(w, ErrCallbackFailed, nil)
		return
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(r.Header.Get("Signature"), body); err != nil {
			log.Warn("callback signature rejected", "error", err)
			RespondAppError(w, ErrInvalidSignature, nil)
			return
		}
	}

	var payload service.CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to parse callback", "error", err)
		RespondAppError(w, ErrCallbackFailed, nil)
		return
	}

	// The sync runs to completion even if the sender hangs up.
	cb, err := h.processor.Process(context.WithoutCancel(r.Context()), payload)
	if err != nil {
		log.Error("callback processing failed",
			"kind", cb.Kind,
			"connection_id", payload.Data.ConnectionID,
			"error", err,
		)
		RespondAppError(w, ErrCallbackFailed, nil)
		return
	}

	RespondJSON(w, http.StatusOK, callbackAck{Received: true})
}
