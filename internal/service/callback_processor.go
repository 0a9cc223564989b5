package service

import (
	"context"
	"fmt"

	"github.com/scanpay/scanpay-api/internal/logging"
)

const stageFinish = "finish"

type CallbackKind string

const (
	CallbackSuccess CallbackKind = "success"
	CallbackFailure CallbackKind = "failure"
	CallbackNotify  CallbackKind = "notify"
)

type CallbackData struct {
	ConnectionID string         `json:"connection_id"`
	CustomerID   string         `json:"customer_id"`
	Stage        string         `json:"stage"`
	ErrorClass   string         `json:"error_class,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

type CallbackMeta struct {
	Version string `json:"version"`
	Time    string `json:"time"`
}

// CallbackPayload is the raw body the aggregator posts.
type CallbackPayload struct {
	Data CallbackData `json:"data"`
	Meta CallbackMeta `json:"meta"`
}

// Callback is a payload narrowed to exactly one kind. ErrorClass and
// ErrorMessage are set only for CallbackFailure.
type Callback struct {
	Kind         CallbackKind
	ConnectionID string
	CustomerID   string
	Stage        string
	ErrorClass   string
	ErrorMessage string
	CustomFields map[string]any
	Meta         CallbackMeta
}

// ClassifyCallback checks for an error first, then for the finish stage.
// A finish callback that also carries an error is a failure.
func ClassifyCallback(p CallbackPayload) Callback {
	cb := Callback{
		ConnectionID: p.Data.ConnectionID,
		CustomerID:   p.Data.CustomerID,
		Stage:        p.Data.Stage,
		CustomFields: p.Data.CustomFields,
		Meta:         p.Meta,
	}

	switch {
	case p.Data.ErrorClass != "" && p.Data.ErrorMessage != "":
		cb.Kind = CallbackFailure
		cb.ErrorClass = p.Data.ErrorClass
		cb.ErrorMessage = p.Data.ErrorMessage
	case p.Data.Stage == stageFinish:
		cb.Kind = CallbackSuccess
	default:
		cb.Kind = CallbackNotify
	}
	return cb
}

type callbackMetrics interface {
	ObserveCallback(kind string)
}

type CallbackProcessor struct {
	sync    transactionSyncer
	metrics callbackMetrics
}

func NewCallbackProcessor(sync transactionSyncer, metrics callbackMetrics) *CallbackProcessor {
	return &CallbackProcessor{sync: sync, metrics: metrics}
}

// Process handles one delivery. Only success callbacks trigger a sync. The
// returned error means the delivery should be retried by the sender.
func (p *CallbackProcessor) Process(ctx context.Context, payload CallbackPayload) (Callback, error) {
	cb := ClassifyCallback(payload)
	log := logging.FromContext(ctx).With(
		"kind", cb.Kind,
		"connection_id", cb.ConnectionID,
		"customer_id", cb.CustomerID,
		"stage", cb.Stage,
	)

	if p.metrics != nil {
		p.metrics.ObserveCallback(string(cb.Kind))
	}

	switch cb.Kind {
	case CallbackFailure:
		log.Warn("connection failed",
			"error_class", cb.ErrorClass,
			"error_message", cb.ErrorMessage,
		)
		return cb, nil
	case CallbackNotify:
		log.Info("connection progress")
		return cb, nil
	}

	log.Info("connection finished, syncing transactions")
	result, err := p.sync.Sync(ctx, cb.ConnectionID, CallbackLookback)
	if err != nil {
		return cb, fmt.Errorf("Process: %w", err)
	}
	if len(result.Errors) > 0 {
		log.Warn("sync finished with account errors", "failed_accounts", len(result.Errors))
	}
	return cb, nil
}
