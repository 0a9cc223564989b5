package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/scanpay/scanpay-api/internal/inference"
	"github.com/scanpay/scanpay-api/internal/logging"
)

const DefaultSubscriptionModel = "ibm-granite/granite-3.3-8b-instruct"

type EmailSummary struct {
	ID            string `json:"id"`
	From          string `json:"from"`
	Subject       string `json:"subject"`
	Date          string `json:"date"`
	Snippet       string `json:"snippet"`
	Service       string `json:"service,omitempty"`
	Amount        any    `json:"amount,omitempty"`
	RecurringType string `json:"recurringType,omitempty"`
}

type Subscription struct {
	ID          string `json:"id"`
	Service     string `json:"service"`
	Amount      string `json:"amount"`
	RenewalDate string `json:"renewalDate"`
	Frequency   string `json:"frequency"`
	Category    string `json:"category"`
}

// UnparseableOutputError carries the raw model text back to the caller.
type UnparseableOutputError struct {
	Raw string
}

func (e *UnparseableOutputError) Error() string {
	return inference.ErrUnparseableOutput.Error()
}

func (e *UnparseableOutputError) Unwrap() error {
	return inference.ErrUnparseableOutput
}

type SubscriptionService struct {
	runner modelRunner
	model  string
	now    func() time.Time
}

func NewSubscriptionService(runner modelRunner, model string) *SubscriptionService {
	if model == "" {
		model = DefaultSubscriptionModel
	}
	return &SubscriptionService{runner: runner, model: model, now: time.Now}
}

func (s *SubscriptionService) Extract(ctx context.Context, emails []EmailSummary) ([]Subscription, error) {
	emailsJSON, err := json.MarshalIndent(emails, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("Extract: marshal emails: %w", err)
	}

	input := map[string]any{
		"prompt":            subscriptionPrompt(string(emailsJSON)),
		"top_k":             50,
		"top_p":             0.9,
		"max_tokens":        2048,
		"min_tokens":        0,
		"temperature":       0.2,
		"presence_penalty":  0,
		"frequency_penalty": 0,
	}

	output, err := s.runner.Run(ctx, s.model, input)
	if err != nil {
		return nil, fmt.Errorf("Extract: %w", err)
	}

	items, err := inference.ParseJSONArray(output)
	if err != nil {
		if errors.Is(err, inference.ErrUnparseableOutput) {
			logging.FromContext(ctx).Warn("model output unparseable", "model", s.model, "output_len", len(output))
			return nil, &UnparseableOutputError{Raw: output}
		}
		return nil, fmt.Errorf("Extract: %w", err)
	}

	today := s.now().UTC().Format("2006-01-02")
	subs := make([]Subscription, 0, len(items))
	for _, item := range items {
		subs = append(subs, Subscription{
			ID:          stringField(item, "id", ""),
			Service:     stringField(item, "service", "Unknown Service"),
			Amount:      stringField(item, "amount", "$0.00"),
			RenewalDate: stringField(item, "renewalDate", today),
			Frequency:   stringField(item, "frequency", "unknown"),
			Category:    stringField(item, "category", "other"),
		})
	}
	return subs, nil
}

func stringField(m map[string]any, key, def string) string {
	switch v := m[key].(type) {
	case nil:
		return def
	case string:
		if v == "" {
			return def
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

func subscriptionPrompt(emailsJSON string) string {
	return `You are an AI assistant that analyzes subscription emails. Based on the following email data,
extract and complete subscription information for each email.

For each email, provide the following information:
- id: The original email ID
- service: The subscription service provider name (e.g., Netflix, Spotify, Apple)
- amount: The subscription amount with currency symbol
- renewalDate: The next renewal date in YYYY-MM-DD format
- frequency: The renewal frequency (monthly, yearly, etc.)
- category: The category of the subscription (entertainment, productivity, etc.)

Email data:
` + emailsJSON + `

Respond with ONLY a valid JSON array of subscription objects WITHOUT any explanation or extra text. Format:
[
  {
    "id": "email_id",
    "service": "Service Name",
    "amount": "$9.99",
    "renewalDate": "YYYY-MM-DD",
    "frequency": "monthly",
    "category": "entertainment"
  }
]`
}
