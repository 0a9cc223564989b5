package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scanpay/scanpay-api/internal/logging"
)

const DefaultEndpoint = "https://api.replicate.com/v1"

var ErrNotConfigured = errors.New("inference: no API token configured")

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = strings.TrimRight(endpoint, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// Client runs predictions against the Replicate HTTP API.
type Client struct {
	token        string
	endpoint     string
	httpClient   *http.Client
	pollInterval time.Duration
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:        token,
		endpoint:     DefaultEndpoint,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (p *prediction) terminal() bool {
	switch p.Status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// Run creates a prediction for model ("owner/name") and blocks until it
// finishes. Streamed token output is joined into one string.
func (c *Client) Run(ctx context.Context, model string, input map[string]any) (string, error) {
	if c.token == "" {
		return "", ErrNotConfigured
	}
	log := logging.FromContext(ctx)

	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return "", fmt.Errorf("Run: marshal: %w", err)
	}

	start := time.Now()
	p, err := c.call(ctx, http.MethodPost, c.endpoint+"/models/"+model+"/predictions", body)
	if err != nil {
		return "", fmt.Errorf("Run: %w", err)
	}

	for !p.terminal() {
		if p.URLs.Get == "" {
			return "", fmt.Errorf("Run: prediction %s has no poll url", p.ID)
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("Run: %w", ctx.Err())
		case <-time.After(c.pollInterval):
		}
		if p, err = c.call(ctx, http.MethodGet, p.URLs.Get, nil); err != nil {
			return "", fmt.Errorf("Run: poll: %w", err)
		}
	}

	log.Info("prediction finished",
		"model", model,
		"prediction_id", p.ID,
		"status", p.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if p.Status != "succeeded" {
		return "", fmt.Errorf("Run: prediction %s %s: %v", p.ID, p.Status, p.Error)
	}
	return outputText(p.Output), nil
}

func (c *Client) call(ctx context.Context, method, url string, body []byte) (*prediction, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Prefer", "wait")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var p prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &p, nil
}

// outputText flattens the output field, which is a string, a list of token
// strings, or arbitrary JSON.
func outputText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, "")
	}
	return string(raw)
}
