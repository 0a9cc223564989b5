package saltedge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/scanpay/scanpay-api/internal/logging"
)

const DefaultBaseURL = "https://www.saltedge.com/api/v6"

type Config struct {
	AppID       string
	Secret      string
	BaseURL     string
	Environment Environment
}

// RequestObserver receives one observation per completed round trip.
type RequestObserver interface {
	ObserveRequest(method string, status int, duration time.Duration)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// Client is safe for concurrent use. It never retries and never follows
// pagination cursors.
type Client struct {
	appID       string
	secret      string
	baseURL     string
	environment Environment
	signer      *Signer
	httpClient  *http.Client
	now         func() time.Time
	observer    RequestObserver
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.AppID == "" || cfg.Secret == "" {
		return nil, ErrMissingCredentials
	}

	c := &Client{
		appID:       cfg.AppID,
		secret:      cfg.Secret,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		environment: cfg.Environment,
		signer:      NewSigner(cfg.Secret),
		httpClient:  &http.Client{},
		now:         time.Now,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.environment == "" {
		c.environment = EnvironmentSandbox
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Environment() Environment {
	return c.environment
}

func (c *Client) headers(method, fullURL string, body []byte) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	h.Set("App-id", c.appID)
	h.Set("Secret", c.secret)

	// Sandbox traffic authenticates with the static headers alone.
	if c.environment == EnvironmentLive {
		exp := expiresAt(c.now())
		h.Set("Expires-at", strconv.FormatInt(exp, 10))
		h.Set("Signature", c.signer.Sign(method, fullURL, exp, body))
	}
	return h
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	log := logging.FromContext(ctx)
	fullURL := c.baseURL + endpoint

	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s %s: marshal: %w", method, endpoint, err)
		}
		body = b
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", method, endpoint, err)
	}
	req.Header = c.headers(method, fullURL, body)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: send: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	if c.observer != nil {
		c.observer.ObserveRequest(method, resp.StatusCode, elapsed)
	}
	log.Debug("saltedge response received",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, resp.Status, respBody)
		log.Warn("saltedge request failed",
			"method", method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"error_class", apiErr.ErrorClass,
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, endpoint, err)
	}
	return nil
}

type dataEnvelope struct {
	Data any `json:"data"`
}

func (c *Client) CreateCustomer(ctx context.Context, identifier string) (*CustomerResponse, error) {
	var resp CustomerResponse
	body := dataEnvelope{Data: map[string]string{"identifier": identifier}}
	if err := c.do(ctx, http.MethodPost, "/customers", body, &resp); err != nil {
		return nil, fmt.Errorf("CreateCustomer: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListCustomers(ctx context.Context) (*CustomerListResponse, error) {
	var resp CustomerListResponse
	if err := c.do(ctx, http.MethodGet, "/customers", nil, &resp); err != nil {
		return nil, fmt.Errorf("ListCustomers: %w", err)
	}
	return &resp, nil
}

func (c *Client) ShowCustomer(ctx context.Context, customerID string) (*CustomerResponse, error) {
	var resp CustomerResponse
	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(customerID), nil, &resp); err != nil {
		return nil, fmt.Errorf("ShowCustomer: %w", err)
	}
	return &resp, nil
}

func (c *Client) CreateConnectSession(ctx context.Context, req ConnectSessionRequest) (*ConnectSessionResponse, error) {
	var resp ConnectSessionResponse
	if err := c.do(ctx, http.MethodPost, "/connections/connect", dataEnvelope{Data: req}, &resp); err != nil {
		return nil, fmt.Errorf("CreateConnectSession: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListConnections(ctx context.Context, customerID string) (*ConnectionListResponse, error) {
	var resp ConnectionListResponse
	q := url.Values{"customer_id": {customerID}}
	if err := c.do(ctx, http.MethodGet, "/connections?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("ListConnections: %w", err)
	}
	return &resp, nil
}

func (c *Client) ShowConnection(ctx context.Context, connectionID string) (*ConnectionResponse, error) {
	var resp ConnectionResponse
	if err := c.do(ctx, http.MethodGet, "/connections/"+url.PathEscape(connectionID), nil, &resp); err != nil {
		return nil, fmt.Errorf("ShowConnection: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListAccounts(ctx context.Context, connectionID string) (*AccountListResponse, error) {
	var resp AccountListResponse
	q := url.Values{"connection_id": {connectionID}}
	if err := c.do(ctx, http.MethodGet, "/accounts?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListTransactions(ctx context.Context, connectionID, accountID string, opts TransactionQuery) (*TransactionListResponse, error) {
	q := url.Values{
		"connection_id": {connectionID},
		"account_id":    {accountID},
	}
	if opts.FromID != "" {
		q.Set("from_id", opts.FromID)
	}
	if opts.FromDate != "" {
		q.Set("from_date", opts.FromDate)
	}
	if opts.ToDate != "" {
		q.Set("to_date", opts.ToDate)
	}

	var resp TransactionListResponse
	if err := c.do(ctx, http.MethodGet, "/transactions?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return &resp, nil
}

func (c *Client) RefreshConnection(ctx context.Context, connectionID string, opts RefreshOptions) (*RefreshResponse, error) {
	var resp RefreshResponse
	endpoint := "/connections/" + url.PathEscape(connectionID) + "/refresh"
	if err := c.do(ctx, http.MethodPost, endpoint, dataEnvelope{Data: opts}, &resp); err != nil {
		return nil, fmt.Errorf("RefreshConnection: %w", err)
	}
	return &resp, nil
}

func (c *Client) RemoveConnection(ctx context.Context, connectionID string) (*RemoveResponse, error) {
	var resp RemoveResponse
	if err := c.do(ctx, http.MethodDelete, "/connections/"+url.PathEscape(connectionID), nil, &resp); err != nil {
		return nil, fmt.Errorf("RemoveConnection: %w", err)
	}
	return &resp, nil
}
