package auth

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

	"github.com/google/uuid"
)

var ErrBackendNotConfigured = errors.New("auth: backend url not configured")

// Session is what the backend returns from a successful code exchange.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type User struct {
	ID               uuid.UUID    `json:"id"`
	Email            string       `json:"email"`
	EmailConfirmedAt *string      `json:"email_confirmed_at"`
	LastSignInAt     *string      `json:"last_sign_in_at"`
	UserMetadata     UserMetadata `json:"user_metadata"`
	AppMetadata      AppMetadata  `json:"app_metadata"`
}

type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// AppMetadata.Provider is the identity provider the user signed in with.
type AppMetadata struct {
	Provider string `json:"provider,omitempty"`
}

// BackendClient talks to the hosted auth backend's REST API.
type BackendClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

func NewBackendClient(baseURL, anonKey string) *BackendClient {
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type pkceExchange struct {
	AuthCode     string `json:"auth_code"`
	CodeVerifier string `json:"code_verifier"`
}

func (c *BackendClient) ExchangeCode(ctx context.Context, code, codeVerifier string) (*Session, error) {
	body, err := json.Marshal(pkceExchange{AuthCode: code, CodeVerifier: codeVerifier})
	if err != nil {
		return nil, fmt.Errorf("ExchangeCode: marshal: %w", err)
	}

	resp, err := c.post(ctx, "/auth/v1/token?grant_type=pkce", "", body)
	if err != nil {
		return nil, fmt.Errorf("ExchangeCode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ExchangeCode: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("ExchangeCode: decode: %w", err)
	}
	return &s, nil
}

func (c *BackendClient) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.post(ctx, "/auth/v1/logout", accessToken, nil)
	if err != nil {
		return fmt.Errorf("SignOut: %w", err)
	}
	defer resp.Body.Close()

	// 401 means the session is already gone.
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("SignOut: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *BackendClient) post(ctx context.Context, path, bearer string, body []byte) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, ErrBackendNotConfigured
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	return resp, nil
}
