package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	RecaptchaEndpoint = "https://www.google.com/recaptcha/api/siteverify"
	TurnstileEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
)

var ErrNotConfigured = errors.New("captcha: secret key not configured")

// Result is the outcome of a token check. Reason is set when Success is false.
type Result struct {
	Success bool
	Score   float64
	Reason  string
}

type Option func(*verifier)

func WithEndpoint(endpoint string) Option {
	return func(v *verifier) { v.endpoint = endpoint }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(v *verifier) { v.httpClient = hc }
}

type verifier struct {
	secret     string
	endpoint   string
	httpClient *http.Client
}

func newVerifier(secret, endpoint string, opts []Option) verifier {
	v := verifier{
		secret:     secret,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(&v)
	}
	return v
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

func (v verifier) siteVerify(ctx context.Context, token, remoteIP string) (*siteVerifyResponse, error) {
	if v.secret == "" {
		return nil, ErrNotConfigured
	}

	form := url.Values{
		"secret":   {v.secret},
		"response": {strings.TrimSpace(token)},
	}
	if ip := strings.TrimSpace(remoteIP); ip != "" {
		form.Set("remoteip", ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("siteVerify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siteVerify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("siteVerify: unexpected status %d", resp.StatusCode)
	}

	var out siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("siteVerify: decode: %w", err)
	}
	return &out, nil
}

// RecaptchaVerifier checks reCAPTCHA v3 tokens. A token passes when the
// provider accepts it, the score reaches the minimum and the action matches.
type RecaptchaVerifier struct {
	verifier
	minScore float64
	action   string
}

func NewRecaptchaVerifier(secret string, minScore float64, action string, opts ...Option) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		verifier: newVerifier(secret, RecaptchaEndpoint, opts),
		minScore: minScore,
		action:   action,
	}
}

func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (Result, error) {
	out, err := v.siteVerify(ctx, token, remoteIP)
	if err != nil {
		return Result{}, fmt.Errorf("RecaptchaVerifier.Verify: %w", err)
	}

	switch {
	case !out.Success:
		return Result{Reason: "verification failed: " + strings.Join(out.ErrorCodes, ",")}, nil
	case out.Score < v.minScore:
		return Result{Score: out.Score, Reason: fmt.Sprintf("score %.2f below %.2f", out.Score, v.minScore)}, nil
	case v.action != "" && out.Action != v.action:
		return Result{Score: out.Score, Reason: "action mismatch: " + out.Action}, nil
	}
	return Result{Success: true, Score: out.Score}, nil
}

// TurnstileVerifier checks Cloudflare Turnstile tokens.
type TurnstileVerifier struct {
	verifier
}

func NewTurnstileVerifier(secret string, opts ...Option) *TurnstileVerifier {
	return &TurnstileVerifier{verifier: newVerifier(secret, TurnstileEndpoint, opts)}
}

func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (Result, error) {
	out, err := v.siteVerify(ctx, token, remoteIP)
	if err != nil {
		return Result{}, fmt.Errorf("TurnstileVerifier.Verify: %w", err)
	}
	if !out.Success {
		return Result{Reason: "verification failed: " + strings.Join(out.ErrorCodes, ",")}, nil
	}
	return Result{Success: true}, nil
}
