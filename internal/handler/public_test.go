package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanpay/scanpay-api/internal/domain"
	"github.com/scanpay/scanpay-api/internal/service"
)

type fakeWaitlist struct {
	got service.WaitlistInput
	err error
}

func (f *fakeWaitlist) Join(_ context.Context, in service.WaitlistInput) (*domain.WaitlistEntry, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.WaitlistEntry{Email: in.Email}, nil
}

func TestWaitlistJoin(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "joined", body: `{"email":"a@b.co","turnstileToken":"tok"}`, wantStatus: http.StatusOK},
		{name: "bad json", body: `{`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "invalid email", body: `{}`, err: fmt.Errorf("Join: %w", domain.ErrInvalidEmail), wantStatus: http.StatusBadRequest, wantCode: "INVALID_EMAIL"},
		{name: "missing token", body: `{}`, err: domain.ErrCaptchaRequired, wantStatus: http.StatusBadRequest, wantCode: "CAPTCHA_REQUIRED"},
		{name: "captcha rejected", body: `{}`, err: fmt.Errorf("Join: %w", domain.ErrCaptchaFailed), wantStatus: http.StatusForbidden, wantCode: "VERIFICATION_FAILED"},
		{name: "duplicate", body: `{}`, err: fmt.Errorf("Join: %w", domain.ErrDuplicateEmail), wantStatus: http.StatusConflict, wantCode: "ALREADY_ON_WAITLIST"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewWaitlistHandler(&fakeWaitlist{err: tc.err})

			rr := httptest.NewRecorder()
			h.Join(rr, httptest.NewRequest(http.MethodPost, "/api/waitlist", strings.NewReader(tc.body)))

			assert.Equal(t, tc.wantStatus, rr.Code)
			resp := decodeResponse(t, rr)
			if tc.wantCode == "" {
				assert.True(t, resp.Success)
				return
			}
			assert.Equal(t, tc.wantCode, resp.Code)
		})
	}
}

func TestWaitlistJoin_DuplicateMessage(t *testing.T) {
	h := NewWaitlistHandler(&fakeWaitlist{err: domain.ErrDuplicateEmail})

	rr := httptest.NewRecorder()
	h.Join(rr, httptest.NewRequest(http.MethodPost, "/api/waitlist", strings.NewReader(`{}`)))

	assert.Equal(t, "You are already on the waitlist!", decodeResponse(t, rr).Message)
}

func TestWaitlistJoin_ForwardsInput(t *testing.T) {
	svc := &fakeWaitlist{}
	h := NewWaitlistHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/waitlist",
		strings.NewReader(`{"email":"a@b.co","utm_source":"newsletter","turnstileToken":"tok"}`))
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rr := httptest.NewRecorder()
	h.Join(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.WaitlistInput{
		Email:          "a@b.co",
		UTMSource:      "newsletter",
		TurnstileToken: "tok",
		IPAddress:      "203.0.113.7, 10.0.0.1",
	}, svc.got)
}

func TestForwardedFor_Unknown(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/waitlist", nil)
	assert.Equal(t, "unknown", forwardedFor(req))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"first forwarded hop", "203.0.113.7, 10.0.0.1", "192.0.2.1:1234", "203.0.113.7"},
		{"peer address", "", "192.0.2.1:1234", "192.0.2.1"},
		{"ipv6 peer", "", "[2001:db8::1]:443", "2001:db8::1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			assert.Equal(t, tc.want, clientIP(req))
		})
	}
}

type fakeContact struct {
	got service.ContactInput
	err error
}

func (f *fakeContact) Submit(_ context.Context, in service.ContactInput) error {
	f.got = in
	return f.err
}

func TestContactSubmit(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "sent", wantStatus: http.StatusOK},
		{name: "missing fields", err: domain.ErrInvalidRequest, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "bad email", err: domain.ErrInvalidEmail, wantStatus: http.StatusBadRequest, wantCode: "INVALID_EMAIL"},
		{name: "captcha rejected", err: domain.ErrCaptchaFailed, wantStatus: http.StatusBadRequest, wantCode: "CAPTCHA_FAILED"},
		{name: "send failed", err: fmt.Errorf("Submit: %w", domain.ErrEmailDelivery), wantStatus: http.StatusInternalServerError, wantCode: "EMAIL_DELIVERY_FAILED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeContact{err: tc.err}
			h := NewContactHandler(svc)

			body := `{"email":"a@b.co","message":"hello","recaptchaToken":"tok"}`
			rr := httptest.NewRecorder()
			h.Submit(rr, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body)))

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Equal(t, "tok", svc.got.RecaptchaToken)
			resp := decodeResponse(t, rr)
			if tc.wantCode == "" {
				assert.True(t, resp.Success)
				assert.Equal(t, contactSentMessage, resp.Message)
				return
			}
			assert.False(t, resp.Success)
			assert.Equal(t, tc.wantCode, resp.Code)
		})
	}
}

type fakeExtractor struct {
	got  []service.EmailSummary
	subs []service.Subscription
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, emails []service.EmailSummary) ([]service.Subscription, error) {
	f.got = emails
	return f.subs, f.err
}

func TestGetSubscriptions(t *testing.T) {
	svc := &fakeExtractor{subs: []service.Subscription{{ID: "e1", Service: "Netflix", Amount: "$15.49"}}}
	h := NewSubscriptionHandler(svc)

	body := `{"emails":[{"id":"e1","from":"info@netflix.com","subject":"Your receipt","date":"2024-03-01","snippet":"$15.49"}]}`
	rr := httptest.NewRecorder()
	h.GetSubscriptions(rr, httptest.NewRequest(http.MethodPost, "/api/ai/get-subscriptions", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, svc.got, 1)
	assert.Equal(t, "info@netflix.com", svc.got[0].From)
	assert.Contains(t, rr.Body.String(), `"service":"Netflix"`)
}

func TestGetSubscriptions_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "emails missing", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "emails not an array", body: `{"emails":"x"}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{
			name:       "unparseable output",
			body:       `{"emails":[]}`,
			err:        fmt.Errorf("Extract: %w", &service.UnparseableOutputError{Raw: "I found none"}),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "AI_OUTPUT_UNPARSEABLE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewSubscriptionHandler(&fakeExtractor{err: tc.err})

			rr := httptest.NewRecorder()
			h.GetSubscriptions(rr, httptest.NewRequest(http.MethodPost, "/api/ai/get-subscriptions", strings.NewReader(tc.body)))

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Equal(t, tc.wantCode, decodeResponse(t, rr).Code)
		})
	}
}
