package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanpay/scanpay-api/internal/captcha"
	"github.com/scanpay/scanpay-api/internal/domain"
	"github.com/scanpay/scanpay-api/internal/mailer"
)

type fakeWaitlistRepo struct {
	created *domain.WaitlistEntry
	err     error
}

func (f *fakeWaitlistRepo) Create(_ context.Context, entry *domain.WaitlistEntry) error {
	if f.err != nil {
		return f.err
	}
	entry.ID = uuid.New()
	f.created = entry
	return nil
}

type fakeCaptcha struct {
	result   captcha.Result
	err      error
	token    string
	remoteIP string
}

func (f *fakeCaptcha) Verify(_ context.Context, token, remoteIP string) (captcha.Result, error) {
	f.token = token
	f.remoteIP = remoteIP
	return f.result, f.err
}

type fakeMailer struct {
	enabled bool
	sent    []mailer.Message
	err     error
}

func (f *fakeMailer) Enabled() bool { return f.enabled }

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.example.co.uk", true},
		{"no-at-sign.example.com", false},
		{"user@", false},
		{"user@-bad.com", false},
		{strings.Repeat("a", 310) + "@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email[:min(len(tt.email), 20)], func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEmail(tt.email))
		})
	}
}

func TestWaitlist_Join(t *testing.T) {
	repo := &fakeWaitlistRepo{}
	verifier := &fakeCaptcha{result: captcha.Result{Success: true}}
	mail := &fakeMailer{enabled: true}
	svc := NewWaitlistService(repo, verifier, mail)

	entry, err := svc.Join(context.Background(), WaitlistInput{
		Email:          "  User@Example.COM ",
		UTMSource:      "twitter\x00",
		TurnstileToken: "tok",
		IPAddress:      "203.0.113.7",
	})
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", entry.Email)
	assert.Equal(t, "twitter", entry.UTMSource)
	assert.Equal(t, "203.0.113.7", verifier.remoteIP)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"user@example.com"}, mail.sent[0].To)
	assert.Contains(t, mail.sent[0].HTML, "user@example.com")
}

func TestWaitlist_JoinErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      WaitlistInput
		captcha *fakeCaptcha
		repoErr error
		wantErr error
	}{
		{
			name:    "invalid email",
			in:      WaitlistInput{Email: "nope", TurnstileToken: "tok"},
			captcha: &fakeCaptcha{result: captcha.Result{Success: true}},
			wantErr: domain.ErrInvalidEmail,
		},
		{
			name:    "missing token",
			in:      WaitlistInput{Email: "user@example.com"},
			captcha: &fakeCaptcha{result: captcha.Result{Success: true}},
			wantErr: domain.ErrCaptchaRequired,
		},
		{
			name:    "captcha rejected",
			in:      WaitlistInput{Email: "user@example.com", TurnstileToken: "tok"},
			captcha: &fakeCaptcha{result: captcha.Result{Reason: "bad"}},
			wantErr: domain.ErrCaptchaFailed,
		},
		{
			name:    "captcha unreachable",
			in:      WaitlistInput{Email: "user@example.com", TurnstileToken: "tok"},
			captcha: &fakeCaptcha{err: errors.New("dial tcp")},
			wantErr: domain.ErrCaptchaFailed,
		},
		{
			name:    "already listed",
			in:      WaitlistInput{Email: "user@example.com", TurnstileToken: "tok"},
			captcha: &fakeCaptcha{result: captcha.Result{Success: true}},
			repoErr: domain.ErrDuplicateEmail,
			wantErr: domain.ErrDuplicateEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mail := &fakeMailer{enabled: true}
			svc := NewWaitlistService(&fakeWaitlistRepo{err: tt.repoErr}, tt.captcha, mail)

			_, err := svc.Join(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, mail.sent)
		})
	}
}

func TestWaitlist_MailFailureDoesNotFailSignup(t *testing.T) {
	repo := &fakeWaitlistRepo{}
	mail := &fakeMailer{enabled: true, err: errors.New("resend down")}
	svc := NewWaitlistService(repo, &fakeCaptcha{result: captcha.Result{Success: true}}, mail)

	_, err := svc.Join(context.Background(), WaitlistInput{Email: "user@example.com", TurnstileToken: "tok"})
	require.NoError(t, err)
	assert.NotNil(t, repo.created)
}

func TestWaitlist_SkipsMailWhenDisabled(t *testing.T) {
	mail := &fakeMailer{enabled: false}
	svc := NewWaitlistService(&fakeWaitlistRepo{}, &fakeCaptcha{result: captcha.Result{Success: true}}, mail)

	_, err := svc.Join(context.Background(), WaitlistInput{Email: "user@example.com", TurnstileToken: "tok"})
	require.NoError(t, err)
	assert.Empty(t, mail.sent)
}
