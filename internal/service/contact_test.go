package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanpay/scanpay-api/internal/captcha"
	"github.com/scanpay/scanpay-api/internal/domain"
)

func TestContact_Submit(t *testing.T) {
	mail := &fakeMailer{enabled: true}
	verifier := &fakeCaptcha{result: captcha.Result{Success: true, Score: 0.9}}
	svc := NewContactService(verifier, mail, "support@scanpay.test")
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	err := svc.Submit(context.Background(), ContactInput{
		Email:          "customer@example.com",
		Message:        "Hello\nI have a question",
		RecaptchaToken: "tok",
	})
	require.NoError(t, err)

	require.Len(t, mail.sent, 1)
	msg := mail.sent[0]
	assert.Equal(t, []string{"support@scanpay.test"}, msg.To)
	assert.Equal(t, "customer@example.com", msg.ReplyTo)
	assert.Contains(t, msg.HTML, "Hello<br>")
	assert.Contains(t, msg.Text, "I have a question")
	assert.Equal(t, "tok", verifier.token)
}

func TestContact_SubmitErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      ContactInput
		captcha *fakeCaptcha
		mailErr error
		wantErr error
	}{
		{
			name:    "missing message",
			in:      ContactInput{Email: "a@b.co", RecaptchaToken: "tok"},
			captcha: &fakeCaptcha{result: captcha.Result{Success: true}},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "bad email",
			in:      ContactInput{Email: "a@b", Message: "hi", RecaptchaToken: "tok"},
			captcha: &fakeCaptcha{result: captcha.Result{Success: true}},
			wantErr: domain.ErrInvalidEmail,
		},
		{
			name:    "low score",
			in:      ContactInput{Email: "a@b.co", Message: "hi", RecaptchaToken: "tok"},
			captcha: &fakeCaptcha{result: captcha.Result{Score: 0.1, Reason: "score 0.10 below 0.50"}},
			wantErr: domain.ErrCaptchaFailed,
		},
		{
			name:    "mail failure",
			in:      ContactInput{Email: "a@b.co", Message: "hi", RecaptchaToken: "tok"},
			captcha: &fakeCaptcha{result: captcha.Result{Success: true}},
			mailErr: errors.New("resend down"),
			wantErr: domain.ErrEmailDelivery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewContactService(tt.captcha, &fakeMailer{enabled: true, err: tt.mailErr}, "support@scanpay.test")
			err := svc.Submit(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
