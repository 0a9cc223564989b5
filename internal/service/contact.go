package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/scanpay/scanpay-api/internal/domain"
	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/mailer"
)

const contactSubject = "New message from the ScanPay contact form"

var contactEmailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type ContactInput struct {
	Email          string
	Message        string
	RecaptchaToken string
	RemoteIP       string
}

type ContactService struct {
	captcha captchaVerifier
	mail    emailSender
	to      string
	now     func() time.Time
}

func NewContactService(captcha captchaVerifier, mail emailSender, to string) *ContactService {
	return &ContactService{captcha: captcha, mail: mail, to: to, now: time.Now}
}

func (s *ContactService) Submit(ctx context.Context, in ContactInput) error {
	log := logging.FromContext(ctx)

	if in.Email == "" || in.Message == "" || in.RecaptchaToken == "" {
		return fmt.Errorf("Submit: %w", domain.ErrInvalidRequest)
	}
	if !contactEmailRe.MatchString(in.Email) {
		return fmt.Errorf("Submit: %w", domain.ErrInvalidEmail)
	}

	res, err := s.captcha.Verify(ctx, in.RecaptchaToken, in.RemoteIP)
	if err != nil {
		log.Warn("recaptcha verification error", "error", err)
		return fmt.Errorf("Submit: %w", domain.ErrCaptchaFailed)
	}
	if !res.Success {
		log.Info("recaptcha token rejected", "reason", res.Reason, "score", res.Score)
		return fmt.Errorf("Submit: %w", domain.ErrCaptchaFailed)
	}

	data := mailer.ContactData{Email: in.Email, Message: in.Message, SentAt: s.now()}
	html, err := mailer.RenderContact(data)
	if err != nil {
		return fmt.Errorf("Submit: %w", err)
	}

	err = s.mail.Send(ctx, mailer.Message{
		To:      []string{s.to},
		Subject: contactSubject,
		HTML:    html,
		Text:    mailer.ContactText(data),
		ReplyTo: strings.TrimSpace(in.Email),
	})
	if err != nil {
		log.Error("contact email failed", "error", err)
		return fmt.Errorf("Submit: %w: %w", domain.ErrEmailDelivery, err)
	}
	return nil
}
