package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/scanpay/scanpay-api/internal/domain"
	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/mailer"
)

const (
	MaxEmailLength = 320
	welcomeSubject = "Welcome to the ScanPay waitlist!"
)

var (
	waitlistEmailRe = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")
	dbControlChars  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F-\x{9F}]`)
)

type WaitlistInput struct {
	Email          string
	UTMSource      string
	TurnstileToken string
	IPAddress      string
}

type WaitlistService struct {
	repo    waitlistRepository
	captcha captchaVerifier
	mail    emailSender
}

func NewWaitlistService(repo waitlistRepository, captcha captchaVerifier, mail emailSender) *WaitlistService {
	return &WaitlistService{repo: repo, captcha: captcha, mail: mail}
}

// ValidEmail applies the RFC 5322 address pattern and the length cap.
func ValidEmail(email string) bool {
	return len(email) <= MaxEmailLength && waitlistEmailRe.MatchString(email)
}

func (s *WaitlistService) Join(ctx context.Context, in WaitlistInput) (*domain.WaitlistEntry, error) {
	log := logging.FromContext(ctx)

	email := strings.TrimSpace(in.Email)
	if !ValidEmail(email) {
		return nil, fmt.Errorf("Join: %w", domain.ErrInvalidEmail)
	}
	if strings.TrimSpace(in.TurnstileToken) == "" {
		return nil, fmt.Errorf("Join: %w", domain.ErrCaptchaRequired)
	}

	res, err := s.captcha.Verify(ctx, in.TurnstileToken, in.IPAddress)
	if err != nil {
		log.Warn("turnstile verification error", "error", err)
		return nil, fmt.Errorf("Join: %w", domain.ErrCaptchaFailed)
	}
	if !res.Success {
		log.Info("turnstile token rejected", "reason", res.Reason)
		return nil, fmt.Errorf("Join: %w", domain.ErrCaptchaFailed)
	}

	entry := &domain.WaitlistEntry{
		Email:     sanitizeForDB(strings.ToLower(email)),
		IPAddress: sanitizeForDB(in.IPAddress),
		UTMSource: sanitizeForDB(in.UTMSource),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("Join: %w", err)
	}
	log.Info("waitlist signup", "waitlist_id", entry.ID, "utm_source", entry.UTMSource)

	if s.mail != nil && s.mail.Enabled() {
		s.sendWelcome(ctx, entry.Email)
	}
	return entry, nil
}

// The signup is already stored; a failed welcome email is only logged.
func (s *WaitlistService) sendWelcome(ctx context.Context, email string) {
	log := logging.FromContext(ctx)

	html, err := mailer.RenderWelcome(mailer.WelcomeData{Email: email})
	if err != nil {
		log.Error("render welcome email", "error", err)
		return
	}
	err = s.mail.Send(ctx, mailer.Message{
		To:      []string{email},
		Subject: welcomeSubject,
		HTML:    html,
	})
	if err != nil && !errors.Is(err, mailer.ErrDisabled) {
		log.Error("welcome email failed", "error", err)
	}
}

func sanitizeForDB(s string) string {
	return strings.TrimSpace(dbControlChars.ReplaceAllString(s, ""))
}
