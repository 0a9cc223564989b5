package domain

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors a profile held by the hosted auth backend. It is upserted on
// every sign-in.
type User struct {
	ID            uuid.UUID
	Email         string
	FullName      string
	AvatarURL     string
	Provider      string
	EmailVerified bool
	LastSignIn    time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
