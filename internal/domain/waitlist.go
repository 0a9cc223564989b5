package domain

import (
	"time"

	"github.com/google/uuid"
)

type WaitlistEntry struct {
	ID        uuid.UUID
	Email     string
	IPAddress string
	UTMSource string
	CreatedAt time.Time
}
