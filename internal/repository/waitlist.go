package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/scanpay/scanpay-api/internal/domain"
)

type WaitlistRepository struct {
	db *sql.DB
}

func NewWaitlistRepository(db *sql.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// Create inserts the entry and fills in ID and CreatedAt.
func (r *WaitlistRepository) Create(ctx context.Context, entry *domain.WaitlistEntry) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO waitlist (email, ip_address, utm_source)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		entry.Email, entry.IPAddress, entry.UTMSource,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateEmail)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *WaitlistRepository) GetByEmail(ctx context.Context, email string) (*domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, ip_address, utm_source, created_at FROM waitlist WHERE email = $1`, email,
	).Scan(&e.ID, &e.Email, &e.IPAddress, &e.UTMSource, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByEmail: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByEmail: %w", err)
	}
	return &e, nil
}
