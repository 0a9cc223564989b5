package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/scanpay/scanpay-api/internal/domain"
)

const userColumns = `id, email, full_name, avatar_url, provider, email_verified, last_sign_in, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert records a sign-in. created_at is kept from the first time the user
// was seen.
func (r *UserRepository) Upsert(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, full_name, avatar_url, provider, email_verified, last_sign_in, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			avatar_url = EXCLUDED.avatar_url,
			provider = EXCLUDED.provider,
			email_verified = EXCLUDED.email_verified,
			last_sign_in = EXCLUDED.last_sign_in,
			updated_at = now()
		 RETURNING created_at, updated_at`,
		u.ID, u.Email, u.FullName, u.AvatarURL, u.Provider, u.EmailVerified, u.LastSignIn,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return u, nil
}

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	err := s.Scan(
		&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.Provider,
		&u.EmailVerified, &u.LastSignIn, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
