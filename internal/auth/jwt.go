package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionAudience = "authenticated"
	clockLeeway     = 30 * time.Second
)

// Claims is what the API trusts about a session without a database round trip.
type Claims struct {
	UserID    uuid.UUID
	Email     string
	Role      string
	Provider  string
	FullName  string
	AvatarURL string
	ExpiresAt time.Time
}

// accessToken is the layout of the hosted auth backend's access tokens.
type accessToken struct {
	jwt.RegisteredClaims
	Email        string       `json:"email"`
	Role         string       `json:"role"`
	AppMetadata  AppMetadata  `json:"app_metadata"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// Verifier checks HS256 session tokens against the backend's shared secret.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: clockLeeway}
}

func (v *Verifier) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &accessToken{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("Verify: %w", err)
	}

	at, ok := parsed.Claims.(*accessToken)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("Verify: invalid token claims")
	}

	userID, err := uuid.Parse(at.Subject)
	if err != nil {
		return nil, fmt.Errorf("Verify: invalid sub in token: %w", err)
	}

	fullName := at.UserMetadata.FullName
	if fullName == "" {
		fullName = at.UserMetadata.Name
	}
	return &Claims{
		UserID:    userID,
		Email:     at.Email,
		Role:      at.Role,
		Provider:  at.AppMetadata.Provider,
		FullName:  fullName,
		AvatarURL: at.UserMetadata.AvatarURL,
		ExpiresAt: at.ExpiresAt.Time,
	}, nil
}

// SignToken mints a token the way the auth backend does. The API never
// issues sessions; tests and local tooling do.
func SignToken(secret string, c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	role := c.Role
	if role == "" {
		role = sessionAudience
	}

	at := accessToken{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID.String(),
			Audience:  jwt.ClaimStrings{sessionAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email:        c.Email,
		Role:         role,
		AppMetadata:  AppMetadata{Provider: c.Provider},
		UserMetadata: UserMetadata{FullName: c.FullName, AvatarURL: c.AvatarURL},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, at).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("SignToken: %w", err)
	}
	return signed, nil
}
