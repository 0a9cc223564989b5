package middleware

import (
	"net/http"
	"strings"

	"github.com/scanpay/scanpay-api/internal/auth"
	"github.com/scanpay/scanpay-api/internal/handler"
	"github.com/scanpay/scanpay-api/internal/logging"
)

type tokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Auth accepts a session token from the Authorization header or, failing
// that, from the session cookie set at sign-in.
func Auth(verifier tokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, appErr := sessionToken(r)
			if appErr != nil {
				handler.RespondAppError(w, appErr, nil)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logging.FromContext(r.Context()).Debug("session token rejected", "error", err)
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithClaims(r.Context(), claims)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) (string, *handler.AppError) {
	header := r.Header.Get("Authorization")
	if header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return "", handler.ErrInvalidToken
		}
		return token, nil
	}

	c, err := r.Cookie(auth.SessionCookie)
	if err != nil || c.Value == "" {
		return "", handler.ErrMissingToken
	}
	return c.Value, nil
}
