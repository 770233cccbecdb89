package middleware

import (
	"context"
	"net/http"

	"github.com/diagnosis/luxsuv-reservations/pkg/auth"
	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
	"github.com/diagnosis/luxsuv-reservations/pkg/response"
)

type ctxKey int

const claimsKey ctxKey = iota

// TokenVerifier is satisfied by *auth.Sessions.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate rejects requests without a valid session token, read from
// the Authentication cookie or a bearer header. The caller's id is put on
// the context for handlers and logging.
func Authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.Verify(auth.TokenFromRequest(r))
			if err != nil {
				logger.DebugContext(r.Context(), "Session rejected", "error", err)
				response.Error(w, r, auth.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom returns the claims Authenticate stored on ctx.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// UserID returns the authenticated caller's id, or "" outside Authenticate.
func UserID(ctx context.Context) string {
	if claims, ok := ClaimsFrom(ctx); ok {
		return claims.UserID
	}
	return ""
}

// WithClaims stores claims on ctx the way Authenticate does. Used by tests.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, logger.UserIDKey, claims.UserID)
	return context.WithValue(ctx, claimsKey, claims)
}
