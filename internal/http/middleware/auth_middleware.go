package middleware

import (
	"context"
	"net/http"

	"github.com/facegate-io/facegate/internal/http/response"
	"github.com/facegate-io/facegate/internal/observability"
	"github.com/facegate-io/facegate/internal/security"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

// AuthMiddleware requires a valid session assertion on the request, from the
// access_token cookie or an Authorization bearer header. It guards routes
// that need a live assertion but not a completed biometric check.
func AuthMiddleware(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			source := "cookie"
			if security.GetCookie(r, security.AssertionCookieName) == "" {
				source = "header"
			}
			raw := security.AssertionFromRequest(r)
			if raw == "" {
				observability.RecordAssertionValidation(r.Context(), "missing", source)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session assertion", nil)
				return
			}
			claims, err := jwtMgr.ParseAssertion(raw)
			if err != nil {
				observability.RecordAssertionValidation(r.Context(), "rejected", source)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session assertion", nil)
				return
			}
			observability.RecordAssertionValidation(r.Context(), "accepted", source)
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.AssertionClaims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.AssertionClaims)
	return c, ok
}
