package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-semnet/pkg/logging"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// ClaimsFromContext returns the claims stored by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// WithClaims returns ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// FailureFunc is told about every rejected request, e.g. to count it.
type FailureFunc func(r *http.Request, reason string)

// Middleware rejects requests without a valid bearer token and stores the
// claims of accepted ones in the request context.
func Middleware(v TokenValidator, logger logging.Logger, onFailure FailureFunc) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	reject := func(w http.ResponseWriter, r *http.Request, reason, message string) {
		if onFailure != nil {
			onFailure(r, reason)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("WWW-Authenticate", `Bearer realm="semnet"`)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   http.StatusText(http.StatusUnauthorized),
			"message": message,
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				reject(w, r, "missing_token", "Missing authentication (Bearer token required)")
				return
			}

			claims, err := v.ValidateToken(r.Context(), token)
			if err != nil {
				logger.Debug("token validation failed",
					logging.String("validator", v.Name()),
					logging.Path(r.URL.Path),
					logging.Error(err),
				)
				reason := "invalid_token"
				if errors.Is(err, ErrExpiredToken) {
					reason = "expired_token"
				}
				reject(w, r, reason, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole wraps next so only callers with role get through. It must run
// behind Middleware.
func RequireRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		if claims.Role != role && claims.Role != RoleAdmin {
			http.Error(w, "Insufficient role", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
