package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/querysage/querysage/internal/api/response"
	"github.com/querysage/querysage/internal/config"
)

// Auth validates bearer tokens against the statically configured API keys.
// Keys are provisioned through the environment, not an admin API; the set
// is fixed for the life of the process.
type Auth struct {
	keys []config.APIKey
}

func NewAuth(keys []config.APIKey) *Auth {
	return &Auth{keys: keys}
}

// Authenticate validates the Bearer token against each configured key hash
// and sets the key name and scopes in the request context. With no keys
// configured (development), every request passes with full scopes.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.keys) == 0 {
			ctx := setKeyName(r.Context(), "anonymous")
			ctx = setScopes(ctx, []string{"read", "write", "admin"})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		for _, key := range a.keys {
			if bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(rawKey)) == nil {
				ctx := setKeyName(r.Context(), key.Name)
				ctx = setScopes(ctx, key.Scopes)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		response.Error(w, http.StatusUnauthorized,
			"INVALID_TOKEN", "Invalid API key", nil)
	})
}

// RequireScope returns middleware that checks whether the authenticated
// API key has the specified scope.
func (a *Auth) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, s := range getScopes(r) {
				if s == scope {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, http.StatusForbidden,
				"FORBIDDEN", "Insufficient permissions", nil)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
