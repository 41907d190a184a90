package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kestrelhq/quotagate/apierr"
)

type contextKey string

// APIKeyContextKey stores the Bearer-extracted API key in request context.
const APIKeyContextKey contextKey = "api_key"

const maxAPIKeyBytes = 256

// AuthMiddleware extracts and validates the Bearer API key. The core
// never mints or revokes keys (spec.md §3): a syntactically valid,
// non-empty, bounded-length Bearer token is accepted outright and
// passed downstream for the Configuration Resolver to price.
type AuthMiddleware struct {
	headerKey string
}

// NewAuthMiddleware creates an authentication middleware reading from
// headerKey (defaults to "Authorization").
func NewAuthMiddleware(headerKey string) *AuthMiddleware {
	if headerKey == "" {
		headerKey = "Authorization"
	}
	return &AuthMiddleware{headerKey: headerKey}
}

// Handler returns the middleware handler function.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(am.headerKey)
		if header == "" {
			apierr.Write(w, apierr.New(apierr.Unauthorized, "authorization header required"))
			return
		}

		apiKey := header
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			apiKey = header[len("bearer "):]
		}

		if apiKey == "" || len(apiKey) > maxAPIKeyBytes {
			apierr.Write(w, apierr.New(apierr.Unauthorized, "malformed bearer token"))
			return
		}

		ctx := context.WithValue(r.Context(), APIKeyContextKey, apiKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAPIKey extracts the API key from the request context.
func GetAPIKey(ctx context.Context) string {
	if v, ok := ctx.Value(APIKeyContextKey).(string); ok {
		return v
	}
	return ""
}
