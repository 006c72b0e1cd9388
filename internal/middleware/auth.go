package middleware

import (
	"net/http"

	"FarmMonitorAPI/internal/auth"
	"FarmMonitorAPI/internal/logger"
)

// anonymous is the identity used when authentication is disabled.
var anonymous = auth.Identity{Subject: "anonymous", Name: "Farm Operator", Role: auth.RoleAdmin, Anonymous: true}

// TokenParser validates a bearer token.
type TokenParser interface {
	Parse(token string) (auth.Identity, error)
}

// Authenticate resolves the caller from the Authorization header and stores
// it in the request context. A nil parser disables authentication and every
// request runs as an anonymous admin.
func Authenticate(parser TokenParser, log *logger.Logger) func(http.Handler) http.Handler {
	log = log.WithComponent("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if parser == nil {
				next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), anonymous)))
				return
			}

			id, err := parser.Parse(auth.BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				log.Debug("Rejected %s %s: %v", r.Method, r.URL.Path, err)
				w.Header().Set("WWW-Authenticate", `Bearer realm="farm-monitor"`)
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole wraps a handler so that only callers holding at least min may
// reach it. It must run after Authenticate.
func RequireRole(min auth.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !id.Role.Allows(min) {
			writeJSONError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r)
	}
}
