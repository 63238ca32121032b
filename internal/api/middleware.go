// Package api implements the catalog REST API using chi.
package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iplantc/decat/internal/auth"
)

// Auth modes accepted by AuthMiddleware.
const (
	AuthDisabled = "disabled"
	AuthToken    = "token"
	AuthJWT      = "jwt"
)

// AuthConfig selects how requests are authenticated.
type AuthConfig struct {
	Mode     string
	Token    string
	Verifier *auth.Verifier
}

// AuthMiddleware returns middleware enforcing cfg.
// In token mode the request must carry "Authorization: Bearer <token>".
// In jwt mode the bearer token must verify and its claims are placed on the
// request context.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			switch cfg.Mode {
			case AuthToken:
				if !strings.HasPrefix(header, "Bearer ") || !tokenMatches(strings.TrimPrefix(header, "Bearer "), cfg.Token) {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
			case AuthJWT:
				if cfg.Verifier == nil || !strings.HasPrefix(header, "Bearer ") {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				claims, err := cfg.Verifier.Verify(header)
				if err != nil {
					slog.Debug("token rejected", slog.String("error", err.Error()))
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				r = r.WithContext(auth.WithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenMatches(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
