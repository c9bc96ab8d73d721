package httpapi

import (
	"net/http"
	"strings"

	"github.com/umbral-esperanza/choir-console-api/internal/app/session"
	"github.com/umbral-esperanza/choir-console-api/internal/app/state"
)

// NewIdentityMiddleware resolves X-Identity-Token on every in-scope request
// and stores the identity in request context. There is no cryptographic
// authentication: the token is the shared login convention, re-resolved per
// request against the current choir and user tables.
func NewIdentityMiddleware(gate *session.Gate, st *state.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health and login are reachable without an identity.
			if r.URL.Path == "/healthz" || r.URL.Path == "/login" {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimSpace(r.Header.Get("X-Identity-Token"))
			if token == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing X-Identity-Token header", nil)
				return
			}

			u, err := gate.ResolveIdentity(token, st.Choirs(), st.Users())
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unknown identity token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), u)))
		})
	}
}
