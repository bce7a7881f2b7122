package middleware

import (
	"net/http"

	goSession "github.com/fisioonhand/goSession"
)

// RequireSession serves next only while m is authenticated. Until the manager
// has finished loading it answers 503, so callers never act on the
// initializing state; afterwards a signed-out manager yields 401.
func RequireSession(m *goSession.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				writeError(w, http.StatusUnauthorized, "no session manager")
				return
			}

			snap := m.Snapshot()
			switch snap.Status {
			case goSession.StatusInitializing:
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, "session loading")
				return
			case goSession.StatusUnauthenticated:
				writeError(w, http.StatusUnauthorized, "sign in required")
				return
			}

			ctx := goSession.WithSnapshot(goSession.WithManager(r.Context(), m), snap)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
