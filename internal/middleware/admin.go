package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	// AdminCookieName carries the admin credential
	AdminCookieName = "admin-token"
	// AdminLoginPath is where denied dashboard requests are sent
	AdminLoginPath = "/admin/login"
)

// AdminChecker is satisfied by auth.AdminGate
type AdminChecker interface {
	Check(credential string) bool
}

func adminCredential(r *http.Request) string {
	c, err := r.Cookie(AdminCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// AdminPageGate redirects requests without a valid admin cookie to the login path
// before the protected handler runs.
func AdminPageGate(gate AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Check(adminCredential(r)) {
				log.Debug().Str("path", r.URL.Path).Msg("admin gate: redirect")
				http.Redirect(w, r, AdminLoginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminAPIGate answers 401 for requests without a valid admin cookie
func AdminAPIGate(gate AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Check(adminCredential(r)) {
				log.Warn().Str("path", r.URL.Path).Str("method", r.Method).Msg("admin gate: unauthorized")
				respondWithError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
