package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shivcommunication/storefront/internal/auth"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionCookieName carries the signed session token
const SessionCookieName = "session"

// SessionDecoder turns a session token into a Session
type SessionDecoder interface {
	Decode(token string) (auth.Session, error)
}

// LoadSession decodes the session cookie and attaches the result to the request context.
// Requests without a valid cookie carry auth.Anonymous.
func LoadSession(decoder SessionDecoder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess auth.Session = auth.Anonymous{}
			if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
				if decoded, err := decoder.Decode(c.Value); err == nil {
					sess = decoded
				}
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireSession rejects anonymous requests with 401
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetSession(r.Context()).IsAuthenticated() {
			respondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePhoneVerified rejects anonymous requests with 401 and unverified sessions with 403
func RequirePhoneVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r.Context())
		if !sess.IsAuthenticated() {
			respondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !sess.PhoneVerified() {
			respondWithError(w, http.StatusForbidden, "phone verification required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithSession returns a copy of ctx carrying sess
func WithSession(ctx context.Context, sess auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// GetSession returns the session attached by LoadSession, or auth.Anonymous
func GetSession(ctx context.Context) auth.Session {
	if sess, ok := ctx.Value(sessionKey).(auth.Session); ok && sess != nil {
		return sess
	}
	return auth.Anonymous{}
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
