package auth

import "crypto/subtle"

// AdminGate compares a request credential against the single configured admin secret
type AdminGate struct {
	secret []byte
}

// NewAdminGate creates a gate for secret. An empty secret denies everything.
func NewAdminGate(secret string) *AdminGate {
	return &AdminGate{secret: []byte(secret)}
}

// Check reports whether credential equals the configured secret
func (g *AdminGate) Check(credential string) bool {
	if len(g.secret) == 0 || credential == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), g.secret) == 1
}

// Require is Check for call sites that halt instead of branching
func (g *AdminGate) Require(credential string) error {
	if !g.Check(credential) {
		return ErrUnauthorized
	}
	return nil
}
