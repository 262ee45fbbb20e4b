package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// SessionClaims is the signed session payload; the user id travels in the sub claim
type SessionClaims struct {
	Phone         string `json:"phone,omitempty"`
	PhoneVerified bool   `json:"phone_verified,omitempty"`
	AuthProvider  string `json:"auth_provider,omitempty"`
	jwt.RegisteredClaims
}

// SessionIssuer establishes sessions and encodes them as HS256 tokens
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer creates a new session issuer
func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetClock replaces the time source
func (s *SessionIssuer) SetClock(now func() time.Time) {
	s.now = now
}

// TTL returns the lifetime of issued tokens
func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

// Establish builds the session for a user whose phone was just verified
func (s *SessionIssuer) Establish(userID uuid.UUID, phone string) PhoneVerified {
	return PhoneVerified{
		ID:           userID,
		PhoneNumber:  phone,
		AuthProvider: AuthProviderPhoneOTP,
	}
}

// Encode signs the session. Anonymous sessions cannot be encoded.
func (s *SessionIssuer) Encode(sess Session) (string, error) {
	if sess == nil || !sess.IsAuthenticated() {
		return "", ErrInvalidSession
	}

	now := s.now()
	claims := &SessionClaims{
		Phone:         sess.Phone(),
		PhoneVerified: sess.PhoneVerified(),
		AuthProvider:  string(sess.Provider()),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return tokenString, nil
}

// Decode verifies a token and rebuilds the session variant. On any failure it returns
// Anonymous together with an error wrapping ErrInvalidSession.
func (s *SessionIssuer) Decode(tokenString string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Anonymous{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return Anonymous{}, ErrInvalidSession
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return Anonymous{}, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}

	provider := AuthProvider(claims.AuthProvider)
	if claims.PhoneVerified && claims.Phone != "" {
		return PhoneVerified{ID: userID, PhoneNumber: claims.Phone, AuthProvider: provider}, nil
	}
	return Authenticated{ID: userID, AuthProvider: provider}, nil
}
