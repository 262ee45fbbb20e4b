package auth

import "github.com/google/uuid"

// AuthProvider tags how a session was established
type AuthProvider string

const AuthProviderPhoneOTP AuthProvider = "phone_otp"

// Session is one of Anonymous, Authenticated or PhoneVerified.
// The unexported marker keeps the set closed.
type Session interface {
	IsAuthenticated() bool
	UserID() uuid.UUID
	Phone() string
	PhoneVerified() bool
	Provider() AuthProvider
	session()
}

// Anonymous is a request without a valid session
type Anonymous struct{}

func (Anonymous) IsAuthenticated() bool  { return false }
func (Anonymous) UserID() uuid.UUID      { return uuid.Nil }
func (Anonymous) Phone() string          { return "" }
func (Anonymous) PhoneVerified() bool    { return false }
func (Anonymous) Provider() AuthProvider { return "" }
func (Anonymous) session()               {}

// Authenticated carries an identity whose phone has not been verified
type Authenticated struct {
	ID           uuid.UUID
	AuthProvider AuthProvider
}

func (s Authenticated) IsAuthenticated() bool  { return true }
func (s Authenticated) UserID() uuid.UUID      { return s.ID }
func (s Authenticated) Phone() string          { return "" }
func (s Authenticated) PhoneVerified() bool    { return false }
func (s Authenticated) Provider() AuthProvider { return s.AuthProvider }
func (s Authenticated) session()               {}

// PhoneVerified is only produced after a successful OTP verification for PhoneNumber
type PhoneVerified struct {
	ID           uuid.UUID
	PhoneNumber  string
	AuthProvider AuthProvider
}

func (s PhoneVerified) IsAuthenticated() bool  { return true }
func (s PhoneVerified) UserID() uuid.UUID      { return s.ID }
func (s PhoneVerified) Phone() string          { return s.PhoneNumber }
func (s PhoneVerified) PhoneVerified() bool    { return true }
func (s PhoneVerified) Provider() AuthProvider { return s.AuthProvider }
func (s PhoneVerified) session()               {}

// Payload is the session shape exposed to API consumers
type Payload struct {
	ID            string `json:"id"`
	Phone         string `json:"phone,omitempty"`
	PhoneVerified bool   `json:"phoneVerified,omitempty"`
	AuthProvider  string `json:"authProvider,omitempty"`
}

// PayloadOf flattens a session for JSON responses
func PayloadOf(s Session) Payload {
	if s == nil || !s.IsAuthenticated() {
		return Payload{}
	}
	return Payload{
		ID:            s.UserID().String(),
		Phone:         s.Phone(),
		PhoneVerified: s.PhoneVerified(),
		AuthProvider:  string(s.Provider()),
	}
}
