package auth

import "errors"

var (
	// ErrVerificationFailed covers a missing, mismatched, expired or already used code.
	// Callers must not be able to tell these cases apart.
	ErrVerificationFailed = errors.New("invalid or expired OTP")
	// ErrUnauthorized is the single admin gate failure.
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrInvalidPhone = errors.New("phone number is required")
	// ErrInvalidSession is returned when a session token cannot be encoded or decoded.
	ErrInvalidSession = errors.New("invalid session")
)
