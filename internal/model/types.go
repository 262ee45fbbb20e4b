package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a customer identified by a verified phone number
type User struct {
	ID          uuid.UUID
	PhoneNumber string
	CreatedAt   time.Time
}

// OtpRecord represents one issued one-time code for a phone number.
// OTPHash holds the salted digest that is persisted; Code is the plaintext and
// is only populated on the record returned from issuing.
type OtpRecord struct {
	ID         uuid.UUID
	Phone      string
	Code       string
	OTPHash    string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidAt reports whether the record can still be used for verification at t.
func (r OtpRecord) ValidAt(t time.Time) bool {
	return r.ConsumedAt == nil && t.Before(r.ExpiresAt)
}

// Product is a catalog entry. Price is in minor currency units (paise).
type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       int64
	Image       string
	Category    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
