package auth

import (
	"context"

	"github.com/shivcommunication/storefront/internal/model"
)

// OtpProvider defines the interface for OTP operations
type OtpProvider interface {
	Issue(ctx context.Context, phone string) (model.OtpRecord, error)
	Verify(ctx context.Context, phone, code string) error
}
