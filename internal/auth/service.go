package auth

import (
	"context"
	"fmt"

	"github.com/shivcommunication/storefront/internal/model"
	"github.com/shivcommunication/storefront/internal/repo"
)

// AuthService orchestrates authentication operations
type AuthService struct {
	otpProvider OtpProvider
	sessions    *SessionIssuer
	userRepo    repo.UserRepo
}

// NewAuthService creates a new auth service
func NewAuthService(otpProvider OtpProvider, sessions *SessionIssuer, userRepo repo.UserRepo) *AuthService {
	return &AuthService{
		otpProvider: otpProvider,
		sessions:    sessions,
		userRepo:    userRepo,
	}
}

// VerifyOTPAndEstablishSession verifies the code, gets or creates the user for the phone and
// returns the phone-verified session together with its signed token.
func (s *AuthService) VerifyOTPAndEstablishSession(ctx context.Context, phone, code string) (*model.User, PhoneVerified, string, error) {
	if err := s.otpProvider.Verify(ctx, phone, code); err != nil {
		return nil, PhoneVerified{}, "", err
	}

	user, err := s.userRepo.GetOrCreateByPhone(ctx, phone)
	if err != nil {
		return nil, PhoneVerified{}, "", fmt.Errorf("failed to get or create user: %w", err)
	}

	sess := s.sessions.Establish(user.ID, user.PhoneNumber)
	token, err := s.sessions.Encode(sess)
	if err != nil {
		return nil, PhoneVerified{}, "", fmt.Errorf("failed to encode session: %w", err)
	}

	return &user, sess, token, nil
}
