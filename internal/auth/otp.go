package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shivcommunication/storefront/internal/logging"
	"github.com/shivcommunication/storefront/internal/model"
	"github.com/shivcommunication/storefront/internal/repo"
	"github.com/shivcommunication/storefront/internal/sms"
)

const (
	defaultOtpLength     = 6
	defaultOtpTTL        = 5 * time.Minute
	defaultMaxRequests   = 3
	defaultRequestWindow = 10 * time.Minute

	// DevOTPCode is the fixed code issued when dev mode is on
	DevOTPCode = "123456"
)

// OtpConfig holds the tunables of the OTP service. Zero values take the defaults,
// except MaxRequests < 0 which disables per-phone rate limiting.
type OtpConfig struct {
	Length        int
	TTL           time.Duration
	MaxRequests   int
	RequestWindow time.Duration
	Salt          string
	DevMode       bool
}

// OtpService issues and verifies one-time codes backed by an OtpRepo
type OtpService struct {
	otpRepo repo.OtpRepo
	sender  sms.Sender
	cfg     OtpConfig
	now     func() time.Time
}

// NewOtpService creates a new OTP service
func NewOtpService(otpRepo repo.OtpRepo, sender sms.Sender, cfg OtpConfig) *OtpService {
	if cfg.Length <= 0 {
		cfg.Length = defaultOtpLength
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultOtpTTL
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = defaultMaxRequests
	}
	if cfg.RequestWindow <= 0 {
		cfg.RequestWindow = defaultRequestWindow
	}
	return &OtpService{
		otpRepo: otpRepo,
		sender:  sender,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetClock replaces the time source
func (s *OtpService) SetClock(now func() time.Time) {
	s.now = now
}

// DevMode reports whether the fixed development code is issued
func (s *OtpService) DevMode() bool {
	return s.cfg.DevMode
}

// Issue creates a new code for phone, stores its digest with an expiry and hands the
// plaintext to the SMS sender. Earlier outstanding codes for the phone stay valid.
// The returned record carries the plaintext in Code.
func (s *OtpService) Issue(ctx context.Context, phone string) (model.OtpRecord, error) {
	if phone == "" {
		return model.OtpRecord{}, ErrInvalidPhone
	}

	now := s.now()
	if s.cfg.MaxRequests > 0 {
		count, err := s.otpRepo.CountRecentRequests(ctx, phone, now.Add(-s.cfg.RequestWindow))
		if err != nil {
			return model.OtpRecord{}, fmt.Errorf("rate limit check: %w", err)
		}
		if count >= s.cfg.MaxRequests {
			return model.OtpRecord{}, ErrRateLimited
		}
	}

	code := DevOTPCode
	if !s.cfg.DevMode {
		var err error
		code, err = generateOTPCode(s.cfg.Length)
		if err != nil {
			return model.OtpRecord{}, err
		}
	}

	rec, err := s.otpRepo.Create(ctx, phone, hashOTPHex(phone, code, s.cfg.Salt), now.Add(s.cfg.TTL))
	if err != nil {
		return model.OtpRecord{}, fmt.Errorf("create otp record: %w", err)
	}
	rec.Code = code

	message := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.cfg.TTL.Minutes()))
	if err := s.sender.Send(ctx, phone, message); err != nil {
		return model.OtpRecord{}, fmt.Errorf("deliver otp: %w", err)
	}
	logIssued(phone, rec)
	return rec, nil
}

// Verify consumes the newest unexpired, unconsumed record matching phone and code.
// Every mismatch yields ErrVerificationFailed; only store failures produce another error.
func (s *OtpService) Verify(ctx context.Context, phone, code string) error {
	if phone == "" || code == "" {
		return ErrVerificationFailed
	}

	_, err := s.otpRepo.ConsumeMatching(ctx, phone, hashOTPHex(phone, code, s.cfg.Salt), s.now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrVerificationFailed
		}
		return fmt.Errorf("verify otp: %w", err)
	}
	return nil
}

// RunCleanup deletes expired records every interval until ctx is done. Records are kept for one
// request window past expiry so they still count towards the per-phone issue limit.
func (s *OtpService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupOnce(ctx)
		}
	}
}

func (s *OtpService) cleanupOnce(ctx context.Context) {
	n, err := s.otpRepo.DeleteExpired(ctx, s.now().Add(-s.cfg.RequestWindow))
	if err != nil {
		log.Warn().Err(err).Msg("otp cleanup failed")
		return
	}
	if n > 0 {
		log.Debug().Int64("deleted", n).Msg("otp cleanup")
	}
}

func generateOTPCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// hashOTPHex returns SHA-256(phone:code:salt) as hex for storage
func hashOTPHex(phone, code, salt string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", phone, code, salt)))
	return hex.EncodeToString(hash[:])
}

func logIssued(phone string, rec model.OtpRecord) {
	log.Info().
		Str("phone", logging.MaskPhone(phone)).
		Str("otp_id", rec.ID.String()).
		Time("expires_at", rec.ExpiresAt).
		Msg("otp issued")
}
