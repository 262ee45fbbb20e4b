package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shivcommunication/storefront/internal/repo"
)

const testPhone = "+15551230000"

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, phone, message string) error {
	args := m.Called(ctx, phone, message)
	return args.Error(0)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestOtpService(t *testing.T, cfg OtpConfig) (*OtpService, *repo.MemoryOtpRepo, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)}
	store := repo.NewMemoryOtpRepo()
	store.SetClock(clock.Now)

	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	if cfg.Salt == "" {
		cfg.Salt = "test-salt"
	}
	svc := NewOtpService(store, sender, cfg)
	svc.SetClock(clock.Now)
	return svc, store, clock
}

func TestHashOTPHex_consistency(t *testing.T) {
	h1 := hashOTPHex("+49123", "123456", "test-salt")
	h2 := hashOTPHex("+49123", "123456", "test-salt")
	assert.Equal(t, h1, h2, "hash should be deterministic")

	decoded, err := hex.DecodeString(h1)
	require.NoError(t, err, "hash should be valid hex")
	assert.Len(t, decoded, 32)
}

func TestHashOTPHex_differentInputsDifferentHash(t *testing.T) {
	h1 := hashOTPHex("+49123", "123456", "salt")
	h2 := hashOTPHex("+49124", "123456", "salt")
	h3 := hashOTPHex("+49123", "654321", "salt")
	h4 := hashOTPHex("+49123", "123456", "other")
	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.NotEqual(t, h2, h3)
	assert.NotEqual(t, h1, h4)
}

func TestGenerateOTPCode(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code, err := generateOTPCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "code %q must be numeric", code)
		}
	}
}

func TestOtpService_IssueThenVerify(t *testing.T) {
	svc, store, _ := newTestOtpService(t, OtpConfig{})
	ctx := context.Background()

	rec, err := svc.Issue(ctx, testPhone)
	require.NoError(t, err)
	assert.Len(t, rec.Code, 6)
	assert.Equal(t, testPhone, rec.Phone)
	assert.NotEqual(t, rec.Code, rec.OTPHash, "plaintext must not be stored")
	assert.Equal(t, 1, store.Len())

	assert.NoError(t, svc.Verify(ctx, testPhone, rec.Code))
}

func TestOtpService_Scenario(t *testing.T) {
	ctx := context.Background()

	t.Run("within ttl", func(t *testing.T) {
		svc, store, clock := newTestOtpService(t, OtpConfig{TTL: 5 * time.Minute})
		_, err := store.Create(ctx, testPhone, hashOTPHex(testPhone, "482193", "test-salt"), clock.Now().Add(5*time.Minute))
		require.NoError(t, err)

		clock.Advance(time.Minute)
		assert.ErrorIs(t, svc.Verify(ctx, testPhone, "000000"), ErrVerificationFailed)
		assert.NoError(t, svc.Verify(ctx, testPhone, "482193"))
	})

	t.Run("after expiry", func(t *testing.T) {
		svc, store, clock := newTestOtpService(t, OtpConfig{TTL: 5 * time.Minute})
		_, err := store.Create(ctx, testPhone, hashOTPHex(testPhone, "482193", "test-salt"), clock.Now().Add(5*time.Minute))
		require.NoError(t, err)

		clock.Advance(6 * time.Minute)
		assert.ErrorIs(t, svc.Verify(ctx, testPhone, "482193"), ErrVerificationFailed)
	})

	t.Run("exactly at expiry", func(t *testing.T) {
		svc, store, clock := newTestOtpService(t, OtpConfig{TTL: 5 * time.Minute})
		_, err := store.Create(ctx, testPhone, hashOTPHex(testPhone, "482193", "test-salt"), clock.Now().Add(5*time.Minute))
		require.NoError(t, err)

		clock.Advance(5 * time.Minute)
		assert.ErrorIs(t, svc.Verify(ctx, testPhone, "482193"), ErrVerificationFailed)
	})
}

func TestOtpService_VerifyFailures(t *testing.T) {
	svc, _, _ := newTestOtpService(t, OtpConfig{})
	ctx := context.Background()

	rec, err := svc.Issue(ctx, testPhone)
	require.NoError(t, err)

	cases := []struct {
		name  string
		phone string
		code  string
	}{
		{"unknown phone", "+15550000000", rec.Code},
		{"empty code", testPhone, ""},
		{"empty phone", "", rec.Code},
		{"prefix of code", testPhone, rec.Code[:5]},
		{"code with suffix", testPhone, rec.Code + "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Verify(ctx, tc.phone, tc.code)
			assert.True(t, errors.Is(err, ErrVerificationFailed), "got %v", err)
		})
	}

	// the real code is still usable after the failed attempts
	assert.NoError(t, svc.Verify(ctx, testPhone, rec.Code))
}

func TestOtpService_SingleUse(t *testing.T) {
	svc, _, _ := newTestOtpService(t, OtpConfig{})
	ctx := context.Background()

	rec, err := svc.Issue(ctx, testPhone)
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, testPhone, rec.Code))
	assert.ErrorIs(t, svc.Verify(ctx, testPhone, rec.Code), ErrVerificationFailed)
}

func TestOtpService_ConcurrentVerifySucceedsOnce(t *testing.T) {
	svc, _, _ := newTestOtpService(t, OtpConfig{})
	ctx := context.Background()

	rec, err := svc.Issue(ctx, testPhone)
	require.NoError(t, err)

	var ok int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.Verify(ctx, testPhone, rec.Code) == nil {
				atomic.AddInt32(&ok, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok)
}

func TestOtpService_ReissueKeepsEarlierCodes(t *testing.T) {
	svc, _, _ := newTestOtpService(t, OtpConfig{Length: 8})
	ctx := context.Background()

	first, err := svc.Issue(ctx, testPhone)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, testPhone)
	require.NoError(t, err)
	if first.Code == second.Code {
		t.Skip("random codes collided")
	}

	assert.NoError(t, svc.Verify(ctx, testPhone, first.Code))
	assert.NoError(t, svc.Verify(ctx, testPhone, second.Code))
}

func TestOtpService_IssueRateLimit(t *testing.T) {
	svc, _, clock := newTestOtpService(t, OtpConfig{MaxRequests: 3, RequestWindow: 10 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Issue(ctx, testPhone)
		require.NoError(t, err)
	}
	_, err := svc.Issue(ctx, testPhone)
	assert.ErrorIs(t, err, ErrRateLimited)

	// other phones are unaffected
	_, err = svc.Issue(ctx, "+15559990000")
	assert.NoError(t, err)

	clock.Advance(11 * time.Minute)
	_, err = svc.Issue(ctx, testPhone)
	assert.NoError(t, err)
}

func TestOtpService_IssueRejectsEmptyPhone(t *testing.T) {
	svc, store, _ := newTestOtpService(t, OtpConfig{})
	_, err := svc.Issue(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.Equal(t, 0, store.Len())
}

func TestOtpService_DevMode(t *testing.T) {
	svc, _, _ := newTestOtpService(t, OtpConfig{DevMode: true})
	ctx := context.Background()

	rec, err := svc.Issue(ctx, testPhone)
	require.NoError(t, err)
	assert.Equal(t, DevOTPCode, rec.Code)
	assert.True(t, svc.DevMode())
	assert.NoError(t, svc.Verify(ctx, testPhone, DevOTPCode))
}

func TestOtpService_SendFailure(t *testing.T) {
	store := repo.NewMemoryOtpRepo()
	sender := &mockSender{}
	sender.On("Send", mock.Anything, testPhone, mock.AnythingOfType("string")).Return(errors.New("provider down"))

	svc := NewOtpService(store, sender, OtpConfig{Salt: "s"})
	_, err := svc.Issue(context.Background(), testPhone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliver otp")
	sender.AssertExpectations(t)
}

func TestOtpService_SendsCodeInMessage(t *testing.T) {
	store := repo.NewMemoryOtpRepo()
	sender := &mockSender{}
	sender.On("Send", mock.Anything, testPhone, "Your verification code is 123456. It expires in 5 minutes.").Return(nil)

	svc := NewOtpService(store, sender, OtpConfig{Salt: "s", DevMode: true})
	_, err := svc.Issue(context.Background(), testPhone)
	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestOtpService_Cleanup(t *testing.T) {
	svc, store, clock := newTestOtpService(t, OtpConfig{TTL: 5 * time.Minute, RequestWindow: 10 * time.Minute, MaxRequests: -1})
	ctx := context.Background()

	_, err := svc.Issue(ctx, testPhone)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	svc.cleanupOnce(ctx)
	assert.Equal(t, 1, store.Len(), "kept for one request window after expiry")

	clock.Advance(6 * time.Minute)
	svc.cleanupOnce(ctx)
	assert.Equal(t, 0, store.Len())
}
