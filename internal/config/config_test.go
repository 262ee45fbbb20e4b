package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SESSION_SECRET", "test-session-secret-at-least-32-characters")
	t.Setenv("OTP_SALT", "test-otp-salt")
	t.Setenv("ADMIN_PASSWORD", "s3cr3t")
	t.Setenv("ADMIN_SECRET", "")
}

func TestLoad_defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "storefront", cfg.MongoDB)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTPRequestWindow)
	assert.Equal(t, 6, cfg.OTPLength)
	assert.Equal(t, 3, cfg.OTPMaxRequests)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.OTPDevMode)
	assert.False(t, cfg.PaymentsEnabled())
	assert.False(t, cfg.TwilioEnabled())
	assert.Equal(t, "s3cr3t", cfg.AdminPassword)
}

func TestLoad_overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("OTP_TTL", "10m")
	t.Setenv("OTP_LENGTH", "8")
	t.Setenv("OTP_DEV_MODE", "true")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_x")
	t.Setenv("RAZORPAY_KEY_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 8, cfg.OTPLength)
	assert.True(t, cfg.OTPDevMode)
	assert.True(t, cfg.PaymentsEnabled())
}

func TestLoad_validation(t *testing.T) {
	cases := map[string]map[string]string{
		"short session secret":  {"SESSION_SECRET": "short"},
		"missing otp salt":      {"OTP_SALT": ""},
		"unknown store driver":  {"STORE_DRIVER": "sqlite"},
		"postgres without dsn":  {"STORE_DRIVER": "postgres", "DATABASE_URL": ""},
		"mongo without uri":     {"STORE_DRIVER": "mongo", "MONGO_URI": ""},
		"missing admin":         {"ADMIN_PASSWORD": ""},
		"razorpay without key":  {"RAZORPAY_KEY_ID": "rzp_test_x", "RAZORPAY_KEY_SECRET": ""},
		"twilio without token":  {"TWILIO_ACCOUNT_SID": "AC123", "TWILIO_AUTH_TOKEN": "", "TWILIO_FROM_NUMBER": "+1555"},
		"otp length too short":  {"OTP_LENGTH": "2"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_adminSecretAlias(t *testing.T) {
	t.Run("alias only", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("ADMIN_PASSWORD", "")
		t.Setenv("ADMIN_SECRET", "legacy")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "legacy", cfg.AdminPassword)
	})

	t.Run("same value", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("ADMIN_SECRET", "s3cr3t")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "s3cr3t", cfg.AdminPassword)
	})

	t.Run("conflicting values", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("ADMIN_SECRET", "different")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ADMIN_SECRET")
	})
}
