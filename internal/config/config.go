package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	Port        string `mapstructure:"PORT" validate:"required,numeric"`
	StoreDriver string `mapstructure:"STORE_DRIVER" validate:"required,oneof=postgres mongo memory"`
	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required_if=StoreDriver postgres"`
	MongoURI    string `mapstructure:"MONGO_URI" validate:"required_if=StoreDriver mongo"`
	MongoDB     string `mapstructure:"MONGO_DB" validate:"required"`
	RedisURL    string `mapstructure:"REDIS_URL" validate:"omitempty,uri"`

	SessionSecret string        `mapstructure:"SESSION_SECRET" validate:"required,min=32"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL" validate:"required"`
	CookieSecure  bool          `mapstructure:"COOKIE_SECURE"`

	AdminPassword string `mapstructure:"ADMIN_PASSWORD" validate:"required"`

	OTPSalt            string        `mapstructure:"OTP_SALT" validate:"required"`
	OTPTTL             time.Duration `mapstructure:"OTP_TTL" validate:"required"`
	OTPLength          int           `mapstructure:"OTP_LENGTH" validate:"min=4,max=10"`
	OTPMaxRequests     int           `mapstructure:"OTP_MAX_REQUESTS" validate:"min=-1"`
	OTPRequestWindow   time.Duration `mapstructure:"OTP_REQUEST_WINDOW" validate:"required"`
	OTPDevMode         bool          `mapstructure:"OTP_DEV_MODE"`
	OTPCleanupInterval time.Duration `mapstructure:"OTP_CLEANUP_INTERVAL"`

	TwilioAccountSID string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `mapstructure:"TWILIO_AUTH_TOKEN" validate:"required_with=TwilioAccountSID"`
	TwilioFromNumber string `mapstructure:"TWILIO_FROM_NUMBER" validate:"required_with=TwilioAccountSID"`

	RazorpayKeyID     string `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `mapstructure:"RAZORPAY_KEY_SECRET" validate:"required_with=RazorpayKeyID"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`
}

var defaults = map[string]interface{}{
	"PORT":                 "8080",
	"STORE_DRIVER":         StoreDriverPostgres,
	"DATABASE_URL":         "",
	"MONGO_URI":            "",
	"MONGO_DB":             "storefront",
	"REDIS_URL":            "",
	"SESSION_SECRET":       "",
	"SESSION_TTL":          "168h",
	"COOKIE_SECURE":        false,
	"ADMIN_PASSWORD":       "",
	"ADMIN_SECRET":         "",
	"OTP_SALT":             "",
	"OTP_TTL":              "5m",
	"OTP_LENGTH":           6,
	"OTP_MAX_REQUESTS":     3,
	"OTP_REQUEST_WINDOW":   "10m",
	"OTP_DEV_MODE":         false,
	"OTP_CLEANUP_INTERVAL": "0s",
	"TWILIO_ACCOUNT_SID":   "",
	"TWILIO_AUTH_TOKEN":    "",
	"TWILIO_FROM_NUMBER":   "",
	"RAZORPAY_KEY_ID":      "",
	"RAZORPAY_KEY_SECRET":  "",
	"LOG_LEVEL":            "info",
	"LOG_PRETTY":           false,
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	adminPassword, err := resolveAdminPassword(cfg.AdminPassword, v.GetString("ADMIN_SECRET"))
	if err != nil {
		return nil, err
	}
	cfg.AdminPassword = adminPassword

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation of config failed: %w", err)
	}
	return cfg, nil
}

// resolveAdminPassword unifies the admin credential under ADMIN_PASSWORD. ADMIN_SECRET is
// still honoured when it is the only one set; two different values are a configuration error.
func resolveAdminPassword(password, secret string) (string, error) {
	switch {
	case secret == "":
		return password, nil
	case password == "":
		log.Warn().Msg("ADMIN_SECRET is deprecated, rename it to ADMIN_PASSWORD")
		return secret, nil
	case password != secret:
		return "", fmt.Errorf("ADMIN_PASSWORD and ADMIN_SECRET are both set to different values; keep only ADMIN_PASSWORD")
	default:
		log.Warn().Msg("ADMIN_SECRET duplicates ADMIN_PASSWORD and can be removed")
		return password, nil
	}
}

// PaymentsEnabled reports whether Razorpay credentials are configured
func (c *Config) PaymentsEnabled() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}

// TwilioEnabled reports whether SMS delivery through Twilio is configured
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != ""
}
