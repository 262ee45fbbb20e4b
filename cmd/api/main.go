package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/shivcommunication/storefront/internal/auth"
	"github.com/shivcommunication/storefront/internal/config"
	"github.com/shivcommunication/storefront/internal/db"
	httphandler "github.com/shivcommunication/storefront/internal/http"
	"github.com/shivcommunication/storefront/internal/http/handlers"
	"github.com/shivcommunication/storefront/internal/logging"
	"github.com/shivcommunication/storefront/internal/middleware"
	"github.com/shivcommunication/storefront/internal/payment"
	"github.com/shivcommunication/storefront/internal/repo"
	"github.com/shivcommunication/storefront/internal/sms"
)

const (
	otpRequestsPerMinute   = 10
	otpVerifiesPerMinute   = 20
	adminAttemptsPerMinute = 5
)

func main() {
	// Env vars already set take precedence over .env
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	stores, closeStores := openStores(ctx, cfg)
	defer closeStores()

	requestLimiter, verifyLimiter, loginLimiter, closeLimiters := openLimiters(ctx, cfg)
	defer closeLimiters()

	var sender sms.Sender = sms.LogSender{ShowBody: cfg.OTPDevMode}
	if cfg.TwilioEnabled() {
		sender = sms.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	} else {
		log.Warn().Msg("twilio not configured, OTP messages are only logged")
	}

	var orders payment.OrderCreator
	if cfg.PaymentsEnabled() {
		client, err := payment.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure razorpay")
		}
		orders = client
	} else {
		log.Warn().Msg("razorpay not configured, checkout is disabled")
	}

	otpService := auth.NewOtpService(stores.Otp, sender, auth.OtpConfig{
		Length:        cfg.OTPLength,
		TTL:           cfg.OTPTTL,
		MaxRequests:   cfg.OTPMaxRequests,
		RequestWindow: cfg.OTPRequestWindow,
		Salt:          cfg.OTPSalt,
		DevMode:       cfg.OTPDevMode,
	})
	if otpService.DevMode() {
		log.Warn().Str("code", auth.DevOTPCode).Msg("OTP dev mode is on, do not use in production")
	}
	sessions := auth.NewSessionIssuer(cfg.SessionSecret, cfg.SessionTTL)
	adminGate := auth.NewAdminGate(cfg.AdminPassword)
	authService := auth.NewAuthService(otpService, sessions, stores.Users)

	router := httphandler.NewRouter(httphandler.Handlers{
		Auth: handlers.NewAuthHandler(handlers.AuthHandlerConfig{
			AuthService:    authService,
			OtpProvider:    otpService,
			RequestLimiter: requestLimiter,
			VerifyLimiter:  verifyLimiter,
			SessionTTL:     sessions.TTL(),
			SecureCookies:  cfg.CookieSecure,
			DevMode:        otpService.DevMode(),
		}),
		Admin:    handlers.NewAdminHandler(adminGate, stores.Products, cfg.CookieSecure),
		Products: handlers.NewProductHandler(stores.Products),
		Payments: handlers.NewPaymentHandler(orders),
	}, sessions, adminGate, loginLimiter)

	go otpService.RunCleanup(ctx, cfg.OTPCleanupInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server exited")
}

// openStores connects the configured backend and returns its repositories with a close func
func openStores(ctx context.Context, cfg *config.Config) (repo.Stores, func()) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		database, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		if err := db.Migrate(database); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		return repo.NewPostgresStores(database), func() { _ = database.Close() }

	case config.StoreDriverMongo:
		client, database, err := db.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open mongo")
		}
		return repo.NewMongoStores(database), func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}

	default:
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return repo.NewMemoryStores(), func() {}
	}
}

// openLimiters returns per-IP limiters for OTP requests, OTP verification and admin login.
// They share Redis when REDIS_URL is set so limits hold across replicas.
func openLimiters(ctx context.Context, cfg *config.Config) (request, verify, login middleware.Limiter, closeFn func()) {
	if cfg.RedisURL == "" {
		return middleware.NewRateLimiter(ctx, time.Minute, otpRequestsPerMinute),
			middleware.NewRateLimiter(ctx, time.Minute, otpVerifiesPerMinute),
			middleware.NewRateLimiter(ctx, time.Minute, adminAttemptsPerMinute),
			func() {}
	}

	client, err := db.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open redis")
	}
	return middleware.NewRedisRateLimiter(client, "rl:otp_request", time.Minute, otpRequestsPerMinute),
		middleware.NewRedisRateLimiter(client, "rl:otp_verify", time.Minute, otpVerifiesPerMinute),
		middleware.NewRedisRateLimiter(client, "rl:admin_login", time.Minute, adminAttemptsPerMinute),
		func() { _ = client.Close() }
}
