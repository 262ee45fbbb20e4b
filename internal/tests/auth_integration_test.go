package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivcommunication/storefront/internal/auth"
	"github.com/shivcommunication/storefront/internal/config"
	"github.com/shivcommunication/storefront/internal/db"
	httphandler "github.com/shivcommunication/storefront/internal/http"
	"github.com/shivcommunication/storefront/internal/http/handlers"
	"github.com/shivcommunication/storefront/internal/middleware"
	"github.com/shivcommunication/storefront/internal/repo"
	"github.com/shivcommunication/storefront/internal/sms"
)

const testPhone = "+491234567890"

func TestMain(m *testing.M) {
	// Set env if unset. Do NOT set DATABASE_URL or MONGO_URI; integration tests skip if missing.
	defaults := map[string]string{
		"SESSION_SECRET": "test-session-secret-at-least-32-characters",
		"OTP_SALT":       "test-otp-salt",
		"OTP_DEV_MODE":   "true",
		"ADMIN_PASSWORD": "test-admin-password",
	}
	for k, v := range defaults {
		if os.Getenv(k) == "" {
			os.Setenv(k, v)
		}
	}

	code := m.Run()
	os.Exit(code)
}

// testServer holds the server and a reset func for integration tests
type testServer struct {
	Server *httptest.Server
	Client *http.Client
	reset  func(t *testing.T)
}

// newTestServer wires the whole application over the backend named by driver
func newTestServer(t *testing.T, driver string) *testServer {
	t.Helper()
	t.Setenv("STORE_DRIVER", driver)

	cfg, err := config.Load()
	require.NoError(t, err, "config load must succeed for integration test")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var stores repo.Stores
	var reset func(t *testing.T)
	switch driver {
	case config.StoreDriverPostgres:
		database, err := db.Open(ctx, cfg.DatabaseURL)
		require.NoError(t, err, "database open must succeed; check DATABASE_URL and that test DB exists")
		t.Cleanup(func() { database.Close() })
		require.NoError(t, db.Migrate(database), "migrations must run successfully")
		stores = repo.NewPostgresStores(database)
		reset = func(t *testing.T) { require.NoError(t, TruncateTables(context.Background(), database)) }
	case config.StoreDriverMongo:
		client, database, err := db.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB+"_test")
		require.NoError(t, err, "mongo open must succeed; check MONGO_URI")
		t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
		stores = repo.NewMongoStores(database)
		reset = func(t *testing.T) { require.NoError(t, ClearCollections(context.Background(), database)) }
	default:
		t.Fatalf("unsupported driver %q", driver)
	}

	otpService := auth.NewOtpService(stores.Otp, sms.LogSender{}, auth.OtpConfig{
		Length:        cfg.OTPLength,
		TTL:           cfg.OTPTTL,
		MaxRequests:   cfg.OTPMaxRequests,
		RequestWindow: cfg.OTPRequestWindow,
		Salt:          cfg.OTPSalt,
		DevMode:       cfg.OTPDevMode,
	})
	sessions := auth.NewSessionIssuer(cfg.SessionSecret, cfg.SessionTTL)
	gate := auth.NewAdminGate(cfg.AdminPassword)
	authService := auth.NewAuthService(otpService, sessions, stores.Users)

	router := httphandler.NewRouter(httphandler.Handlers{
		Auth: handlers.NewAuthHandler(handlers.AuthHandlerConfig{
			AuthService:    authService,
			OtpProvider:    otpService,
			RequestLimiter: middleware.NewRateLimiter(ctx, time.Minute, 100),
			VerifyLimiter:  middleware.NewRateLimiter(ctx, time.Minute, 100),
			SessionTTL:     sessions.TTL(),
			DevMode:        otpService.DevMode(),
		}),
		Admin:    handlers.NewAdminHandler(gate, stores.Products, false),
		Products: handlers.NewProductHandler(stores.Products),
		Payments: handlers.NewPaymentHandler(nil),
	}, sessions, gate, middleware.NewRateLimiter(ctx, time.Minute, 100))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := server.Client()
	client.Jar = jar

	return &testServer{Server: server, Client: client, reset: reset}
}

func (s *testServer) BaseURL() string { return s.Server.URL }

func (s *testServer) postJSON(t *testing.T, path string, body interface{}) (*http.Response, string) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := s.Client.Post(s.BaseURL()+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp, readBody(resp)
}

func (s *testServer) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := s.Client.Get(s.BaseURL() + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp, readBody(resp)
}

// requestOTPResponse matches POST /auth/request_otp response
type requestOTPResponse struct {
	Message string `json:"message"`
	DevOTP  string `json:"dev_otp"`
}

// verifyOTPResponse matches POST /auth/verify_otp response
type verifyOTPResponse struct {
	User struct {
		ID          string `json:"id"`
		PhoneNumber string `json:"phone_number"`
	} `json:"user"`
	Session auth.Payload `json:"session"`
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func TestAuthIntegration_Postgres(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	runAuthFlow(t, newTestServer(t, config.StoreDriverPostgres))
}

func TestAuthIntegration_Mongo(t *testing.T) {
	if os.Getenv("MONGO_URI") == "" {
		t.Skip("MONGO_URI not set; skipping integration test")
	}
	runAuthFlow(t, newTestServer(t, config.StoreDriverMongo))
}

func runAuthFlow(t *testing.T, ts *testServer) {
	t.Run("A_Health", func(t *testing.T) {
		resp, body := ts.get(t, "/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode, "GET /health must return 200")
		assert.JSONEq(t, `{"ok":true}`, body)
	})

	t.Run("B_FullFlow", func(t *testing.T) {
		ts.reset(t)

		resp, body := ts.postJSON(t, "/auth/request_otp", map[string]string{"phone_number": testPhone})
		require.Equal(t, http.StatusOK, resp.StatusCode, "POST /auth/request_otp must return 200; body: %s", body)
		var reqRes requestOTPResponse
		require.NoError(t, json.Unmarshal([]byte(body), &reqRes))
		assert.Equal(t, "otp_sent", reqRes.Message)
		require.NotEmpty(t, reqRes.DevOTP, "dev_otp must be present when OTP_DEV_MODE=true")

		resp, body = ts.postJSON(t, "/auth/verify_otp", map[string]string{"phone_number": testPhone, "otp": reqRes.DevOTP})
		require.Equal(t, http.StatusOK, resp.StatusCode, "POST /auth/verify_otp must return 200; body: %s", body)
		var verifyRes verifyOTPResponse
		require.NoError(t, json.Unmarshal([]byte(body), &verifyRes))
		assert.Equal(t, testPhone, verifyRes.User.PhoneNumber)
		assert.True(t, verifyRes.Session.PhoneVerified)

		resp, body = ts.get(t, "/me")
		require.Equal(t, http.StatusOK, resp.StatusCode, "GET /me must return 200; body: %s", body)
		var me auth.Payload
		require.NoError(t, json.Unmarshal([]byte(body), &me))
		assert.Equal(t, verifyRes.User.ID, me.ID)
		assert.Equal(t, testPhone, me.Phone)

		resp, _ = ts.postJSON(t, "/auth/verify_otp", map[string]string{"phone_number": testPhone, "otp": reqRes.DevOTP})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "a used code must be rejected")
	})

	t.Run("C_SameUserOnSecondLogin", func(t *testing.T) {
		ts.reset(t)

		var ids []string
		for i := 0; i < 2; i++ {
			resp, body := ts.postJSON(t, "/auth/request_otp", map[string]string{"phone_number": testPhone})
			require.Equal(t, http.StatusOK, resp.StatusCode, body)
			resp, body = ts.postJSON(t, "/auth/verify_otp", map[string]string{"phone_number": testPhone, "otp": auth.DevOTPCode})
			require.Equal(t, http.StatusOK, resp.StatusCode, body)
			var res verifyOTPResponse
			require.NoError(t, json.Unmarshal([]byte(body), &res))
			ids = append(ids, res.User.ID)
		}
		assert.Equal(t, ids[0], ids[1])
	})

	t.Run("D_RateLimit", func(t *testing.T) {
		ts.reset(t)
		var last *http.Response
		var lastBody string
		for i := 0; i < 4; i++ {
			last, lastBody = ts.postJSON(t, "/auth/request_otp", map[string]string{"phone_number": testPhone})
			if last.StatusCode == http.StatusTooManyRequests {
				break
			}
		}
		assert.Equal(t, http.StatusTooManyRequests, last.StatusCode,
			"4th request_otp must return 429 (rate limit); body: %s", lastBody)
	})

	t.Run("E_AdminCatalog", func(t *testing.T) {
		ts.reset(t)

		resp, _ := ts.postJSON(t, "/admin/login", map[string]string{"password": os.Getenv("ADMIN_PASSWORD")})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := ts.postJSON(t, "/admin/api/products", map[string]interface{}{"name": "Saffron", "price": 99900})
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)

		resp, body = ts.get(t, "/products")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Saffron")

		resp, body = ts.get(t, "/admin")
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.JSONEq(t, `{"dashboard":"admin","product_count":1}`, body)
	})
}
