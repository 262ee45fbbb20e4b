package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shivcommunication/storefront/internal/auth"
	"github.com/shivcommunication/storefront/internal/middleware"
)

// AuthHandlerConfig bundles the collaborators of AuthHandler
type AuthHandlerConfig struct {
	AuthService    *auth.AuthService
	OtpProvider    auth.OtpProvider
	RequestLimiter middleware.Limiter
	VerifyLimiter  middleware.Limiter
	SessionTTL     time.Duration
	SecureCookies  bool
	DevMode        bool
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService    *auth.AuthService
	otpProvider    auth.OtpProvider
	requestLimiter middleware.Limiter
	verifyLimiter  middleware.Limiter
	sessionTTL     time.Duration
	secureCookies  bool
	devMode        bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		authService:    cfg.AuthService,
		otpProvider:    cfg.OtpProvider,
		requestLimiter: cfg.RequestLimiter,
		verifyLimiter:  cfg.VerifyLimiter,
		sessionTTL:     cfg.SessionTTL,
		secureCookies:  cfg.SecureCookies,
		devMode:        cfg.DevMode,
	}
}

// requestOTPRequest is the request body for POST /auth/request_otp
type requestOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// requestOTPResponse is the JSON response for request_otp
type requestOTPResponse struct {
	Message string `json:"message"`
	DevOTP  string `json:"dev_otp,omitempty"`
}

// verifyOTPRequest is the request body for POST /auth/verify_otp
type verifyOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	OTP         string `json:"otp"`
}

// verifyOTPResponse is the JSON response for verify_otp
type verifyOTPResponse struct {
	User    userResponse `json:"user"`
	Session auth.Payload `json:"session"`
}

// userResponse is the user object in API responses
type userResponse struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
}

// HandleRequestOTP handles POST /auth/request_otp
func (h *AuthHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.PhoneNumber == "" {
		respondWithError(w, http.StatusBadRequest, "phone_number is required")
		return
	}

	if !h.requestLimiter.Allow(r.Context(), middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	rec, err := h.otpProvider.Issue(r.Context(), req.PhoneNumber)
	if err != nil {
		logMaskedPhone(req.PhoneNumber, "failed to request OTP", err)
		switch {
		case errors.Is(err, auth.ErrRateLimited):
			respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		case errors.Is(err, auth.ErrInvalidPhone):
			respondWithError(w, http.StatusBadRequest, "phone_number is required")
		default:
			respondWithError(w, http.StatusInternalServerError, "failed to request OTP")
		}
		return
	}

	response := requestOTPResponse{Message: "otp_sent"}
	if h.devMode {
		response.DevOTP = rec.Code
	}
	respondJSON(w, http.StatusOK, response)
}

// HandleVerifyOTP handles POST /auth/verify_otp
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.OTP = strings.TrimSpace(req.OTP)
	if req.PhoneNumber == "" || req.OTP == "" {
		respondWithError(w, http.StatusBadRequest, "phone_number and otp are required")
		return
	}

	if !h.verifyLimiter.Allow(r.Context(), middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	user, sess, token, err := h.authService.VerifyOTPAndEstablishSession(r.Context(), req.PhoneNumber, req.OTP)
	if err != nil {
		logMaskedPhone(req.PhoneNumber, "OTP verification failed", err)
		if errors.Is(err, auth.ErrVerificationFailed) {
			respondWithError(w, http.StatusUnauthorized, "invalid or expired OTP")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "verification unavailable")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, verifyOTPResponse{
		User: userResponse{
			ID:          user.ID.String(),
			PhoneNumber: user.PhoneNumber,
		},
		Session: auth.PayloadOf(sess),
	})
}

// HandleLogout handles POST /auth/logout by expiring the session cookie
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe handles GET /me (protected). Returns the session payload.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if !sess.IsAuthenticated() {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondJSON(w, http.StatusOK, auth.PayloadOf(sess))
}
