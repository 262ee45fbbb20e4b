package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/shivcommunication/storefront/internal/auth"
	"github.com/shivcommunication/storefront/internal/middleware"
	"github.com/shivcommunication/storefront/internal/repo"
)

// AdminHandler handles the admin login flow and dashboard
type AdminHandler struct {
	gate          *auth.AdminGate
	products      repo.ProductRepo
	secureCookies bool
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(gate *auth.AdminGate, products repo.ProductRepo, secureCookies bool) *AdminHandler {
	return &AdminHandler{
		gate:          gate,
		products:      products,
		secureCookies: secureCookies,
	}
}

type adminLoginRequest struct {
	Password string `json:"password"`
}

// HandleLoginPage handles GET /admin/login, the target of denied dashboard requests
func (h *AdminHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "admin login required"})
}

// HandleLogin handles POST /admin/login
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.gate.Require(req.Password); err != nil {
		log.Warn().Str("remote_ip", r.RemoteAddr).Msg("admin login rejected")
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.setAdminCookie(w, req.Password, 0)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleLogout handles POST /admin/logout
func (h *AdminHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.setAdminCookie(w, "", -1)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleDashboard handles GET /admin
func (h *AdminHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	count, err := h.products.Count(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("count products")
		respondWithError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"dashboard":     "admin",
		"product_count": count,
	})
}

// setAdminCookie writes the admin-token cookie; maxAge 0 makes it a browser-session cookie
func (h *AdminHandler) setAdminCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    value,
		Path:     "/admin",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
