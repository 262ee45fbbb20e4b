package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shivcommunication/storefront/internal/http/handlers"
	"github.com/shivcommunication/storefront/internal/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Auth     *handlers.AuthHandler
	Admin    *handlers.AdminHandler
	Products *handlers.ProductHandler
	Payments *handlers.PaymentHandler
}

// NewRouter creates a new HTTP router with all routes configured. loginLimiter throttles
// admin password attempts per client IP.
func NewRouter(h Handlers, sessions middleware.SessionDecoder, gate middleware.AdminChecker, loginLimiter middleware.Limiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LoadSession(sessions))

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/request_otp", h.Auth.HandleRequestOTP)
		r.Post("/verify_otp", h.Auth.HandleVerifyOTP)
		r.Post("/logout", h.Auth.HandleLogout)
	})

	r.With(middleware.RequireSession).Get("/me", h.Auth.HandleMe)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.Products.HandleList)
		r.Get("/{id}", h.Products.HandleGet)
	})

	r.With(middleware.RequirePhoneVerified).Post("/payments/orders", h.Payments.HandleCreateOrder)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/login", h.Admin.HandleLoginPage)
		r.With(middleware.RateLimitMiddleware(loginLimiter, middleware.GetIPKey)).Post("/login", h.Admin.HandleLogin)
		r.Post("/logout", h.Admin.HandleLogout)

		r.With(middleware.AdminPageGate(gate)).Get("/", h.Admin.HandleDashboard)

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.AdminAPIGate(gate))
			r.Post("/products", h.Products.HandleCreate)
			r.Delete("/products/{id}", h.Products.HandleDelete)
		})
	})

	return r
}
