package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter mounts the market view endpoints
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Enable CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ws", h.ServeWS)

	// Public endpoints
	r.Post("/auth/login", h.Login)
	r.Get("/time", h.GetTime)
	r.Get("/products", h.GetProducts)
	r.Get("/stats", h.GetStats)
	r.Get("/orderbook", h.GetOrderBook)
	r.Get("/sales", h.GetSales)

	// Protected endpoints (require JWT)
	r.Group(func(r chi.Router) {
		r.Use(h.JWTAuthMiddleware)
		r.Get("/wallet", h.GetWallet)
	})

	return r
}
