package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xtrntr/simex/internal/auth"
	"github.com/xtrntr/simex/internal/session"
)

type contextKey string

const operatorKey contextKey = "operator"

// Handler serves a read-only view of one session
type Handler struct {
	Session     *session.Session
	AuthService *auth.AuthService
	Hub         *Hub
}

// NewHandler creates a new handler and subscribes its hub to the session clock
func NewHandler(s *session.Session, authService *auth.AuthService) *Handler {
	h := &Handler{Session: s, AuthService: authService, Hub: NewHub()}
	s.OnAdvance(h.Hub.Publish)
	return h
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Health reports that the server is up
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login handles operator login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// JWTAuthMiddleware verifies JWT tokens
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		operator, err := h.AuthService.GetUserFromToken(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), operatorKey, operator)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTime returns the timestamp of the slice being traded
func (h *Handler) GetTime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id":   h.Session.ID,
		"current_time": h.Session.CurrentTime(),
	})
}

// GetProducts lists the known products
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.Products())
}

// product reads and checks the product query parameter
func (h *Handler) product(w http.ResponseWriter, r *http.Request) (string, bool) {
	product := r.URL.Query().Get("product")
	if product == "" {
		writeError(w, http.StatusBadRequest, "product query parameter required")
		return "", false
	}
	for _, p := range h.Session.Products() {
		if p == product {
			return product, true
		}
	}
	writeError(w, http.StatusNotFound, "Unknown product")
	return "", false
}

// GetStats summarises one product at the current time
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Session.Stats(product))
}

// GetOrderBook returns the open asks and bids of one product at the current time
func (h *Handler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Session.Slice(product))
}

// GetSales returns the sales produced by the last advance
func (h *Handler) GetSales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.LastSales())
}

// GetWallet returns the session balances and funds on hold
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	if _, ok := r.Context().Value(operatorKey).(string); !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, h.Session.Holdings())
}
