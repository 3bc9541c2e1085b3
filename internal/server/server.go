// Package server exposes the JSON HTTP API. It owns request decoding,
// validation, authentication, and error mapping; business rules live in the
// service package and the splitting arithmetic in allocation.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patcharin/splitbill/internal/auth"
	"github.com/patcharin/splitbill/internal/service"
)

// Server handles HTTP requests for the splitbill API.
type Server struct {
	auth       *service.AuthService
	receipts   *service.ReceiptService
	selections *service.SelectionService
	jwtManager *auth.JWTManager
	mux        *http.ServeMux
}

// New creates a Server with all routes registered.
func New(authSvc *service.AuthService, receipts *service.ReceiptService, selections *service.SelectionService, jwtManager *auth.JWTManager) *Server {
	s := &Server{
		auth:       authSvc,
		receipts:   receipts,
		selections: selections,
		jwtManager: jwtManager,
		mux:        http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes on the server's mux.
// Routes must be registered from most specific to least specific.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	s.mux.HandleFunc("POST /api/receipts/parse", s.requireAuth(s.handleParseReceipt))
	s.mux.HandleFunc("POST /api/receipts/{id}/selections", s.requireAuth(s.handleSaveSelection))
	s.mux.HandleFunc("PUT /api/receipts/{id}/selections", s.requireAuth(s.handleSaveSelection))
	s.mux.HandleFunc("GET /api/receipts/{id}", s.requireAuth(s.handleGetReceipt))
	s.mux.HandleFunc("POST /api/receipts", s.requireAuth(s.handleCreateReceipt))
	s.mux.HandleFunc("GET /api/receipts", s.requireAuth(s.handleListReceipts))

	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

// Handler returns the server's handler with logging, metrics, and CORS
// middleware applied.
func (s *Server) Handler() http.Handler {
	return loggingMiddleware(metricsMiddleware(corsMiddleware(s.mux)))
}

// ServeHTTP implements http.Handler for testing without the outer middleware.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
