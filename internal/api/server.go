// Package api exposes the account safety controller over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/account-safety/internal/logging"
	"github.com/account-safety/internal/rotation"
	"github.com/account-safety/internal/safety"
)

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	controller *safety.Controller
	rotator    *rotation.Rotator
	health     HealthChecker
	logger     *logging.Logger
	config     *ServerConfig
}

// HealthChecker reports backing-store reachability for the health endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int // Requests per second per client
	RateLimitBurst  int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	controller *safety.Controller,
	rotator *rotation.Rotator,
	health HealthChecker,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Server{
		router:     mux.NewRouter(),
		controller: controller,
		rotator:    rotator,
		health:     health,
		logger:     logger,
		config:     config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Middleware order matters: recovery outermost after logging.
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Account lifecycle and limits
	api.HandleFunc("/accounts", s.handleInitializeAccount).Methods("POST")
	api.HandleFunc("/accounts/{accountId}", s.handleGetProfile).Methods("GET")
	api.HandleFunc("/accounts/{accountId}/limits", s.handleGetEffectiveLimits).Methods("GET")

	// Action gate and usage recording
	api.HandleFunc("/accounts/{accountId}/gate/{actionType}", s.handleCanPerformAction).Methods("GET")
	api.HandleFunc("/accounts/{accountId}/actions", s.handleRecordAction).Methods("POST")
	api.HandleFunc("/accounts/{accountId}/actions/recent", s.handleRecentActions).Methods("GET")
	api.HandleFunc("/accounts/{accountId}/connections/accepted", s.handleConnectionAccepted).Methods("POST")
	api.HandleFunc("/accounts/{accountId}/pending-invitations", s.handleUpdatePendingInvitations).Methods("PUT")
	api.HandleFunc("/accounts/{accountId}/usage/today", s.handleTodayUsage).Methods("GET")
	api.HandleFunc("/accounts/{accountId}/usage/week", s.handleWeekUsage).Methods("GET")

	// Pacing
	api.HandleFunc("/accounts/{accountId}/delay", s.handleNextDelay).Methods("GET")
	api.HandleFunc("/accounts/{accountId}/batch", s.handleBatchStatus).Methods("GET")
	api.HandleFunc("/accounts/{accountId}/batch/record", s.handleRecordForBatch).Methods("POST")
	api.HandleFunc("/accounts/{accountId}/batch/reset", s.handleResetBatch).Methods("POST")

	// Warm-up
	api.HandleFunc("/accounts/{accountId}/warmup", s.handleSetWarmUp).Methods("PUT")
	api.HandleFunc("/accounts/{accountId}/warmup", s.handleWarmUpProgress).Methods("GET")

	// Advisories
	api.HandleFunc("/accounts/{accountId}/recommendations", s.handleRecommendations).Methods("GET")

	// Message variations
	api.HandleFunc("/accounts/{accountId}/variations", s.handleCreateVariations).Methods("POST")
	api.HandleFunc("/accounts/{accountId}/variations", s.handleListVariations).Methods("GET")
	api.HandleFunc("/accounts/{accountId}/variations/{variationId}/next", s.handleNextVariation).Methods("GET")
	api.HandleFunc("/accounts/{accountId}/variations/{variationId}/usage", s.handleRecordVariationUsage).Methods("POST")
	api.HandleFunc("/accounts/{accountId}/variations/{variationId}/stats", s.handleVariationStats).Methods("GET")
	api.HandleFunc("/accounts/{accountId}/variations/{variationId}", s.handleDeleteVariations).Methods("DELETE")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	respondJSON(w, code, map[string]string{
		"status":  status,
		"service": "account-safety",
	})
}

// Router returns the configured router, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
