// Package api exposes the HTTP surface: the OAuth login flow, the
// authenticated lead endpoints and the export downloads.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leadsync/leadsync/internal/auth"
	"github.com/leadsync/leadsync/internal/config"
	"github.com/leadsync/leadsync/internal/errors"
	"github.com/leadsync/leadsync/internal/facebook"
	"github.com/leadsync/leadsync/internal/logging"
	"github.com/leadsync/leadsync/internal/metrics"
	"github.com/leadsync/leadsync/internal/notify"
	"github.com/leadsync/leadsync/internal/store"
	syncsvc "github.com/leadsync/leadsync/internal/sync"
)

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	config      config.ServerConfig
	store       store.Store
	fb          *facebook.Client
	syncSvc     *syncsvc.Service
	sessions    *auth.SessionManager
	oauth       *auth.Handler
	notifier    *notify.Notifier
	metrics     *metrics.Metrics
	logger      *logging.Logger
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// Router returns the gin router for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, s store.Store, fb *facebook.Client, logger *logging.Logger, notifier *notify.Notifier) *Server {
	gin.SetMode(gin.ReleaseMode)

	m := metrics.NewMetrics("leadsync")

	rateLimiter := newIPRateLimiter(cfg.Server.RateLimit.RequestsPerMinute, cfg.Server.RateLimit.Burst)

	sessions := auth.NewSessionManager(s, cfg.Server.SessionTTL)

	server := &Server{
		router:      gin.New(),
		config:      cfg.Server,
		store:       s,
		fb:          fb,
		syncSvc:     syncsvc.NewService(fb, s, logger),
		sessions:    sessions,
		oauth:       auth.NewHandler(cfg.Facebook, fb, s, sessions, logger),
		notifier:    notifier,
		metrics:     m,
		logger:      logger,
		rateLimiter: rateLimiter,
	}
	server.router.HandleMethodNotAllowed = true

	// Add recovery middleware with logging
	server.router.Use(gin.Recovery())

	// Add rate limiting middleware
	server.router.Use(rateLimitMiddleware(rateLimiter))

	// Add metrics and logging middleware
	server.router.Use(metrics.Middleware(m, logger))

	// Add logging middleware for structured logs
	server.router.Use(loggingMiddleware(logger))

	server.setupRoutes()
	return server
}

// loggingMiddleware provides structured logging for all requests
func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Get or generate correlation ID
		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = logging.GenerateCorrelationID()
		}

		// Add to context
		ctx := logging.WithCorrelationID(c.Request.Context(), correlationID)
		c.Request = c.Request.WithContext(ctx)

		// Process request
		c.Next()

		// Log request completion
		duration := time.Since(start).Seconds()
		logger.InfoWithContext(ctx, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_seconds", duration,
		)
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint - NO authentication required
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// Health check - NO authentication required
	s.router.GET("/health", s.handleHealth)

	// OAuth login flow - NO authentication required
	s.router.GET("/auth/facebook", s.oauth.Login)
	s.router.GET("/auth/facebook/callback", s.oauth.Callback)
	s.router.GET("/logout", s.oauth.Logout)

	sessionRequired := auth.RequireSession(s.sessions)

	// Graph-backed endpoints - require a session
	apiGroup := s.router.Group("/api")
	apiGroup.Use(sessionRequired)
	{
		apiGroup.GET("/ad-accounts", s.handleAdAccounts)
		apiGroup.GET("/lead-forms/:accountId", s.handleLeadForms)
		apiGroup.GET("/leads/:formId", s.handleFormLeads)
		apiGroup.GET("/leads", s.handleStoredLeads)
		apiGroup.DELETE("/leads", s.handleDeleteLeads)
		apiGroup.POST("/sync-leads", s.handleSyncLeads)
		apiGroup.GET("/campaigns/:accountId", s.handleCampaigns)
	}

	// Export downloads - require a session
	exportGroup := s.router.Group("/export")
	exportGroup.Use(sessionRequired)
	{
		exportGroup.GET("/leads", s.handleExportCSV)
		exportGroup.GET("/leads/json", s.handleExportJSON)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort)

	// Create http server if not already created
	if s.httpServer == nil {
		s.httpServer = NewHTTPServer(addr, s.router)
	}

	s.logger.Info("starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// StartWithServer starts the server with a pre-configured http.Server
func (s *Server) StartWithServer(srv *http.Server) error {
	s.httpServer = srv
	s.logger.Info("starting HTTP server", "addr", srv.Addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	// Stop accepting new connections
	if s.httpServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logger.Info("shutting down HTTP server")
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.logger.Error("HTTP server shutdown error", "error", err.Error())
				errs <- &errors.ErrServerShutdown{Err: err}
			}
		}()
	}

	// Close store connections
	if s.store != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Close(); err != nil {
				errs <- fmt.Errorf("store close: %w", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(errs)
	var errList []error
	for err := range errs {
		if err != nil {
			errList = append(errList, err)
		}
	}
	if len(errList) > 0 {
		return fmt.Errorf("shutdown errors: %v", errList)
	}

	s.logger.Info("graceful shutdown completed")
	return nil
}

// handleHealth returns health status
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
