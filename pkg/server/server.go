package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"restockbot/pkg/config"
	"restockbot/pkg/handlers"
	"restockbot/pkg/logger"
	"restockbot/pkg/middleware"
)

// Server constants
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
)

// HTTPServer exposes the bot's status API. It is read-mostly: the only
// mutating endpoint is the manual refresh trigger.
type HTTPServer struct {
	server     *http.Server
	router     *gin.Engine
	config     *config.ServerConfig
	handlerSvc *handlers.HandlerService
}

// NewHTTPServer creates a new HTTP server instance
func NewHTTPServer(cfg *config.ServerConfig, handlerSvc *handlers.HandlerService, development bool) *HTTPServer {
	logger.Info("Initializing HTTP server",
		zap.String("address", cfg.Address),
		zap.Int("port", cfg.Port))

	if !development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	s := &HTTPServer{
		router:     router,
		config:     cfg,
		handlerSvc: handlerSvc,
	}
	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}

	logger.Info("HTTP server initialized", zap.String("listen_addr", addr))
	return s
}

func (s *HTTPServer) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.GinZapLogger())
	s.router.Use(middleware.ErrorHandler())

	// The API binds to loopback by default; permissive CORS just keeps
	// local dashboards working.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	s.router.Use(cors.New(corsConfig))
}

// setupRoutes configures all HTTP routes
func (s *HTTPServer) setupRoutes() {
	s.router.GET("/health", s.handlerSvc.HealthCheck)

	api := s.router.Group("/api/v1")
	{
		api.GET("/status", s.handlerSvc.GetStatus)
		api.GET("/config", s.handlerSvc.GetAppConfig)
		api.GET("/trackers", s.handlerSvc.GetTrackers)
		api.GET("/trackers/:name", s.handlerSvc.GetTracker)
		api.GET("/purchases", s.handlerSvc.GetPurchases)
		api.GET("/scheduler/jobs", s.handlerSvc.GetScheduledJobs)
		api.POST("/refresh", s.handlerSvc.RefreshTrackers)
	}

	logger.Info("HTTP routes configured")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	return nil
}
