// Package inspect provides an HTTP diagnostic API over the FDP framing
// core: encode and decode packets, and examine tracked session state.
package inspect

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fdp-protocol/fdp-node/pkg/protocol"
	"github.com/fdp-protocol/fdp-node/pkg/session"
)

// Server is the HTTP diagnostic server
type Server struct {
	codec      *protocol.Codec
	tracker    *session.Tracker
	router     *gin.Engine
	port       int
	httpServer *http.Server
}

// Config holds server configuration
type Config struct {
	Port           int
	EnableCORS     bool
	RateLimit      int // Requests per minute
	MaxPayloadSize uint32
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		EnableCORS:     true,
		RateLimit:      100,
		MaxPayloadSize: protocol.DefaultMaxPayloadSize,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
	}
}

// NewServer creates a diagnostic server. The tracker is optional; session
// endpoints return 503 without one.
func NewServer(tracker *session.Tracker, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		codec:   protocol.NewCodec(config.MaxPayloadSize),
		tracker: tracker,
		router:  router,
		port:    config.Port,
	}

	server.setupMiddleware(config)
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(config *Config) {
	if config.EnableCORS {
		s.router.Use(CORSMiddleware())
	}

	s.router.Use(RateLimitMiddleware(config.RateLimit))
	s.router.Use(LoggingMiddleware())
	s.router.Use(gin.Recovery())
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		packet := v1.Group("/packet")
		{
			packet.POST("/decode", s.handleDecode)
			packet.POST("/encode", s.handleEncode)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.GET("", s.handleSessions)
			sessions.GET("/:id", s.handleSession)
		}
	}

	// Health check endpoint (outside versioning)
	s.router.GET("/health", s.handleHealth)
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"protocolVersion": protocol.ProtocolVersion,
		"maxPayloadSize":  s.codec.MaxPayloadSize,
	})
}
