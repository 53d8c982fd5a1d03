// Package api exposes transaction matching over HTTP.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Veraticus/txmatch/internal/engine"
	"github.com/Veraticus/txmatch/internal/model"
)

// Config holds API server configuration.
type Config struct {
	// TLS, when set, serves HTTPS with this configuration.
	TLS            *tls.Config
	AllowedOrigins []string
	Port           int
	MaxBatch       int
}

// DefaultConfig returns the defaults used by txmatch serve.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		MaxBatch:       1000,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8080"},
	}
}

// Server serves the chart of accounts and runs the matching engine on request.
type Server struct {
	engine *engine.MatchingEngine
	chart  *model.ChartOfAccounts
	logger *slog.Logger
	router *gin.Engine
	config Config
}

// NewServer builds the router. A nil logger uses slog.Default.
func NewServer(cfg Config, chart *model.ChartOfAccounts, eng *engine.MatchingEngine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultConfig().MaxBatch
	}

	s := &Server{
		engine: eng,
		chart:  chart,
		logger: logger,
		config: cfg,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:  s.config.AllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/accounts", s.listAccounts)
		api.POST("/match", s.match)
	}

	s.router = router
}

// requestLogger logs every request except health checks through slog.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/api/health" {
			return
		}
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         s.config.TLS,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "port", s.config.Port, "tls", srv.TLSConfig != nil)
		var err error
		if srv.TLSConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}
