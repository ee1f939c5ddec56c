// Package server exposes the orchestrator over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"github.com/sweetpotato0/kgpgpt/conversation"
	"github.com/sweetpotato0/kgpgpt/middleware"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
	"github.com/sweetpotato0/kgpgpt/pkg/metrics"
	"github.com/sweetpotato0/kgpgpt/rag/agentic"
)

// Defaults for Options left zero.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultHealthCacheTTL = 30 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// Querier is the orchestrator as seen by the transport.
type Querier interface {
	Process(ctx context.Context, req agentic.Request) (*agentic.OrchestrationResult, error)
	Health(ctx context.Context) *agentic.HealthReport
}

// Options configures a Server.
type Options struct {
	RequestTimeout time.Duration
	HealthCacheTTL time.Duration
	// Chain wraps every query. Nil means no middleware.
	Chain *middleware.Chain
	// Store enables the conversation routes and turn persistence.
	Store conversation.Store
	// Summary is merged into the health response under "config".
	Summary map[string]any
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

// Server serves the query, health, metrics and conversation routes.
type Server struct {
	querier Querier
	opts    Options
	logger  *slog.Logger
	engine  *gin.Engine

	health      *ristretto.Cache[string, *agentic.HealthReport]
	healthGroup singleflight.Group
}

// New builds the router.
func New(querier Querier, opts Options) (*Server, error) {
	if querier == nil {
		return nil, errors.New("server: querier is required")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.HealthCacheTTL <= 0 {
		opts.HealthCacheTTL = DefaultHealthCacheTTL
	}
	if opts.Chain == nil {
		opts.Chain = middleware.NewChain()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.WithComponent("http")
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *agentic.HealthReport]{
		NumCounters: 100,
		MaxCost:     10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create health cache: %w", err)
	}

	s := &Server{
		querier: querier,
		opts:    opts,
		logger:  logger,
		health:  cache,
	}
	s.engine = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.accessLog())

	api := router.Group("/api")
	api.POST("/query", s.handleQuery)
	api.GET("/query", s.handleQueryInfo)
	api.GET("/health", s.handleHealth)

	if s.opts.Store != nil {
		conv := api.Group("/conversations")
		conv.POST("", s.createConversation)
		conv.GET("", s.listConversations)
		conv.GET("/:id", s.getConversation)
		conv.DELETE("/:id", s.deleteConversation)
		conv.GET("/:id/messages", s.listMessages)
		conv.POST("/:id/messages", s.addMessage)
	}

	reg := s.opts.Metrics.Registry()
	if reg != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	return router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server shutdown completed")
	return nil
}

// Close releases the health cache.
func (s *Server) Close() {
	s.health.Close()
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}

const healthKey = "system"

// systemHealth returns the cached report, probing at most once per TTL even
// under concurrent requests.
func (s *Server) systemHealth(ctx context.Context) *agentic.HealthReport {
	if report, ok := s.health.Get(healthKey); ok {
		return report
	}
	v, _, _ := s.healthGroup.Do(healthKey, func() (any, error) {
		report := s.querier.Health(context.WithoutCancel(ctx))
		s.health.SetWithTTL(healthKey, report, 1, s.opts.HealthCacheTTL)
		s.health.Wait()
		return report, nil
	})
	return v.(*agentic.HealthReport)
}
