// Package server exposes agents and runs over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prathyushnallamothu/swarmollama"
	"github.com/prathyushnallamothu/swarmollama/store"
	"github.com/prathyushnallamothu/swarmollama/visualization"
)

// Options configure a Server. Only Store is required.
type Options struct {
	Store store.Store
	// Events, when set, is served at /ws and receives every run's events.
	Events *visualization.Server
	// Gatherer, when set, is served at /metrics.
	Gatherer prometheus.Gatherer
	// Hooks are attached to every run in addition to the store recorder.
	Hooks      []swarmollama.RunHook
	RunTimeout time.Duration
	Logger     *slog.Logger
}

// Server serves the HTTP API
type Server struct {
	swarm    *swarmollama.Swarm
	registry *swarmollama.Registry
	store    store.Store
	hooks    swarmollama.MultiHook
	timeout  time.Duration
	logger   *slog.Logger
	engine   *gin.Engine
}

// New creates a server running agents from registry on sw. The registry is frozen.
func New(sw *swarmollama.Swarm, registry *swarmollama.Registry, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry.Freeze()

	s := &Server{
		swarm:    sw,
		registry: registry,
		store:    opts.Store,
		timeout:  opts.RunTimeout,
		logger:   logger,
	}
	s.hooks = append(s.hooks, store.NewRecorder(opts.Store, logger))
	if opts.Events != nil {
		s.hooks = append(s.hooks, visualization.NewHook(opts.Events))
	}
	s.hooks = append(s.hooks, opts.Hooks...)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	engine.GET("/healthz", s.health)
	v1 := engine.Group("/v1")
	{
		v1.GET("/agents", s.listAgents)
		v1.GET("/agents/:name", s.getAgent)
		v1.POST("/runs", s.createRun)
		v1.GET("/runs", s.listRuns)
		v1.GET("/runs/:id", s.getRun)
	}
	if opts.Events != nil {
		engine.GET("/ws", gin.WrapH(opts.Events))
	}
	if opts.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	s.engine = engine
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.start", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server.shutdown")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
