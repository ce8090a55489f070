// Package api serves the dashboard's HTTP API over the configuration manager
// and the usage service.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ccdash/config"
	"ccdash/internal/metrics"
	"ccdash/internal/usage"
	"ccdash/internal/watcher"
)

// Options configure the HTTP listener.
type Options struct {
	Addr        string
	CORSOrigins []string
}

// Server wires the API routes to their collaborators. usage, metrics and
// watcher may be nil.
type Server struct {
	manager *config.Manager
	usage   *usage.Service
	metrics *metrics.Metrics
	watcher *watcher.Watcher

	engine *gin.Engine
	server *http.Server
}

func NewServer(opts Options, manager *config.Manager, usageSvc *usage.Service, m *metrics.Metrics, w *watcher.Watcher) *Server {
	s := &Server{
		manager: manager,
		usage:   usageSvc,
		metrics: m,
		watcher: w,
		engine:  gin.New(),
	}

	s.engine.Use(gin.Recovery(), requestLogger(), cors(opts.CORSOrigins))
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.health)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	cfg := s.engine.Group("/api/config")
	{
		cfg.GET("/list", s.listConfigs)
		cfg.GET("/current", s.currentConfig)
		cfg.GET("/version", s.configVersion)
		cfg.POST("/switch", s.switchConfig)
		cfg.POST("/create", s.createConfig)
		cfg.DELETE("/:id", s.deleteConfig)
		cfg.GET("/backups", s.listBackups)
		cfg.POST("/backups", s.createBackup)
		cfg.POST("/backups/restore", s.restoreBackup)
	}

	u := s.engine.Group("/api/usage")
	{
		u.GET("/dashboard", s.usageDashboard)
		u.GET("/statistics", s.usageStatistics)
		u.POST("/records", s.recordUsage)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, envelope{Error: "route not found"})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	log.WithField("addr", s.server.Addr).Info("dashboard API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request through logrus at debug level, and at warn
// level for server errors.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Microsecond),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request")
	}
}

// cors allows the configured browser origins. An origin of "*" allows any.
func cors(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
