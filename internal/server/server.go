package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/smartinprabhu/newgpt/internal/config"
	"github.com/smartinprabhu/newgpt/internal/handlers"
	"github.com/smartinprabhu/newgpt/internal/logger"
	"github.com/smartinprabhu/newgpt/internal/orchestrator"
	"github.com/smartinprabhu/newgpt/internal/storage"
)

// Server owns the HTTP surface of the agent backend.
type Server struct {
	cfg    *config.Config
	store  storage.Store
	orch   *orchestrator.Orchestrator
	engine *gin.Engine
	http   *http.Server

	version string
}

// New wires the gin engine and routes. The orchestrator and store lifecycles
// remain owned by the caller.
func New(cfg *config.Config, store storage.Store, orch *orchestrator.Orchestrator, version string) *Server {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.Use(corsMiddleware(cfg.API.CORS))

	s := &Server{
		cfg:     cfg,
		store:   store,
		orch:    orch,
		engine:  engine,
		version: version,
	}
	s.registerRoutes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", handlers.RootHandler(s.version))
	s.engine.GET("/health", handlers.HealthHandler(s.store))

	agent := s.engine.Group("/api/agent")
	{
		agent.POST("/execute", handlers.ExecuteAgentHandler(s.orch))
		agent.POST("/execute/sync", handlers.ExecuteAgentSyncHandler(s.orch))
		agent.GET("/status/:task_id", handlers.GetTaskStatusHandler(s.orch.Tasks()))
	}

	session := s.engine.Group("/api/session")
	{
		session.GET("/:session_id", handlers.GetSessionHandler(s.orch.Sessions()))
		session.DELETE("/:session_id", handlers.DeleteSessionHandler(s.orch.Sessions()))
	}
}

// Engine exposes the underlying router for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Run serves until SIGINT/SIGTERM, then drains connections within the
// configured shutdown timeout.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info().Str("addr", s.http.Addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		c.Next()
		logger.Logger.Debug().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Msg("request handled")
	}
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	origins := strings.Join(cfg.AllowedOrigins, ", ")
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		if origins != "" {
			c.Header("Access-Control-Allow-Origin", origins)
		}
		if methods != "" {
			c.Header("Access-Control-Allow-Methods", methods)
		}
		if headers != "" {
			c.Header("Access-Control-Allow-Headers", headers)
		}
		if cfg.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
