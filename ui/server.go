// Package ui exposes the model over an HTTP JSON API.
package ui

import (
	"sync"

	"github.com/gin-gonic/gin"

	"gasx/app"
	"gasx/domain/core"
	"gasx/internal"
	"gasx/internal/config"
)

// Server holds the API router plus the in-memory registry of fitted
// models, keyed by run id so forecasts can address an earlier fit.
type Server struct {
	router *gin.Engine
	svc    *app.FitService
	cfg    *config.Config
	log    *internal.Logger

	mu     sync.RWMutex
	models map[core.RunID]*app.GASX
}

// NewServer creates a server around a fit service.
func NewServer(cfg *config.Config, svc *app.FitService, log *internal.Logger) *Server {
	if log == nil {
		log = internal.DefaultLogger
	}
	gin.SetMode(cfg.Server.GinMode)

	s := &Server{
		router: gin.New(),
		svc:    svc,
		cfg:    cfg,
		log:    log.With("api"),
		models: make(map[core.RunID]*app.GASX),
	}
	s.router.Use(gin.Recovery(), s.requestLog())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/fit", s.handleFit)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
		api.POST("/runs/:id/predict", s.handlePredict)
		api.POST("/runs/:id/predict-is", s.handlePredictIS)
		api.POST("/runs/:id/ppc", s.handlePPC)
	}
}

// requestLog emits one line per request at debug level.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

// Run blocks serving HTTP on the configured port.
func (s *Server) Run() error {
	addr := ":" + s.cfg.Server.Port
	s.log.Info("listening on %s", addr)
	return s.router.Run(addr)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) register(id core.RunID, m *app.GASX) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[id] = m
}

func (s *Server) model(id core.RunID) (*app.GASX, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	return m, ok
}
