package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lanecount-worker-go/internal/api/handlers"
	"lanecount-worker-go/internal/api/middleware"
	"lanecount-worker-go/internal/config"
)

// Dependencies are the services the HTTP API reads from. History, Source and
// Broker may be nil.
type Dependencies struct {
	Counter  handlers.Counter
	Status   handlers.StatusProvider
	Streamer handlers.FrameStreamer
	History  handlers.CrossingHistory
	Source   handlers.SourceMonitor
	Broker   handlers.BrokerMonitor
}

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler *handlers.HealthHandler
	countsHandler *handlers.CountsHandler
	streamHandler *handlers.StreamHandler
	systemHandler *handlers.SystemHandler
	workerHandler *handlers.WorkerHandler
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Counter == nil || deps.Status == nil || deps.Streamer == nil {
		return nil, errors.New("api server requires counter, status and streamer")
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:        cfg,
		router:        gin.New(),
		healthHandler: handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, deps.Status),
		countsHandler: handlers.NewCountsHandler(deps.Counter, deps.History),
		streamHandler: handlers.NewStreamHandler(deps.Streamer),
		systemHandler: handlers.NewSystemHandler(cfg.WorkerID, deps.Status, deps.Streamer, deps.Source, deps.Broker),
		workerHandler: handlers.NewWorkerHandler(cfg),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext(s.config.SourceID))
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting lane counter API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping lane counter API")
	return s.server.Shutdown(ctx)
}
