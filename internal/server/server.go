// Package server exposes the content-safety pipeline to in-process
// collaborators over a small HTTP surface, plus a WebSocket feed of
// violation activity. The engines themselves stay transport-free.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Inovico-app/inovy-sub006/internal/classify"
	"github.com/Inovico-app/inovy-sub006/internal/config"
	"github.com/Inovico-app/inovy-sub006/internal/detect"
	"github.com/Inovico-app/inovy-sub006/internal/events"
	"github.com/Inovico-app/inovy-sub006/internal/guardrails"
	"github.com/Inovico-app/inovy-sub006/internal/logger"
	"github.com/gorilla/mux"
)

// Server wires the detection, classification and guardrails engines behind
// HTTP handlers.
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	detector   *detect.Detector
	aligner    *detect.Aligner
	classifier *classify.Engine
	guards     *guardrails.Engine
	hub        *events.Hub
	router     *mux.Router
	server     *http.Server
	limiter    *clientLimiter
}

// New creates a server around already-constructed engines.
func New(
	cfg *config.Config,
	log *logger.Logger,
	detector *detect.Detector,
	classifier *classify.Engine,
	guards *guardrails.Engine,
	hub *events.Hub,
) *Server {
	s := &Server{
		config:     cfg,
		logger:     log.WithComponent("server"),
		detector:   detector,
		aligner:    detect.NewAligner(detector),
		classifier: classifier,
		guards:     guards,
		hub:        hub,
		router:     mux.NewRouter(),
	}

	if cfg.Server.RateLimit.Enabled {
		s.limiter = newClientLimiter(cfg.Server.RateLimit.RequestsPerSec, cfg.Server.RateLimit.Burst)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	if s.config.Events.Enabled {
		s.router.HandleFunc(s.config.Events.Path, s.hub.HandleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/detect", s.handleDetect).Methods("POST")
	api.HandleFunc("/redact", s.handleRedact).Methods("POST")
	api.HandleFunc("/align", s.handleAlign).Methods("POST")
	api.HandleFunc("/classify", s.handleClassify).Methods("POST")
	api.HandleFunc("/guardrails/evaluate", s.handleEvaluate).Methods("POST")
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	if s.config.Events.Enabled {
		go s.hub.Run()
	}
	return s.server.ListenAndServe()
}

// Stop shuts down the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
