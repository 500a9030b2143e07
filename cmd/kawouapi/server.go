package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kawourelay/internal/constants"
	"kawourelay/internal/middleware"
	"kawourelay/internal/models"
	"kawourelay/internal/storage"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ContactMailer sends contact-form mail. Nil when Graph is not configured.
type ContactMailer interface {
	SendContactMail(ctx context.Context, req *models.ContactRequest) error
	Verify(ctx context.Context) error
}

// Server is the backend API: envelope ingress, contact form, health and
// metrics.
type Server struct {
	router         *mux.Router
	logger         *logrus.Logger
	cfg            *models.Config
	store          *storage.MediaStore
	mailer         ContactMailer
	ingestLimiter  *RateLimiter
	contactLimiter *RateLimiter
	server         *http.Server
	stopCleanup    chan struct{}
}

func NewServer(cfg *models.Config, store *storage.MediaStore, mailer ContactMailer, logger *logrus.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		cfg:    cfg,
		store:  store,
		mailer: mailer,
		ingestLimiter: NewRateLimiter(cfg.Server.IngestRateLimit.MaxRequests,
			time.Duration(cfg.Server.IngestRateLimit.WindowSec)*time.Second),
		contactLimiter: NewRateLimiter(cfg.Server.ContactRateLimit.MaxRequests,
			time.Duration(cfg.Server.ContactRateLimit.WindowSec)*time.Second),
		stopCleanup: make(chan struct{}),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/api/whatsapp", s.handleIngest()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/contact", s.handleContact()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/test-graph", s.handleTestGraph()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	if s.store != nil {
		s.router.PathPrefix("/media/").Handler(
			http.StripPrefix("/media/", http.FileServer(http.Dir(s.store.Dir()))))
	}

	// JSON 404 for anything else under /api/
	s.router.PathPrefix("/api/").HandlerFunc(s.handleNotFound())
}

func (s *Server) Start() error {
	port := s.cfg.Server.Port
	if port == 0 {
		port = constants.DefaultAPIServerPort
	}

	s.ingestLimiter.StartCleanup(s.stopCleanup)
	s.contactLimiter.StartCleanup(s.stopCleanup)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting API server on port %d", port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopCleanup)
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
