package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kawourelay/internal/constants"
	"kawourelay/internal/middleware"
	"kawourelay/internal/models"
	"kawourelay/internal/relay"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server receives gateway webhook events and feeds them to the relay.
type Server struct {
	router        *mux.Router
	logger        *logrus.Logger
	pipeline      *relay.Relay
	cfg           *models.Config
	webhookSecret string
	server        *http.Server
}

func NewServer(cfg *models.Config, pipeline *relay.Relay, logger *logrus.Logger) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		logger:        logger,
		pipeline:      pipeline,
		cfg:           cfg,
		webhookSecret: cfg.Gateway.WebhookSecret,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/webhook/whatsapp", s.handleWebhook()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	port := s.cfg.Server.Port
	if port == 0 {
		port = constants.DefaultRelayServerPort
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting webhook server on port %d", port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// handleWebhook accepts a gateway event, verifies its signature when a
// webhook secret is configured, and enqueues message events. Non-message
// events and the session's own outgoing messages are acknowledged and
// ignored.
func (s *Server) handleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := verifyGatewaySignature(r, s.webhookSecret)
		if err != nil {
			s.logger.WithField("error", err.Error()).Warn("Webhook signature verification failed")
			respondJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"error":   "unauthorized",
			})
			return
		}

		var event models.GatewayWebhookPayload
		if err := json.Unmarshal(body, &event); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   "invalid payload",
			})
			return
		}

		if event.Event != models.EventMessage || event.Payload.FromMe {
			respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
			return
		}

		s.pipeline.Enqueue(event.ToInbound())
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
