package main

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"kawourelay/internal/constants"
	"kawourelay/internal/errors"
	"kawourelay/internal/httputil"
	"kawourelay/internal/metrics"
	"kawourelay/internal/models"
	"kawourelay/internal/privacy"
	"kawourelay/internal/validation"

	"github.com/sirupsen/logrus"
)

// handleIngest accepts one relay envelope. Order matters: rate limit, then
// shared-secret auth, then validation. Resubmission of the same messageId is
// not deduplicated.
func (s *Server) handleIngest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := httputil.GetClientIP(r)

		if !s.ingestLimiter.Allow(clientIP) {
			metrics.IncrementCounter("ingest_rate_limited_total", nil)
			s.respondError(w, http.StatusTooManyRequests, "too many requests, slow down", nil)
			return
		}

		secret := r.Header.Get(constants.SharedSecretHeader)
		if subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.API.SharedSecret)) != 1 {
			s.logger.WithField("remote_ip", clientIP).Warn("Unauthorized ingest attempt")
			metrics.IncrementCounter("ingest_unauthorized_total", nil)
			s.respondError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, constants.DefaultMaxRequestBytes)

		var env models.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid data", nil)
			return
		}

		if details, err := validation.ValidateEnvelope(&env); err != nil {
			s.logger.WithField("details", details).Warn("Invalid envelope received")
			metrics.IncrementCounter("ingest_invalid_total", nil)
			s.respondError(w, http.StatusBadRequest, "invalid data", details)
			return
		}

		var savedMediaPath *string
		if env.Media != nil && s.store != nil {
			path, err := s.store.Store(env.MessageID, env.Media)
			if err != nil {
				// Storage is best effort; the message is still accepted.
				errors.LogWarning(s.logger, err, "Failed to store media")
			} else {
				savedMediaPath = &path
			}
		}

		content := ""
		if env.Content != nil {
			content = *env.Content
		}
		s.logger.WithFields(logrus.Fields{
			"group":     env.GroupName,
			"author":    env.Author.Name,
			"type":      env.Type,
			"preview":   privacy.ContentPreview(content, 100),
			"has_media": savedMediaPath != nil,
			"timestamp": env.Timestamp,
		}).Info("WhatsApp message received")

		metrics.IncrementCounter("ingest_accepted_total", map[string]string{"type": env.Type})

		s.respondJSON(w, http.StatusOK, models.APIResponse{
			Success:        true,
			Message:        "message processed",
			SavedMediaPath: savedMediaPath,
		})
	}
}

// handleContact validates a contact-form submission and relays it by mail.
func (s *Server) handleContact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := httputil.GetClientIP(r)

		if !s.contactLimiter.Allow(clientIP) {
			metrics.IncrementCounter("contact_rate_limited_total", nil)
			s.respondError(w, http.StatusTooManyRequests, "too many messages, try again later", nil)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, 1024*1024)

		var req models.ContactRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid data", nil)
			return
		}

		if details, err := validation.ValidateContactRequest(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid data", details)
			return
		}

		if s.mailer == nil {
			s.logger.Error("Contact request received but mail is not configured")
			s.respondError(w, http.StatusInternalServerError, "mail server not configured", nil)
			return
		}

		if err := s.mailer.SendContactMail(r.Context(), &req); err != nil {
			errors.LogError(s.logger, err, "Failed to send contact mail")
			metrics.IncrementCounter("contact_mail_failures_total", nil)
			s.respondError(w, http.StatusInternalServerError, "failed to send your message, please retry", nil)
			return
		}

		metrics.IncrementCounter("contact_mail_sent_total", nil)
		s.respondJSON(w, http.StatusOK, models.APIResponse{
			Success: true,
			Message: "your message has been sent",
		})
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "OK",
			"message":   "API operational",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   Version,
		})
	}
}

// handleTestGraph verifies Graph connectivity, for deployment checks.
func (s *Server) handleTestGraph() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.mailer == nil {
			s.respondError(w, http.StatusInternalServerError, "mail server not configured", nil)
			return
		}

		if err := s.mailer.Verify(r.Context()); err != nil {
			errors.LogError(s.logger, err, "Graph connection test failed")
			s.respondJSON(w, http.StatusOK, map[string]interface{}{
				"success":   true,
				"connected": false,
			})
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"connected": true,
		})
	}
}

func (s *Server) handleNotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "API route not found", nil)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string, details interface{}) {
	s.respondJSON(w, status, models.APIResponse{
		Success: false,
		Error:   message,
		Details: details,
	})
}
