package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/config"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/interfaces"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
)

// HealthCheck reports the health of one dependency by name.
type HealthCheck func() error

// Server exposes the websocket upgrade endpoint plus health and metrics.
type Server struct {
	hub    *Hub
	cfg    *config.Config
	http   *http.Server
	logger *logrus.Entry
	base   *logger.Logger
	tokens interfaces.TokenService
	verify interfaces.VerificationService
	checks map[string]HealthCheck
}

// NewServer wires the hub into an HTTP server with /ws, /health, /metrics
// and verification-code routes. A non-nil token service gates the upgrade:
// a presented token must verify, while token-less upgrades are still
// admitted and authenticate later through their online announcement.
func NewServer(cfg *config.Config, h *Hub, log *logger.Logger, tokens interfaces.TokenService, verify interfaces.VerificationService, checks map[string]HealthCheck) *Server {
	s := &Server{
		hub:    h,
		cfg:    cfg,
		logger: log.WithComponent("server"),
		base:   log,
		tokens: tokens,
		verify: verify,
		checks: checks,
	}

	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleUpgrade)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/auth/verification-codes", s.handleSendCode).Methods(http.MethodPost)
	router.HandleFunc("/auth/verification-codes/confirm", s.handleConfirmCode).Methods(http.MethodPost)

	s.http = &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

// Start begins serving. Blocks until the listener fails or is closed.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.http.Addr).Info("Realtime gateway listening")
	return s.http.ListenAndServe()
}

// Shutdown drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down realtime gateway")
	return s.http.Shutdown(ctx)
}

// handleUpgrade accepts a websocket and attaches it to the hub.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.tokens != nil {
		if token := r.URL.Query().Get("token"); token != "" {
			if _, err := s.tokens.VerifyToken(token); err != nil {
				s.logger.WithError(err).Warn("Rejecting upgrade with invalid token")
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
		}
	}

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to accept websocket connection")
		return
	}

	conn := NewConnection(r.Context(), sock, ConnectionConfig{
		ReadTimeout: s.cfg.Realtime.SocketReadTimeoutDuration(),
		SendBuffer:  s.cfg.Realtime.SendBufferSize,
	}, s.base)

	s.hub.Attach(conn)
	conn.Run()

	// The connection context is derived from the request context, which
	// net/http cancels as soon as this handler returns. Block until the
	// connection terminates so the pumps outlive the handshake.
	<-conn.Done()
}

// handleSendCode issues a verification code and delivers it out of band.
func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	if s.verify == nil {
		http.Error(w, "verification is not configured", http.StatusNotImplemented)
		return
	}

	var req struct {
		Identity    string `json:"identity"`
		Channel     string `json:"channel"`
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" || req.Channel == "" || req.Destination == "" {
		http.Error(w, "identity, channel and destination are required", http.StatusBadRequest)
		return
	}

	if err := s.verify.SendCode(req.Identity, req.Channel, req.Destination); err != nil {
		s.logger.WithError(err).Warn("Failed to send verification code")
		http.Error(w, "failed to send verification code", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "sent"})
}

// handleConfirmCode checks a presented verification code.
func (s *Server) handleConfirmCode(w http.ResponseWriter, r *http.Request) {
	if s.verify == nil {
		http.Error(w, "verification is not configured", http.StatusNotImplemented)
		return
	}

	var req struct {
		Identity string `json:"identity"`
		Code     string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" || req.Code == "" {
		http.Error(w, "identity and code are required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !s.verify.Confirm(req.Identity, req.Code) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]bool{"verified": false})
		return
	}
	json.NewEncoder(w).Encode(map[string]bool{"verified": true})
}

// handleHealth reports gateway and dependency health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}

	for name, check := range s.checks {
		if err := check(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body[name] = err.Error()
		} else {
			body[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
