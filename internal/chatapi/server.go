// Package chatapi is the HTTP webhook surface the chat transport (owned
// outside this module, per spec's Non-goals) posts turns to. It is a thin
// shell: parse the inbound payload, hand it to the Assistant Handler,
// serialize the outbound payload back.
package chatapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/meetingbrain/assistant/internal/assistant"
	"github.com/meetingbrain/assistant/internal/logging"
	"github.com/meetingbrain/assistant/internal/models"
)

// Server is the webhook HTTP surface fronting a Handler.
type Server struct {
	router  *mux.Router
	handler *assistant.Handler
	address string
	server  *http.Server
	logger  zerolog.Logger
}

// NewServer builds a Server bound to address, wired to handler.
func NewServer(address string, handler *assistant.Handler) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		handler: handler,
		address: address,
		logger:  logging.For("chatapi"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/turn", s.handleTurn).Methods("POST")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "meeting-assistant",
	})
}

// inboundTurn mirrors §6's "Inbound" chat-surface shape.
type inboundTurn struct {
	ThreadID        string          `json:"threadId"`
	MessageText     string          `json:"messageText"`
	ThreadMessages  string          `json:"threadMessages,omitempty"`
	ResolvedMeeting *models.Meeting `json:"resolvedMeeting,omitempty"`
}

// outboundTurn mirrors §6's "Outbound" shape.
type outboundTurn struct {
	Answer   string               `json:"answer"`
	Metadata models.TurnMetadata  `json:"metadata"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var in inboundTurn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if in.ThreadID == "" || in.MessageText == "" {
		s.writeError(w, http.StatusBadRequest, "threadId and messageText are required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	res, err := s.handler.Handle(ctx, assistant.Turn{
		ThreadID:        in.ThreadID,
		MessageText:     in.MessageText,
		ThreadMessages:  in.ThreadMessages,
		ResolvedMeeting: in.ResolvedMeeting,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to process turn", err)
		return
	}

	writeJSON(w, http.StatusOK, outboundTurn{Answer: res.Answer, Metadata: res.Metadata})
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		s.logger.Error().Err(err).Str("message", message).Msg("request failed")
	}
	writeJSON(w, statusCode, map[string]interface{}{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start runs the HTTP server until it exits or errors.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info().Str("address", s.address).Msg("starting chat surface server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("chatapi: listen: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down chat surface server")
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("chatapi: shutdown: %w", err)
	}
	return nil
}
