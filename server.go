package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"i4.energy/across/uwmodem/modem"
)

// Server handles incoming HTTP requests for interacting with the
// configured modem session
type Server struct {
	Logger  *slog.Logger
	Session *modem.Session
	// Events serves the websocket stream; nil disables /events
	Events http.Handler

	router *mux.Router
}

func NewServer(logger *slog.Logger, session *modem.Session, events http.Handler) *Server {
	s := &Server{Logger: logger, Session: session, Events: events}

	s.router = mux.NewRouter()
	s.router.HandleFunc("/send", s.handleSend).Methods(http.MethodPost)
	s.router.HandleFunc("/command", s.handleCommand).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if events != nil {
		s.router.Handle("/events", events).Methods(http.MethodGet)
	}
	return s
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// handleSend queues a packet for transmission. The outcome is reported on
// the event stream.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(req.Payload) == 0 {
		s.sendError(w, "'payload' is required", http.StatusBadRequest)
		return
	}

	p, err := submit(s.Session, req)
	switch {
	case errors.Is(err, modem.ErrPayloadTooLong):
		s.sendError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	case errors.Is(err, modem.ErrNotRunning):
		s.sendError(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		s.Logger.Error("Failed to queue packet", "error", err, "dst", req.Dst)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Info("Packet queued", "dst", p.Dst, "length", len(p.Payload), "ack", p.Ack)
	s.sendJSON(w, map[string]string{"status": "queued"}, http.StatusAccepted)
}

// CommandRequest is the body of POST /command
type CommandRequest struct {
	Command string `json:"command"`
	Arg     int    `json:"arg"`
}

func commandKind(name string) (modem.CommandKind, bool) {
	for k := modem.CommandDeliveryStatus; k <= modem.CommandPacketStatsReset; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// handleCommand runs a configuration or query command. Replies carrying
// data are published on the event stream.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	kind, ok := commandKind(req.Command)
	if !ok {
		s.sendError(w, "unknown command '"+req.Command+"'", http.StatusBadRequest)
		return
	}

	err := s.Session.Configure(r.Context(), modem.Command{Kind: kind, Arg: req.Arg})
	switch {
	case errors.Is(err, modem.ErrUnsupportedCommand):
		s.sendError(w, err.Error(), http.StatusNotImplemented)
		return
	case errors.Is(err, modem.ErrNotRunning):
		s.sendError(w, err.Error(), http.StatusServiceUnavailable)
		return
	case errors.Is(err, modem.ErrModemTimeout):
		s.sendError(w, err.Error(), http.StatusGatewayTimeout)
		return
	case errors.Is(err, modem.ErrCommandRejected):
		s.Logger.Warn("Command rejected", "error", err, "command", req.Command)
		s.sendError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		s.Logger.Error("Command failed", "error", err, "command", req.Command)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Info("Command completed", "command", req.Command)
	s.sendJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.Session.Health()
	status := http.StatusOK
	if !h.Running {
		status = http.StatusServiceUnavailable
	}
	s.sendJSON(w, h, status)
}
