package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/application/command"
	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
	"github.com/studyhub/study-tracker-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"name":        "Study Tracker Hub API",
		"version":     "v1",
		"description": "Session command API for the group study-time tracker",
		"endpoints": map[string]string{
			"health":   "/health",
			"start":    "/api/v1/sessions/{id}/start",
			"pause":    "/api/v1/sessions/{id}/pause",
			"resume":   "/api/v1/sessions/{id}/resume",
			"end":      "/api/v1/sessions/{id}/end",
			"presence": "/api/v1/presence",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION COMMAND HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// sessionRequest is the optional JSON body of the session command endpoints.
type sessionRequest struct {
	// DisplayName is required on start, ignored elsewhere.
	DisplayName string `json:"display_name,omitempty"`

	// Timestamp overrides the command instant, mainly for tests.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// decodeSessionRequest parses the request body, tolerating an empty one.
func decodeSessionRequest(r *http.Request) (sessionRequest, error) {
	var req sessionRequest

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		return req, err
	}
	defer r.Body.Close()

	if len(body) == 0 {
		return req, nil
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, err
	}
	return req, nil
}

// handleStartSession handles POST /api/v1/sessions/{id}/start
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.StartSessionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Start handler not configured")
		return
	}

	req, err := decodeSessionRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}
	if req.DisplayName == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "display_name is required")
		return
	}

	result, err := s.deps.StartSessionHandler.Handle(r.Context(), command.StartSessionCommand{
		UserID:      userID,
		DisplayName: req.DisplayName,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		s.writeCommandError(w, r, "start_session", userID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handlePauseSession handles POST /api/v1/sessions/{id}/pause
func (s *Server) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.PauseSessionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Pause handler not configured")
		return
	}

	req, err := decodeSessionRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	result, err := s.deps.PauseSessionHandler.Handle(r.Context(), command.PauseSessionCommand{
		UserID:    userID,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		s.writeCommandError(w, r, "pause_session", userID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleResumeSession handles POST /api/v1/sessions/{id}/resume
func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.ResumeSessionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Resume handler not configured")
		return
	}

	req, err := decodeSessionRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	result, err := s.deps.ResumeSessionHandler.Handle(r.Context(), command.ResumeSessionCommand{
		UserID:    userID,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		s.writeCommandError(w, r, "resume_session", userID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleEndSession handles POST /api/v1/sessions/{id}/end
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.EndSessionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "End handler not configured")
		return
	}

	req, err := decodeSessionRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	result, err := s.deps.EndSessionHandler.Handle(r.Context(), command.EndSessionCommand{
		UserID:    userID,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		s.writeCommandError(w, r, "end_session", userID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleEnsurePresence handles POST /api/v1/presence
func (s *Server) handleEnsurePresence(w http.ResponseWriter, r *http.Request) {
	if s.deps.EnsurePresenceHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Presence handler not configured")
		return
	}

	var req struct {
		UserID      string    `json:"user_id"`
		DisplayName string    `json:"display_name"`
		Timestamp   time.Time `json:"timestamp,omitempty"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}
	defer r.Body.Close()

	if req.UserID == "" || req.DisplayName == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "user_id and display_name are required")
		return
	}

	result, err := s.deps.EnsurePresenceHandler.Handle(r.Context(), command.EnsurePresenceCommand{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		s.writeCommandError(w, r, "ensure_presence", req.UserID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeCommandError maps domain errors to HTTP statuses. Invalid transitions
// are client conflicts, not server failures.
func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, op, userID string, err error) {
	switch {
	case errors.Is(err, shared.ErrAlreadyActive):
		writeJSONError(w, http.StatusConflict, "already_active", "A session is already in progress")
	case errors.Is(err, shared.ErrAlreadyPaused):
		writeJSONError(w, http.StatusConflict, "already_paused", "The session is already paused")
	case errors.Is(err, shared.ErrNotPaused):
		writeJSONError(w, http.StatusConflict, "not_paused", "The session is not paused")
	case errors.Is(err, shared.ErrNoActiveSession):
		writeJSONError(w, http.StatusConflict, "no_active_session", "No session is in progress")
	case errors.Is(err, shared.ErrSessionTooShort):
		writeJSONError(w, http.StatusUnprocessableEntity, "session_too_short", "The session is too short to record")
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", "User not found")
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.logger.Error("command failed",
			logger.Operation(op),
			logger.UserID(userID),
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Command failed")
	}
}
