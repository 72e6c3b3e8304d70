// ABOUTME: HTTP handlers for the conversation REST endpoints.
// ABOUTME: Serves history, summaries, turn start/stop, and permission decisions.

package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hcnode/cui/internal/api"
	"github.com/hcnode/cui/internal/conversation"
	"github.com/hcnode/cui/internal/store"
)

// List bounds matching what the client requests.
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// decisionRequest is the JSON request body for permission decisions.
type decisionRequest struct {
	Action     string `json:"action"`
	DenyReason string `json:"deny_reason,omitempty"`
}

// sendJSON writes a JSON response with the given status code.
func (s *Server) sendJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// parseLimit parses an optional ?limit=N query parameter.
func parseLimit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return defaultListLimit, nil
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if parsed > maxListLimit {
		parsed = maxListLimit
	}
	return parsed, nil
}

// handleConversations handles GET /api/conversations requests.
// Returns recent conversations ordered by last activity, newest first.
func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions, err := s.store.ListSessions(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	summaries := make([]api.ConversationSummary, 0, len(sessions))
	for _, session := range sessions {
		count, err := s.store.CountMessages(r.Context(), session.ID)
		if err != nil {
			s.logger.Error("failed to count messages", "session_id", session.ID, "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		summaries = append(summaries, api.ConversationSummary{
			SessionID:   session.ID,
			Status:      session.Status,
			StreamingID: session.StreamingID,
			SessionInfo: api.SessionInfo{
				Title: session.Title,
				Cwd:   session.Cwd,
				Model: session.Model,
			},
			Summary:      session.Title,
			ProjectPath:  session.Cwd,
			MessageCount: count,
			UpdatedAt:    session.UpdatedAt,
		})
	}

	s.sendJSON(w, http.StatusOK, map[string]interface{}{"conversations": summaries})
}

// handleConversationRoutes dispatches /api/conversations/{...} subpaths.
func (s *Server) handleConversationRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/conversations/")

	switch {
	case path == "start":
		s.handleStartConversation(w, r)
	case path == "" || strings.Contains(path, "/"):
		s.sendJSONError(w, http.StatusBadRequest, "invalid path")
	default:
		s.handleConversationDetails(w, r, path)
	}
}

// handleStartConversation handles POST /api/conversations/start requests.
// Starts a simulated turn and returns the session to load it under.
func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var opts api.StartOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sessionID, streamingID, err := s.engine.StartTurn(r.Context(), conversation.StartTurnOptions{
		ResumedSessionID: opts.ResumedSessionID,
		Prompt:           opts.InitialPrompt,
		WorkingDir:       opts.WorkingDirectory,
		Model:            opts.Model,
		PermissionMode:   opts.PermissionMode,
	})
	if errors.Is(err, conversation.ErrEmptyPrompt) {
		s.sendJSONError(w, http.StatusBadRequest, "initial_prompt is required")
		return
	}
	if errors.Is(err, conversation.ErrTurnInFlight) {
		s.sendJSONError(w, http.StatusConflict, "session already has a turn in flight")
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to start turn", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]string{
		"session_id":   sessionID,
		"streaming_id": streamingID,
	})
}

// handleConversationDetails handles GET /api/conversations/{id} requests.
// Returns the full transcript for a session in insertion order.
func (s *Server) handleConversationDetails(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if _, err := s.store.GetSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.sendJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("failed to get session", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	messages, err := s.store.SessionMessages(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("failed to get messages", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	wire := make([]api.RawMessage, 0, len(messages))
	for _, msg := range messages {
		wire = append(wire, s.messageToWire(msg))
	}

	s.sendJSON(w, http.StatusOK, map[string]interface{}{"messages": wire})
}

// messageToWire converts a stored transcript entry to its wire shape. A
// malformed body is served without the nested message rather than dropped,
// so the transcript keeps its length.
func (s *Server) messageToWire(msg *store.Message) api.RawMessage {
	raw := api.RawMessage{
		UUID:        msg.UUID,
		Type:        msg.Type,
		Timestamp:   msg.CreatedAt,
		Cwd:         msg.Cwd,
		IsSidechain: msg.IsSidechain,
	}

	var body api.MessageBody
	if err := json.Unmarshal([]byte(msg.Content), &body); err != nil {
		s.logger.Warn("stored message body is malformed", "message_id", msg.ID, "error", err)
		return raw
	}
	raw.Message = &body
	return raw
}

// handleStreamRoutes dispatches /api/stream/{id} and /api/stream/{id}/stop.
func (s *Server) handleStreamRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/stream/")

	switch {
	case strings.HasSuffix(path, "/stop"):
		s.handleStopStream(w, r, strings.TrimSuffix(path, "/stop"))
	case path != "" && !strings.Contains(path, "/"):
		s.handleStream(w, r, path)
	default:
		s.sendJSONError(w, http.StatusBadRequest, "invalid path")
	}
}

// handleStopStream handles POST /api/stream/{id}/stop requests. Stopping a
// stream that already ended succeeds; the turn may have completed between
// the client's check and the request.
func (s *Server) handleStopStream(w http.ResponseWriter, r *http.Request, streamingID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if streamingID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "streaming id is required")
		return
	}

	err := s.engine.StopTurn(r.Context(), streamingID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("failed to stop turn", "streaming_id", streamingID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListPermissions handles GET /api/permissions requests, filtered by
// the optional streaming_id and status query parameters.
func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "", store.PermissionPending, store.PermissionApproved, store.PermissionDenied:
	default:
		s.sendJSONError(w, http.StatusBadRequest, "status must be pending, approved, or denied")
		return
	}

	reqs, err := s.store.ListPermissions(r.Context(), r.URL.Query().Get("streaming_id"), status)
	if err != nil {
		s.logger.Error("failed to list permissions", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	wire := make([]api.PermissionRequest, 0, len(reqs))
	for _, req := range reqs {
		wire = append(wire, api.PermissionRequest{
			ID:          req.ID,
			StreamingID: req.StreamingID,
			ToolName:    req.ToolName,
			Input:       json.RawMessage(req.Input),
			Timestamp:   req.CreatedAt,
			Status:      req.Status,
		})
	}

	s.sendJSON(w, http.StatusOK, map[string]interface{}{"permissions": wire})
}

// handlePermissionRoutes dispatches /api/permissions/{id}/decision.
func (s *Server) handlePermissionRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/permissions/")
	if !strings.HasSuffix(path, "/decision") {
		s.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	requestID := strings.TrimSuffix(path, "/decision")
	if requestID == "" || strings.Contains(requestID, "/") {
		s.sendJSONError(w, http.StatusBadRequest, "request id is required")
		return
	}
	s.handleDecision(w, r, requestID)
}

// handleDecision handles POST /api/permissions/{id}/decision requests.
// The first decision wins; later ones get a conflict.
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request, requestID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Action != api.DecisionApprove && req.Action != api.DecisionDeny {
		s.sendJSONError(w, http.StatusBadRequest, "action must be approve or deny")
		return
	}

	err := s.engine.Decide(r.Context(), requestID, req.Action, req.DenyReason)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "permission request not found")
		return
	}
	if errors.Is(err, store.ErrAlreadyResolved) {
		s.sendJSONError(w, http.StatusConflict, "permission request already resolved")
		return
	}
	if err != nil {
		s.logger.Error("failed to decide permission request", "request_id", requestID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.metrics.decisionRecorded(req.Action)
	w.WriteHeader(http.StatusNoContent)
}
