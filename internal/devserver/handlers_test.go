// ABOUTME: Tests for the REST handlers of the dev backend.
// ABOUTME: Exercises routing, validation, error envelopes, and store mapping.

package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hcnode/cui/internal/api"
	"github.com/hcnode/cui/internal/auth"
	"github.com/hcnode/cui/internal/config"
	"github.com/hcnode/cui/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.MockStore) {
	t.Helper()
	return newTestServerWithConfig(t, nil)
}

func newTestServerWithConfig(t *testing.T, mutate func(*config.Config)) (*Server, *store.MockStore) {
	t.Helper()

	cfg := config.Default()
	cfg.Engine.StepDelay = 10 * time.Millisecond
	cfg.Engine.DecisionTimeout = 5 * time.Second
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMockStore()

	srv, err := NewWithStore(cfg, st, logger)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return srv, st
}

func seedSession(t *testing.T, st *store.MockStore, session *store.Session) {
	t.Helper()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}
	if err := st.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("seeding session failed: %v", err)
	}
}

func seedMessage(t *testing.T, st *store.MockStore, sessionID, id string, body api.MessageBody, when time.Time) {
	t.Helper()
	content, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling message body failed: %v", err)
	}
	msg := &store.Message{
		ID:        id,
		SessionID: sessionID,
		UUID:      "uuid-" + id,
		Type:      body.Role,
		Content:   string(content),
		CreatedAt: when,
	}
	if err := st.SaveMessage(context.Background(), msg); err != nil {
		t.Fatalf("seeding message failed: %v", err)
	}
}

func doRequest(srv *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	return envelope["error"]
}

func waitForSessionStatus(t *testing.T, st store.Store, sessionID, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		session, err := st.GetSession(context.Background(), sessionID)
		if err == nil && session.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s never reached status %q", sessionID, want)
}

func TestHandleConversations_Empty(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/conversations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp struct {
		Conversations []api.ConversationSummary `json:"conversations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Conversations == nil {
		t.Error("conversations should be an empty array, not null")
	}
	if len(resp.Conversations) != 0 {
		t.Errorf("expected 0 conversations, got %d", len(resp.Conversations))
	}
}

func TestHandleConversations_ListsRecentFirst(t *testing.T) {
	srv, st := newTestServer(t)

	base := time.Now().UTC().Add(-time.Hour)
	seedSession(t, st, &store.Session{
		ID: "sess-old", Title: "old work", Status: store.SessionCompleted,
		CreatedAt: base, UpdatedAt: base,
	})
	seedSession(t, st, &store.Session{
		ID: "sess-live", Title: "live work", Cwd: "/tmp/proj", Model: "sim-1",
		Status: store.SessionOngoing, StreamingID: "stream-1",
		CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	})
	seedMessage(t, st, "sess-live", "01AAA", api.MessageBody{Role: "user", Content: api.ContentValue{Text: "hi"}}, base)
	seedMessage(t, st, "sess-live", "01AAB", api.MessageBody{Role: "assistant", Content: api.ContentValue{Text: "hello"}}, base)

	rec := doRequest(srv, http.MethodGet, "/api/conversations?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp struct {
		Conversations []api.ConversationSummary `json:"conversations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(resp.Conversations))
	}

	first := resp.Conversations[0]
	if first.SessionID != "sess-live" {
		t.Errorf("expected sess-live first, got %s", first.SessionID)
	}
	if first.Status != api.StatusOngoing {
		t.Errorf("expected ongoing status, got %q", first.Status)
	}
	if first.StreamingID != "stream-1" {
		t.Errorf("expected streaming id stream-1, got %q", first.StreamingID)
	}
	if first.SessionInfo.Title != "live work" {
		t.Errorf("expected title in session_info, got %q", first.SessionInfo.Title)
	}
	if first.SessionInfo.Cwd != "/tmp/proj" {
		t.Errorf("expected cwd in session_info, got %q", first.SessionInfo.Cwd)
	}
	if first.MessageCount != 2 {
		t.Errorf("expected message count 2, got %d", first.MessageCount)
	}
	if resp.Conversations[1].SessionID != "sess-old" {
		t.Errorf("expected sess-old second, got %s", resp.Conversations[1].SessionID)
	}
}

func TestHandleConversations_InvalidLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, limit := range []string{"abc", "0", "-5"} {
		rec := doRequest(srv, http.MethodGet, "/api/conversations?limit="+limit, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: expected status %d, got %d", limit, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestHandleConversations_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodDelete, "/api/conversations", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestHandleConversationDetails(t *testing.T) {
	srv, st := newTestServer(t)

	now := time.Now().UTC().Truncate(time.Second)
	seedSession(t, st, &store.Session{ID: "sess-1", Status: store.SessionCompleted})
	seedMessage(t, st, "sess-1", "01AAA", api.MessageBody{Role: "user", Content: api.ContentValue{Text: "run it"}}, now)
	seedMessage(t, st, "sess-1", "01AAB", api.MessageBody{Role: "assistant", Content: api.ContentValue{Blocks: []api.ContentBlock{
		{Type: api.BlockToolUse, ID: "tool-1", Name: "sh", Input: json.RawMessage(`{"command":"ls"}`)},
	}}}, now.Add(time.Second))

	rec := doRequest(srv, http.MethodGet, "/api/conversations/sess-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp struct {
		Messages []api.RawMessage `json:"messages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(resp.Messages))
	}

	if resp.Messages[0].Message == nil || resp.Messages[0].Message.Role != "user" {
		t.Error("first message should carry the nested user body")
	}
	if resp.Messages[0].Message.Content.Text != "run it" {
		t.Errorf("unexpected text content: %q", resp.Messages[0].Message.Content.Text)
	}

	second := resp.Messages[1]
	if second.Message == nil || len(second.Message.Content.Blocks) != 1 {
		t.Fatal("second message should carry one content block")
	}
	block := second.Message.Content.Blocks[0]
	if block.Type != api.BlockToolUse || block.Name != "sh" {
		t.Errorf("unexpected block: type=%q name=%q", block.Type, block.Name)
	}
}

func TestHandleConversationDetails_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/conversations/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	if msg := decodeErrorEnvelope(t, rec); msg != "session not found" {
		t.Errorf("unexpected error message: %q", msg)
	}
}

func TestHandleConversationRoutes_InvalidPath(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/conversations/a/b", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleStartConversation(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/conversations/start", api.StartOptions{
		InitialPrompt:    "hello there",
		WorkingDirectory: "/tmp/proj",
		Model:            "sim-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["session_id"] == "" {
		t.Fatal("expected a session_id in the response")
	}
	if resp["streaming_id"] == "" {
		t.Fatal("expected a streaming_id in the response")
	}

	// The user message is persisted before the response is sent
	count, err := st.CountMessages(context.Background(), resp["session_id"])
	if err != nil {
		t.Fatalf("CountMessages failed: %v", err)
	}
	if count < 1 {
		t.Error("expected the user message to be persisted immediately")
	}

	waitForSessionStatus(t, st, resp["session_id"], store.SessionCompleted)
}

func TestHandleStartConversation_Validation(t *testing.T) {
	srv, st := newTestServer(t)

	seedSession(t, st, &store.Session{
		ID: "sess-busy", Status: store.SessionOngoing, StreamingID: "stream-busy",
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"empty prompt", `{"initial_prompt":"  "}`, http.StatusBadRequest},
		{"invalid json", `not json`, http.StatusBadRequest},
		{"resume unknown session", `{"initial_prompt":"hi","resumed_session_id":"ghost"}`, http.StatusNotFound},
		{"resume ongoing session", `{"initial_prompt":"hi","resumed_session_id":"sess-busy"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/conversations/start", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleStopStream(t *testing.T) {
	srv, st := newTestServerWithConfig(t, func(cfg *config.Config) {
		cfg.Engine.StepDelay = 2 * time.Second
	})

	rec := doRequest(srv, http.MethodPost, "/api/conversations/start", api.StartOptions{InitialPrompt: "long running"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start failed with status %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	stop := doRequest(srv, http.MethodPost, "/api/stream/"+resp["streaming_id"]+"/stop", nil)
	if stop.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, stop.Code)
	}

	waitForSessionStatus(t, st, resp["session_id"], store.SessionCompleted)

	// A second stop happens when the turn already ended; it must succeed
	again := doRequest(srv, http.MethodPost, "/api/stream/"+resp["streaming_id"]+"/stop", nil)
	if again.Code != http.StatusNoContent {
		t.Errorf("expected repeated stop to return %d, got %d", http.StatusNoContent, again.Code)
	}
}

func TestHandleStopStream_UnknownIsIdempotent(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/stream/ghost/stop", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
}

func TestHandleListPermissions(t *testing.T) {
	srv, st := newTestServer(t)

	now := time.Now().UTC().Truncate(time.Second)
	for i, req := range []*store.PermissionRequest{
		{ID: "perm-1", SessionID: "s1", StreamingID: "stream-1", ToolName: "sh", Input: `{"command":"ls"}`, Status: store.PermissionPending},
		{ID: "perm-2", SessionID: "s1", StreamingID: "stream-1", ToolName: "sh", Input: `{}`, Status: store.PermissionApproved},
		{ID: "perm-3", SessionID: "s2", StreamingID: "stream-2", ToolName: "sh", Input: `{}`, Status: store.PermissionPending},
	} {
		req.CreatedAt = now.Add(time.Duration(i) * time.Second)
		if err := st.CreatePermission(context.Background(), req); err != nil {
			t.Fatalf("seeding permission failed: %v", err)
		}
	}

	rec := doRequest(srv, http.MethodGet, "/api/permissions?streaming_id=stream-1&status=pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp struct {
		Permissions []api.PermissionRequest `json:"permissions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Permissions) != 1 {
		t.Fatalf("expected 1 permission, got %d", len(resp.Permissions))
	}

	perm := resp.Permissions[0]
	if perm.ID != "perm-1" {
		t.Errorf("expected perm-1, got %s", perm.ID)
	}
	if perm.ToolName != "sh" {
		t.Errorf("unexpected tool name: %q", perm.ToolName)
	}
	if string(perm.Input) != `{"command":"ls"}` {
		t.Errorf("unexpected input: %s", perm.Input)
	}
	if perm.Status != store.PermissionPending {
		t.Errorf("unexpected status: %q", perm.Status)
	}
}

func TestHandleListPermissions_InvalidStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/permissions?status=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleDecision(t *testing.T) {
	srv, st := newTestServer(t)

	if err := st.CreatePermission(context.Background(), &store.PermissionRequest{
		ID: "perm-1", SessionID: "s1", StreamingID: "stream-1",
		ToolName: "sh", Input: `{}`, Status: store.PermissionPending,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seeding permission failed: %v", err)
	}

	rec := doRequest(srv, http.MethodPost, "/api/permissions/perm-1/decision", decisionRequest{Action: api.DecisionApprove})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNoContent, rec.Code, rec.Body.String())
	}

	got, err := st.GetPermission(context.Background(), "perm-1")
	if err != nil {
		t.Fatalf("GetPermission failed: %v", err)
	}
	if got.Status != store.PermissionApproved {
		t.Errorf("expected approved, got %q", got.Status)
	}

	// Deciding twice conflicts
	rec = doRequest(srv, http.MethodPost, "/api/permissions/perm-1/decision", decisionRequest{Action: api.DecisionDeny})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestHandleDecision_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name       string
		target     string
		body       interface{}
		wantStatus int
	}{
		{"unknown request", "/api/permissions/ghost/decision", decisionRequest{Action: api.DecisionDeny}, http.StatusNotFound},
		{"bad action", "/api/permissions/ghost/decision", decisionRequest{Action: "maybe"}, http.StatusBadRequest},
		{"missing decision suffix", "/api/permissions/ghost", decisionRequest{Action: api.DecisionDeny}, http.StatusBadRequest},
		{"empty request id", "/api/permissions//decision", decisionRequest{Action: api.DecisionDeny}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/conversations/start", api.StartOptions{InitialPrompt: "count me"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start failed with status %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	waitForSessionStatus(t, st, resp["session_id"], store.SessionCompleted)

	// The gauge decrement lands just after the session flips to completed,
	// so poll the scrape until it settles
	var body string
	deadline := time.Now().Add(2 * time.Second)
	for {
		scrape := doRequest(srv, http.MethodGet, "/metrics", nil)
		if scrape.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, scrape.Code)
		}
		body = scrape.Body.String()
		if strings.Contains(body, "cui_active_turns 0") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("active turns gauge never returned to zero:\n%s", body)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !strings.Contains(body, "cui_turns_started_total 1") {
		t.Errorf("expected turn counter in scrape output:\n%s", body)
	}
	if !strings.Contains(body, "cui_stream_events_total") {
		t.Error("expected event counter in scrape output")
	}
}

func TestMetricsDisabled(t *testing.T) {
	srv, _ := newTestServerWithConfig(t, func(cfg *config.Config) {
		cfg.Metrics.Enabled = false
	})

	rec := doRequest(srv, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestIndexStatusPage(t *testing.T) {
	srv, st := newTestServer(t)
	seedSession(t, st, &store.Session{ID: "sess-1", Status: store.SessionOngoing, StreamingID: "stream-1"})

	rec := doRequest(srv, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type: %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "cui dev backend") {
		t.Error("status page missing title")
	}

	missing := doRequest(srv, http.MethodGet, "/nope", nil)
	if missing.Code != http.StatusNotFound {
		t.Errorf("expected status %d for unknown path, got %d", http.StatusNotFound, missing.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	secret := "test-secret-for-auth-middleware"
	srv, _ := newTestServerWithConfig(t, func(cfg *config.Config) {
		cfg.Auth.JWTSecret = secret
	})

	// No token: API routes reject, health stays open
	rec := doRequest(srv, http.MethodGet, "/api/conversations", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d without token, got %d", http.StatusUnauthorized, rec.Code)
	}
	health := doRequest(srv, http.MethodGet, "/healthz", nil)
	if health.Code != http.StatusOK {
		t.Errorf("expected healthz to bypass auth, got %d", health.Code)
	}

	token, err := auth.NewJWTVerifier([]byte(secret)).Generate("dev", time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authed := httptest.NewRecorder()
	srv.Handler().ServeHTTP(authed, req)
	if authed.Code != http.StatusOK {
		t.Errorf("expected status %d with token, got %d: %s", http.StatusOK, authed.Code, authed.Body.String())
	}
}

func TestConversationListCapsLimit(t *testing.T) {
	srv, st := newTestServer(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < maxListLimit+10; i++ {
		seedSession(t, st, &store.Session{
			ID:        fmt.Sprintf("sess-%03d", i),
			Status:    store.SessionCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	rec := doRequest(srv, http.MethodGet, fmt.Sprintf("/api/conversations?limit=%d", maxListLimit+10), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp struct {
		Conversations []api.ConversationSummary `json:"conversations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Conversations) != maxListLimit {
		t.Errorf("expected the limit to cap at %d, got %d", maxListLimit, len(resp.Conversations))
	}
}
