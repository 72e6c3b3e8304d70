// ABOUTME: Tests for the simulated turn engine
// ABOUTME: Covers streaming shape, permission gating, stop, resume, and hooks

package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcnode/cui/internal/api"
	"github.com/hcnode/cui/internal/store"
	"github.com/hcnode/cui/internal/stream"
)

func newTestEngine(t *testing.T, opts Options) (*Engine, *store.MockStore, *EventBroadcaster) {
	t.Helper()

	st := store.NewMockStore()
	b := NewEventBroadcaster(nil)
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.StepDelay == 0 {
		opts.StepDelay = 20 * time.Millisecond
	}
	if opts.DecisionTimeout == 0 {
		opts.DecisionTimeout = 5 * time.Second
	}

	e := NewEngine(st, b, opts)
	t.Cleanup(func() {
		e.Close()
		b.Close()
	})
	return e, st, b
}

// collectUntilEnded drains events until the ended status arrives. The
// started event fires before subscribers can attach, so it is not expected.
func collectUntilEnded(t *testing.T, ch <-chan stream.Event) []stream.Event {
	t.Helper()

	var events []stream.Event
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
			if ev.Kind == stream.KindStatus && ev.Status == stream.StatusEnded {
				return events
			}
		case <-deadline:
			t.Fatal("timed out waiting for stream to end")
		}
	}
}

func waitForKind(t *testing.T, ch <-chan stream.Event, kind string) stream.Event {
	t.Helper()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("stream closed before %s event", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func messageTexts(events []stream.Event) []string {
	var texts []string
	for _, ev := range events {
		if ev.Kind == stream.KindMessage && ev.Message != nil && ev.Message.Message != nil {
			texts = append(texts, ev.Message.Message.Content.Text)
		}
	}
	return texts
}

func TestEngine_SimpleTurnStreamsAndPersists(t *testing.T) {
	e, st, b := newTestEngine(t, Options{})
	ctx := context.Background()

	sessionID, streamingID, err := e.StartTurn(ctx, StartTurnOptions{
		Prompt:     "hello world",
		WorkingDir: "/home/dev/project",
		Model:      "sim-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)
	require.NotEmpty(t, streamingID)

	ch, _ := b.Subscribe(t.Context(), streamingID)
	events := collectUntilEnded(t, ch)

	texts := messageTexts(events)
	require.Len(t, texts, 2, "expected acknowledgement and final reply")
	assert.Contains(t, texts[1], "Echo: **hello world**")

	session, err := st.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionCompleted, session.Status)
	assert.Empty(t, session.StreamingID)
	assert.Equal(t, "hello world", session.Title)
	assert.Equal(t, "/home/dev/project", session.Cwd)
	assert.Equal(t, "sim-1", session.Model)

	messages, err := st.SessionMessages(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, messages, 3, "user message plus two assistant messages")
	assert.Equal(t, "user", messages[0].Type)
	assert.Equal(t, "assistant", messages[1].Type)
	assert.Equal(t, "assistant", messages[2].Type)
}

func TestEngine_MarkdownPromptGetsMarkdownReply(t *testing.T) {
	e, _, b := newTestEngine(t, Options{})

	_, streamingID, err := e.StartTurn(context.Background(), StartTurnOptions{Prompt: "give me a list"})
	require.NoError(t, err)

	ch, _ := b.Subscribe(t.Context(), streamingID)
	events := collectUntilEnded(t, ch)

	texts := messageTexts(events)
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[len(texts)-1], "**markdown**")
}

func TestEngine_ShellPromptGatesOnPermissionApprove(t *testing.T) {
	e, st, b := newTestEngine(t, Options{})
	ctx := context.Background()

	sessionID, streamingID, err := e.StartTurn(ctx, StartTurnOptions{Prompt: "!sh ls -la"})
	require.NoError(t, err)

	ch, _ := b.Subscribe(t.Context(), streamingID)
	permEv := waitForKind(t, ch, stream.KindPermission)
	require.NotNil(t, permEv.Permission)
	assert.Equal(t, "sh", permEv.Permission.ToolName)
	assert.Equal(t, streamingID, permEv.Permission.StreamingID)

	require.NoError(t, e.Decide(ctx, permEv.Permission.ID, api.DecisionApprove, ""))

	resultEv := waitForKind(t, ch, stream.KindToolResult)
	require.NotNil(t, resultEv.ToolResult)
	assert.False(t, resultEv.ToolResult.IsError)
	assert.Contains(t, resultEv.ToolResult.Content, "$ ls -la")

	collectUntilEnded(t, ch)

	req, err := st.GetPermission(ctx, permEv.Permission.ID)
	require.NoError(t, err)
	assert.Equal(t, store.PermissionApproved, req.Status)

	// The tool result is persisted as a user entry with a tool_result block
	messages, err := st.SessionMessages(ctx, sessionID)
	require.NoError(t, err)
	var foundResult bool
	for _, msg := range messages {
		if msg.Type == "user" && strings.Contains(msg.Content, "tool_result") {
			foundResult = true
		}
	}
	assert.True(t, foundResult, "tool result not persisted")
}

func TestEngine_DenyProducesErrorResult(t *testing.T) {
	e, st, b := newTestEngine(t, Options{})
	ctx := context.Background()

	_, streamingID, err := e.StartTurn(ctx, StartTurnOptions{Prompt: "!sh rm -rf build"})
	require.NoError(t, err)

	ch, _ := b.Subscribe(t.Context(), streamingID)
	permEv := waitForKind(t, ch, stream.KindPermission)

	require.NoError(t, e.Decide(ctx, permEv.Permission.ID, api.DecisionDeny, "not allowed"))

	resultEv := waitForKind(t, ch, stream.KindToolResult)
	assert.True(t, resultEv.ToolResult.IsError)
	assert.Contains(t, resultEv.ToolResult.Content, "not allowed")

	collectUntilEnded(t, ch)

	req, err := st.GetPermission(ctx, permEv.Permission.ID)
	require.NoError(t, err)
	assert.Equal(t, store.PermissionDenied, req.Status)
	assert.Equal(t, "not allowed", req.DenyReason)
}

func TestEngine_DecisionTimeoutAutoDenies(t *testing.T) {
	e, st, b := newTestEngine(t, Options{DecisionTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	_, streamingID, err := e.StartTurn(ctx, StartTurnOptions{Prompt: "!sh make deploy"})
	require.NoError(t, err)

	ch, _ := b.Subscribe(t.Context(), streamingID)
	permEv := waitForKind(t, ch, stream.KindPermission)

	resultEv := waitForKind(t, ch, stream.KindToolResult)
	assert.True(t, resultEv.ToolResult.IsError)
	assert.Contains(t, resultEv.ToolResult.Content, "timed out")

	collectUntilEnded(t, ch)

	req, err := st.GetPermission(ctx, permEv.Permission.ID)
	require.NoError(t, err)
	assert.Equal(t, store.PermissionDenied, req.Status)
}

func TestEngine_BypassModeSkipsPermissionGate(t *testing.T) {
	e, st, b := newTestEngine(t, Options{})
	ctx := context.Background()

	_, streamingID, err := e.StartTurn(ctx, StartTurnOptions{
		Prompt:         "!sh go test ./...",
		PermissionMode: PermissionModeBypass,
	})
	require.NoError(t, err)

	ch, _ := b.Subscribe(t.Context(), streamingID)
	events := collectUntilEnded(t, ch)

	for _, ev := range events {
		assert.NotEqual(t, stream.KindPermission, ev.Kind, "bypass mode must not raise permission requests")
	}

	var sawResult bool
	for _, ev := range events {
		if ev.Kind == stream.KindToolResult {
			sawResult = true
			assert.False(t, ev.ToolResult.IsError)
		}
	}
	assert.True(t, sawResult, "tool result missing")

	reqs, err := st.ListPermissions(ctx, streamingID, "")
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestEngine_ResumeAppendsToExistingSession(t *testing.T) {
	e, st, b := newTestEngine(t, Options{})
	ctx := context.Background()

	sessionID, streamingID, err := e.StartTurn(ctx, StartTurnOptions{Prompt: "first question"})
	require.NoError(t, err)

	ch, _ := b.Subscribe(t.Context(), streamingID)
	collectUntilEnded(t, ch)

	resumedID, streamingID2, err := e.StartTurn(ctx, StartTurnOptions{
		ResumedSessionID: sessionID,
		Prompt:           "follow up",
	})
	require.NoError(t, err)
	assert.Equal(t, sessionID, resumedID)
	assert.NotEqual(t, streamingID, streamingID2)

	ch2, _ := b.Subscribe(t.Context(), streamingID2)
	collectUntilEnded(t, ch2)

	session, err := st.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "first question", session.Title, "resume must not retitle the session")

	count, err := st.CountMessages(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 6, count, "both turns persisted")
}

func TestEngine_ResumeUnknownSessionFails(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})

	_, _, err := e.StartTurn(context.Background(), StartTurnOptions{
		ResumedSessionID: "ghost",
		Prompt:           "hello",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEngine_ResumeOngoingSessionFails(t *testing.T) {
	e, st, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	require.NoError(t, st.CreateSession(ctx, &store.Session{
		ID:          "busy",
		Status:      store.SessionOngoing,
		StreamingID: "stream-live",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}))

	_, _, err := e.StartTurn(ctx, StartTurnOptions{
		ResumedSessionID: "busy",
		Prompt:           "hello",
	})
	assert.ErrorIs(t, err, ErrTurnInFlight)
}

func TestEngine_EmptyPromptRejected(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})

	_, _, err := e.StartTurn(context.Background(), StartTurnOptions{Prompt: "   \n  "})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestEngine_StopAbortsTurn(t *testing.T) {
	e, st, b := newTestEngine(t, Options{StepDelay: time.Second})
	ctx := context.Background()

	sessionID, streamingID, err := e.StartTurn(ctx, StartTurnOptions{Prompt: "long running"})
	require.NoError(t, err)

	ch, _ := b.Subscribe(t.Context(), streamingID)
	require.NoError(t, e.StopTurn(ctx, streamingID))

	events := collectUntilEnded(t, ch)
	last := events[len(events)-1]
	assert.Equal(t, stream.KindStatus, last.Kind)
	assert.Equal(t, stream.StatusEnded, last.Status)

	require.Eventually(t, func() bool {
		session, err := st.GetSession(ctx, sessionID)
		return err == nil && session.Status == store.SessionCompleted
	}, 5*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, e.StopTurn(ctx, streamingID), store.ErrNotFound)
}

func TestEngine_StopUnknownStreamFails(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})

	assert.ErrorIs(t, e.StopTurn(context.Background(), "ghost"), store.ErrNotFound)
}

func TestEngine_StopDuringGateDeniesRequest(t *testing.T) {
	e, st, b := newTestEngine(t, Options{})
	ctx := context.Background()

	_, streamingID, err := e.StartTurn(ctx, StartTurnOptions{Prompt: "!sh sleep 60"})
	require.NoError(t, err)

	ch, _ := b.Subscribe(t.Context(), streamingID)
	permEv := waitForKind(t, ch, stream.KindPermission)

	require.NoError(t, e.StopTurn(ctx, streamingID))
	collectUntilEnded(t, ch)

	require.Eventually(t, func() bool {
		req, err := st.GetPermission(ctx, permEv.Permission.ID)
		return err == nil && req.Status == store.PermissionDenied
	}, 5*time.Second, 10*time.Millisecond)
}

func TestEngine_DecideValidatesAction(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})

	err := e.Decide(context.Background(), "req-1", "maybe", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown decision action")
}

func TestEngine_DecideTwiceReturnsAlreadyResolved(t *testing.T) {
	e, st, b := newTestEngine(t, Options{})
	ctx := context.Background()

	_, streamingID, err := e.StartTurn(ctx, StartTurnOptions{Prompt: "!sh whoami"})
	require.NoError(t, err)

	ch, _ := b.Subscribe(t.Context(), streamingID)
	permEv := waitForKind(t, ch, stream.KindPermission)

	require.NoError(t, e.Decide(ctx, permEv.Permission.ID, api.DecisionApprove, ""))
	err = e.Decide(ctx, permEv.Permission.ID, api.DecisionDeny, "changed my mind")
	assert.ErrorIs(t, err, store.ErrAlreadyResolved)

	collectUntilEnded(t, ch)

	req, err := st.GetPermission(ctx, permEv.Permission.ID)
	require.NoError(t, err)
	assert.Equal(t, store.PermissionApproved, req.Status, "second decision must not overwrite the first")
}

func TestEngine_HooksFire(t *testing.T) {
	var started, ended, published atomic.Int64
	e, _, b := newTestEngine(t, Options{
		Hooks: Hooks{
			TurnStarted:    func() { started.Add(1) },
			TurnEnded:      func() { ended.Add(1) },
			EventPublished: func() { published.Add(1) },
		},
	})

	_, streamingID, err := e.StartTurn(context.Background(), StartTurnOptions{Prompt: "hi"})
	require.NoError(t, err)

	ch, _ := b.Subscribe(t.Context(), streamingID)
	collectUntilEnded(t, ch)

	assert.Equal(t, int64(1), started.Load())
	require.Eventually(t, func() bool { return ended.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Greater(t, published.Load(), int64(2))
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{"simple", "fix the login bug", "fix the login bug"},
		{"first line only", "fix the login bug\nwith details", "fix the login bug"},
		{"whitespace trimmed", "  spaced out  ", "spaced out"},
		{"long prompt truncated", strings.Repeat("a", 80), strings.Repeat("a", 57) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveTitle(tt.prompt))
		})
	}
}

func TestShellCommand(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
		wantOK bool
	}{
		{"plain prompt", "hello", "", false},
		{"shell prompt", "!sh ls -la", "ls -la", true},
		{"leading whitespace", "  !sh make build", "make build", true},
		{"empty command", "!sh   ", "", false},
		{"prefix without space", "!shls", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := shellCommand(tt.prompt)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_CloseAbortsInFlightTurns(t *testing.T) {
	st := store.NewMockStore()
	b := NewEventBroadcaster(nil)
	defer b.Close()

	e := NewEngine(st, b, Options{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		StepDelay: time.Second,
	})

	sessionID, _, err := e.StartTurn(context.Background(), StartTurnOptions{Prompt: "never finishes"})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		e.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	session, err := st.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionCompleted, session.Status)

	if !errors.Is(e.StopTurn(context.Background(), "anything"), store.ErrNotFound) {
		t.Error("expected no active turns after Close")
	}
}
