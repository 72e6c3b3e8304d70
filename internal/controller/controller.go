// ABOUTME: Conversation controller: session loads, stream attachment, and view state.
// ABOUTME: A generation token guards every mutation that follows a network call.

package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hcnode/cui/internal/api"
	"github.com/hcnode/cui/internal/convo"
	"github.com/hcnode/cui/internal/stream"
)

const (
	// summaryLimit bounds the recent-conversations lookup during a load.
	summaryLimit = 50

	// focusDelay is how long after a load settles the focus request fires.
	focusDelay = 100 * time.Millisecond
)

// Backend is the API surface the controller needs.
type Backend interface {
	ConversationDetails(ctx context.Context, sessionID string) ([]api.RawMessage, error)
	Conversations(ctx context.Context, limit int) ([]api.ConversationSummary, error)
	PendingPermissions(ctx context.Context, streamingID string) ([]api.PermissionRequest, error)
	SendPermissionDecision(ctx context.Context, requestID, action, denyReason string) error
	StartConversation(ctx context.Context, opts api.StartOptions) (string, error)
	StopConversation(ctx context.Context, streamingID string) error
}

// Conn is an active stream subscription as the controller drives it.
type Conn interface {
	Connected() bool
	Disconnect()
}

// Streamer opens live event subscriptions for streaming sessions.
type Streamer interface {
	Open(ctx context.Context, streamingID string, handlers stream.Handlers) (Conn, error)
}

// SSEStreamer adapts a stream.Subscriber to the Streamer interface.
type SSEStreamer struct {
	Subscriber *stream.Subscriber
}

func (s SSEStreamer) Open(ctx context.Context, streamingID string, handlers stream.Handlers) (Conn, error) {
	return s.Subscriber.Subscribe(ctx, streamingID, handlers)
}

// Hooks let the embedding UI react to controller side effects. All hooks
// are optional and must not call back into the controller synchronously
// from Update.
type Hooks struct {
	// Navigate fires when a send resolves to a session id the UI should
	// switch to.
	Navigate func(sessionID string)

	// RequestFocus fires shortly after a load settles.
	RequestFocus func()

	// Update fires after any visible state change.
	Update func()
}

// Controller drives one conversation view.
type Controller struct {
	backend Backend
	streams Streamer
	hooks   Hooks
	store   *convo.Store
	logger  *slog.Logger

	mu          sync.Mutex
	generation  int
	sessionID   string
	streamingID string
	conn        Conn
	title       string
	workingDir  string
	loading     bool
	errText     string
	deciding    bool
	closed      bool
}

// New creates a controller. hooks fields may be nil.
func New(backend Backend, streams Streamer, hooks Hooks, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		backend: backend,
		streams: streams,
		hooks:   hooks,
		store:   convo.NewStore(),
		logger:  logger.With("component", "controller"),
	}
}

// SetSession switches the controller to sessionID and reloads its state.
// Any active stream subscription is torn down before the load begins, so
// events from the previous session can never reach the new one. Calling
// with the current session id forces a reload.
//
// ctx should outlive the session: the stream subscription opened during
// the load is bound to it.
func (c *Controller) SetSession(ctx context.Context, sessionID string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	c.teardownLocked()
	c.sessionID = sessionID
	c.title = ""
	c.loading = true
	c.errText = ""
	c.store.ClearPermission()
	c.mu.Unlock()

	c.notify()
	c.load(ctx, gen, sessionID)
}

// Close tears down the stream subscription and releases the store. The
// controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	c.teardownLocked()
	c.mu.Unlock()

	c.store.Close()
}

// load runs the fixed load sequence for one session generation. The
// loading flag clears when the sequence settles, whatever the outcome.
func (c *Controller) load(ctx context.Context, gen int, sessionID string) {
	defer c.finishLoad(gen)

	raw, err := c.backend.ConversationDetails(ctx, sessionID)
	if err != nil {
		// Keep whatever the view was showing; only the banner changes.
		c.setErrorIfCurrent(gen, fmt.Sprintf("failed to load conversation: %v", err))
		return
	}

	messages := convo.TransformHistory(raw)
	workingDir := convo.WorkingDirOf(messages)

	if !c.apply(gen, func() {
		c.store.ReplaceAll(messages)
		c.workingDir = workingDir
	}) {
		return
	}
	c.notify()

	summaries, err := c.backend.Conversations(ctx, summaryLimit)
	if err != nil {
		c.setErrorIfCurrent(gen, fmt.Sprintf("failed to load conversation status: %v", err))
		return
	}

	var summary *api.ConversationSummary
	for i := range summaries {
		if summaries[i].SessionID == sessionID {
			summary = &summaries[i]
			break
		}
	}
	if summary == nil {
		return
	}

	if !c.apply(gen, func() { c.title = summary.SessionInfo.Title }) {
		return
	}

	if summary.Status != api.StatusOngoing || summary.StreamingID == "" {
		return
	}
	streamingID := summary.StreamingID

	conn, err := c.streams.Open(ctx, streamingID, c.streamHandlers(gen))
	if err != nil {
		// The conversation still renders without live updates.
		c.logger.Warn("failed to subscribe to stream",
			"session_id", sessionID,
			"streaming_id", streamingID,
			"error", err,
		)
	} else if !c.apply(gen, func() {
		c.conn = conn
		c.streamingID = streamingID
	}) {
		conn.Disconnect()
		return
	}

	perms, err := c.backend.PendingPermissions(ctx, streamingID)
	if err != nil {
		// Non-fatal: the stream will re-deliver any request still pending.
		c.logger.Error("failed to fetch pending permissions",
			"streaming_id", streamingID,
			"error", err,
		)
		return
	}
	if latest := latestPending(perms); latest != nil {
		if c.apply(gen, func() { c.store.SetPermission(*latest) }) {
			c.notify()
		}
	}
}

// latestPending picks the pending request with the newest timestamp.
func latestPending(perms []api.PermissionRequest) *api.PermissionRequest {
	var latest *api.PermissionRequest
	for i := range perms {
		if latest == nil || perms[i].Timestamp.After(latest.Timestamp) {
			latest = &perms[i]
		}
	}
	return latest
}

// streamHandlers builds the callbacks for one subscription generation.
// Every callback re-checks the generation under the lock, so an event
// delivered after a session switch mutates nothing.
func (c *Controller) streamHandlers(gen int) stream.Handlers {
	return stream.Handlers{
		OnEvent: func(ev stream.Event) {
			if c.apply(gen, func() { c.store.ApplyStreamEvent(ev) }) {
				c.notify()
			}
		},
		OnError: func(err error) {
			if c.apply(gen, func() {
				c.errText = fmt.Sprintf("stream error: %v", err)
				c.streamingID = ""
				c.conn = nil
			}) {
				c.notify()
			}
		},
		OnClosed: func() {
			// Normal end of turn, nothing to surface.
			if c.apply(gen, func() {
				c.streamingID = ""
				c.conn = nil
			}) {
				c.notify()
			}
		},
	}
}

// finishLoad clears the loading flag for its generation and schedules the
// focus request.
func (c *Controller) finishLoad(gen int) {
	if !c.apply(gen, func() { c.loading = false }) {
		return
	}
	c.notify()

	if c.hooks.RequestFocus == nil {
		return
	}
	time.AfterFunc(focusDelay, func() {
		c.mu.Lock()
		stale := gen != c.generation || c.closed
		c.mu.Unlock()
		if !stale {
			c.hooks.RequestFocus()
		}
	})
}

// apply runs fn under the lock unless gen is stale or the controller is
// closed. Reports whether fn ran. Store mutations go through apply too, so
// the controller stays the store's single writer.
func (c *Controller) apply(gen int, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.closed {
		return false
	}
	fn()
	return true
}

func (c *Controller) setErrorIfCurrent(gen int, msg string) {
	if c.apply(gen, func() { c.errText = msg }) {
		c.notify()
	}
}

// teardownLocked disconnects the active subscription. Must be called with
// mu held.
func (c *Controller) teardownLocked() {
	if c.conn != nil {
		c.conn.Disconnect()
		c.conn = nil
	}
	c.streamingID = ""
}

// notify fires the Update hook outside the lock.
func (c *Controller) notify() {
	if c.hooks.Update != nil {
		c.hooks.Update()
	}
}

// Messages returns the current message log.
func (c *Controller) Messages() []convo.Message {
	return c.store.Messages()
}

// ToolResult returns the recorded outcome for a tool use id.
func (c *Controller) ToolResult(toolUseID string) (convo.ToolResult, bool) {
	return c.store.ToolResult(toolUseID)
}

// ToolResults returns the full tool result index.
func (c *Controller) ToolResults() map[string]convo.ToolResult {
	return c.store.ToolResults()
}

// CurrentPermission returns the permission request awaiting a decision.
func (c *Controller) CurrentPermission() (api.PermissionRequest, bool) {
	return c.store.Permission()
}

// ToggleExpanded flips the expansion state for a tool use id.
func (c *Controller) ToggleExpanded(toolUseID string) {
	c.store.ToggleExpanded(toolUseID)
	c.notify()
}

// IsExpanded reports the expansion state for a tool use id.
func (c *Controller) IsExpanded(toolUseID string) bool {
	return c.store.IsExpanded(toolUseID)
}

// SessionID returns the session the controller currently shows.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Title returns the session title from the last summary lookup.
func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// WorkingDir returns the working directory derived from history.
func (c *Controller) WorkingDir() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workingDir
}

// Loading reports whether a load sequence is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// ErrorText returns the current banner text, "" when none.
func (c *Controller) ErrorText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errText
}

// StreamingID returns the active streaming session id, "" when idle.
func (c *Controller) StreamingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamingID
}

// Connected reports whether a live stream subscription is attached.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.conn.Connected()
}
