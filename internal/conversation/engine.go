// ABOUTME: Simulated agent engine that turns prompts into scripted streaming replies
// ABOUTME: Owns turn lifecycle: persistence, event publishing, and permission gating

package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/hcnode/cui/internal/api"
	"github.com/hcnode/cui/internal/store"
	"github.com/hcnode/cui/internal/stream"
)

// Errors returned by the engine.
var (
	// ErrTurnInFlight is returned when starting a turn on a session that
	// already has one streaming.
	ErrTurnInFlight = errors.New("session already has a turn in flight")

	// ErrEmptyPrompt is returned when a turn is started without a prompt.
	ErrEmptyPrompt = errors.New("prompt is required")
)

const (
	defaultStepDelay       = 300 * time.Millisecond
	defaultDecisionTimeout = 2 * time.Minute

	autoDenyReason  = "timed out waiting for a decision"
	abortDenyReason = "turn aborted"

	// shellToolName is the tool simulated turns invoke for "!sh" prompts.
	shellToolName = "sh"

	// PermissionModeBypass skips the permission gate on tool steps.
	PermissionModeBypass = "bypassPermissions"
)

// Hooks receive notifications about turn activity. All fields are optional.
type Hooks struct {
	TurnStarted    func()
	TurnEnded      func()
	EventPublished func()
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Logger          *slog.Logger
	StepDelay       time.Duration // pause between streamed events
	DecisionTimeout time.Duration // auto-deny deadline for permission requests
	Hooks           Hooks
}

// Engine executes simulated turns against the store and broadcaster.
type Engine struct {
	store           store.Store
	broadcaster     *EventBroadcaster
	logger          *slog.Logger
	stepDelay       time.Duration
	decisionTimeout time.Duration
	hooks           Hooks

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	turns     map[string]context.CancelFunc // streamingID -> cancel
	decisions map[string]chan decision      // permission request ID -> pending gate
}

type decision struct {
	status string
	reason string
}

// StartTurnOptions carries everything needed to begin a turn.
type StartTurnOptions struct {
	ResumedSessionID string
	Prompt           string
	WorkingDir       string
	Model            string
	PermissionMode   string
}

// turnInput is the resolved per-turn state handed to the streaming goroutine.
type turnInput struct {
	sessionID      string
	streamingID    string
	prompt         string
	cwd            string
	permissionMode string
}

// NewEngine creates an engine. Pass a zero Options for defaults.
func NewEngine(st store.Store, broadcaster *EventBroadcaster, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stepDelay := opts.StepDelay
	if stepDelay == 0 {
		stepDelay = defaultStepDelay
	}
	decisionTimeout := opts.DecisionTimeout
	if decisionTimeout == 0 {
		decisionTimeout = defaultDecisionTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:           st,
		broadcaster:     broadcaster,
		logger:          logger.With("component", "engine"),
		stepDelay:       stepDelay,
		decisionTimeout: decisionTimeout,
		hooks:           opts.Hooks,
		ctx:             ctx,
		cancel:          cancel,
		turns:           make(map[string]context.CancelFunc),
		decisions:       make(map[string]chan decision),
	}
}

// StartTurn persists the user message, marks the session ongoing, and begins
// streaming the scripted reply in the background. Returns the session ID
// (newly created unless resuming) and the streaming ID of the turn.
func (e *Engine) StartTurn(ctx context.Context, opts StartTurnOptions) (string, string, error) {
	if strings.TrimSpace(opts.Prompt) == "" {
		return "", "", ErrEmptyPrompt
	}
	now := time.Now().UTC()

	var session *store.Session
	if opts.ResumedSessionID != "" {
		existing, err := e.store.GetSession(ctx, opts.ResumedSessionID)
		if err != nil {
			return "", "", err
		}
		if existing.Status == store.SessionOngoing {
			return "", "", ErrTurnInFlight
		}
		session = existing
	} else {
		session = &store.Session{
			ID:        uuid.New().String(),
			Title:     deriveTitle(opts.Prompt),
			Status:    store.SessionCompleted,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.store.CreateSession(ctx, session); err != nil {
			return "", "", fmt.Errorf("creating session: %w", err)
		}
	}

	if opts.WorkingDir != "" {
		session.Cwd = opts.WorkingDir
	}
	if opts.Model != "" {
		session.Model = opts.Model
	}
	if session.Title == "" {
		session.Title = deriveTitle(opts.Prompt)
	}

	// Record the user message before the session becomes visible as ongoing
	userBody := api.MessageBody{Role: "user", Content: api.ContentValue{Text: opts.Prompt}}
	if _, err := e.saveMessage(ctx, session.ID, "user", userBody, session.Cwd, now); err != nil {
		return "", "", err
	}

	streamingID := ulid.Make().String()
	session.Status = store.SessionOngoing
	session.StreamingID = streamingID
	session.UpdatedAt = now
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return "", "", fmt.Errorf("marking session ongoing: %w", err)
	}

	tctx, tcancel := context.WithCancel(e.ctx)
	e.mu.Lock()
	e.turns[streamingID] = tcancel
	e.mu.Unlock()

	if e.hooks.TurnStarted != nil {
		e.hooks.TurnStarted()
	}
	e.logger.Info("turn started", "session_id", session.ID, "streaming_id", streamingID)

	in := turnInput{
		sessionID:      session.ID,
		streamingID:    streamingID,
		prompt:         opts.Prompt,
		cwd:            session.Cwd,
		permissionMode: opts.PermissionMode,
	}
	e.wg.Add(1)
	go e.runTurn(tctx, in)

	return session.ID, streamingID, nil
}

// StopTurn aborts an in-flight turn. Returns store.ErrNotFound when no turn
// with the given streaming ID is active.
func (e *Engine) StopTurn(ctx context.Context, streamingID string) error {
	e.mu.Lock()
	cancel, ok := e.turns[streamingID]
	e.mu.Unlock()
	if !ok {
		return store.ErrNotFound
	}

	cancel()
	e.logger.Info("turn stop requested", "streaming_id", streamingID)
	return nil
}

// Decide resolves a pending permission request and unblocks the gated turn.
// Action is "approve" or "deny".
func (e *Engine) Decide(ctx context.Context, requestID, action, denyReason string) error {
	var status string
	switch action {
	case api.DecisionApprove:
		status = store.PermissionApproved
	case api.DecisionDeny:
		status = store.PermissionDenied
	default:
		return fmt.Errorf("unknown decision action %q", action)
	}

	if err := e.store.ResolvePermission(ctx, requestID, status, denyReason); err != nil {
		return err
	}

	e.mu.Lock()
	ch, ok := e.decisions[requestID]
	e.mu.Unlock()
	if ok {
		// Buffered and sent at most once per request; never blocks
		ch <- decision{status: status, reason: denyReason}
	}

	e.logger.Info("permission decision recorded", "request_id", requestID, "action", status)
	return nil
}

// Close aborts all in-flight turns and waits for them to finish.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

// runTurn streams the scripted reply for one turn.
func (e *Engine) runTurn(ctx context.Context, in turnInput) {
	defer e.wg.Done()
	defer e.finishTurn(in)

	e.publish(in.streamingID, stream.Event{
		ID:     ulid.Make().String(),
		Kind:   stream.KindStatus,
		Status: stream.StatusStarted,
	})

	if !e.pause(ctx) {
		return
	}

	ack := api.MessageBody{Role: "assistant", Content: api.ContentValue{Text: scriptedAck(in.prompt)}}
	if err := e.emitMessage(ctx, in, "assistant", ack); err != nil {
		e.failTurn(ctx, in.streamingID, err)
		return
	}

	if !e.pause(ctx) {
		return
	}

	if command, ok := shellCommand(in.prompt); ok {
		if err := e.runToolStep(ctx, in, command); err != nil {
			e.failTurn(ctx, in.streamingID, err)
			return
		}
		if !e.pause(ctx) {
			return
		}
	}

	final := api.MessageBody{Role: "assistant", Content: api.ContentValue{Text: scriptedReply(in.prompt)}}
	if err := e.emitMessage(ctx, in, "assistant", final); err != nil {
		e.failTurn(ctx, in.streamingID, err)
	}
}

// runToolStep emits a tool_use message, gates it behind a permission
// decision, and reports the simulated result.
func (e *Engine) runToolStep(ctx context.Context, in turnInput, command string) error {
	toolUseID := ulid.Make().String()
	input, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return fmt.Errorf("encoding tool input: %w", err)
	}

	use := api.MessageBody{
		Role: "assistant",
		Content: api.ContentValue{Blocks: []api.ContentBlock{{
			Type:  api.BlockToolUse,
			ID:    toolUseID,
			Name:  shellToolName,
			Input: input,
		}}},
	}
	if err := e.emitMessage(ctx, in, "assistant", use); err != nil {
		return err
	}

	status := store.PermissionApproved
	reason := ""
	if in.permissionMode != PermissionModeBypass {
		status, reason, err = e.gate(ctx, in, input)
		if err != nil {
			return err
		}
	}

	result := stream.ToolResult{ToolUseID: toolUseID}
	if status == store.PermissionApproved {
		result.Content = simulatedOutput(command)
	} else {
		result.Content = "permission denied: " + reason
		result.IsError = true
	}

	// Persist the result as a user entry with a tool_result block so a
	// reload rebuilds the same transcript the stream delivered
	resBody := api.MessageBody{
		Role: "user",
		Content: api.ContentValue{Blocks: []api.ContentBlock{{
			Type:      api.BlockToolResult,
			ToolUseID: toolUseID,
			Content:   result.Content,
			IsError:   result.IsError,
		}}},
	}
	if _, err := e.saveMessage(ctx, in.sessionID, "user", resBody, in.cwd, time.Now().UTC()); err != nil {
		return err
	}

	e.publish(in.streamingID, stream.Event{
		ID:         ulid.Make().String(),
		Kind:       stream.KindToolResult,
		ToolResult: &result,
	})
	return nil
}

// gate raises a permission request and blocks until it is decided, the
// timeout auto-denies it, or the turn is aborted.
func (e *Engine) gate(ctx context.Context, in turnInput, input []byte) (string, string, error) {
	now := time.Now().UTC()
	req := &store.PermissionRequest{
		ID:          ulid.Make().String(),
		SessionID:   in.sessionID,
		StreamingID: in.streamingID,
		ToolName:    shellToolName,
		Input:       string(input),
		Status:      store.PermissionPending,
		CreatedAt:   now,
	}
	if err := e.store.CreatePermission(ctx, req); err != nil {
		return "", "", fmt.Errorf("creating permission request: %w", err)
	}

	// Register the decision channel before announcing the request so a fast
	// decision cannot slip past the gate
	ch := make(chan decision, 1)
	e.mu.Lock()
	e.decisions[req.ID] = ch
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.decisions, req.ID)
		e.mu.Unlock()
	}()

	e.publish(in.streamingID, stream.Event{
		ID:   ulid.Make().String(),
		Kind: stream.KindPermission,
		Permission: &api.PermissionRequest{
			ID:          req.ID,
			StreamingID: req.StreamingID,
			ToolName:    req.ToolName,
			Input:       json.RawMessage(input),
			Timestamp:   now,
			Status:      store.PermissionPending,
		},
	})
	e.logger.Info("waiting for permission decision", "request_id", req.ID)

	timer := time.NewTimer(e.decisionTimeout)
	defer timer.Stop()

	select {
	case d := <-ch:
		return d.status, d.reason, nil
	case <-timer.C:
		err := e.store.ResolvePermission(ctx, req.ID, store.PermissionDenied, autoDenyReason)
		if errors.Is(err, store.ErrAlreadyResolved) {
			// A decision landed as the timer fired; it is already on the channel
			d := <-ch
			return d.status, d.reason, nil
		}
		if err != nil {
			e.logger.Error("failed to auto-deny permission request", "request_id", req.ID, "error", err)
		}
		e.logger.Info("permission request timed out", "request_id", req.ID)
		return store.PermissionDenied, autoDenyReason, nil
	case <-ctx.Done():
		// Resolve with a background context; the turn's own is already dead
		rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer rcancel()
		if err := e.store.ResolvePermission(rctx, req.ID, store.PermissionDenied, abortDenyReason); err != nil && !errors.Is(err, store.ErrAlreadyResolved) {
			e.logger.Error("failed to deny permission request on abort", "request_id", req.ID, "error", err)
		}
		return "", "", ctx.Err()
	}
}

// finishTurn marks the session completed and announces the end of the
// stream. Runs on every exit path, including aborted turns.
func (e *Engine) finishTurn(in turnInput) {
	e.mu.Lock()
	if cancel, ok := e.turns[in.streamingID]; ok {
		delete(e.turns, in.streamingID)
		cancel()
	}
	e.mu.Unlock()

	// The turn's context may already be cancelled; completion bookkeeping
	// must still land
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := e.store.GetSession(ctx, in.sessionID)
	if err != nil {
		e.logger.Error("failed to load session for completion", "session_id", in.sessionID, "error", err)
	} else {
		session.Status = store.SessionCompleted
		session.StreamingID = ""
		session.UpdatedAt = time.Now().UTC()
		if err := e.store.UpdateSession(ctx, session); err != nil {
			e.logger.Error("failed to mark session completed", "session_id", in.sessionID, "error", err)
		}
	}

	e.publish(in.streamingID, stream.Event{
		ID:     ulid.Make().String(),
		Kind:   stream.KindStatus,
		Status: stream.StatusEnded,
	})
	if e.hooks.TurnEnded != nil {
		e.hooks.TurnEnded()
	}
	e.logger.Info("turn ended", "session_id", in.sessionID, "streaming_id", in.streamingID)
}

// failTurn reports an internal failure to stream subscribers. Aborted turns
// end quietly instead.
func (e *Engine) failTurn(ctx context.Context, streamingID string, err error) {
	if ctx.Err() != nil {
		return
	}
	e.logger.Error("turn failed", "streaming_id", streamingID, "error", err)
	e.publish(streamingID, stream.Event{
		ID:    ulid.Make().String(),
		Kind:  stream.KindError,
		Error: "internal error",
	})
}

// saveMessage persists a transcript entry and returns its wire form.
func (e *Engine) saveMessage(ctx context.Context, sessionID, msgType string, body api.MessageBody, cwd string, ts time.Time) (*api.RawMessage, error) {
	content, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding message body: %w", err)
	}

	raw := &api.RawMessage{
		UUID:      uuid.New().String(),
		Type:      msgType,
		Message:   &body,
		Timestamp: ts,
		Cwd:       cwd,
	}
	stored := &store.Message{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		UUID:      raw.UUID,
		Type:      msgType,
		Content:   string(content),
		Cwd:       cwd,
		CreatedAt: ts,
	}
	if err := e.store.SaveMessage(ctx, stored); err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}
	return raw, nil
}

// emitMessage persists a transcript entry and publishes it as a message event.
func (e *Engine) emitMessage(ctx context.Context, in turnInput, msgType string, body api.MessageBody) error {
	raw, err := e.saveMessage(ctx, in.sessionID, msgType, body, in.cwd, time.Now().UTC())
	if err != nil {
		return err
	}
	e.publish(in.streamingID, stream.Event{
		ID:      ulid.Make().String(),
		Kind:    stream.KindMessage,
		Message: raw,
	})
	return nil
}

// publish fans an event out and fires the hook.
func (e *Engine) publish(streamingID string, ev stream.Event) {
	e.broadcaster.Publish(streamingID, ev)
	if e.hooks.EventPublished != nil {
		e.hooks.EventPublished()
	}
}

// pause sleeps for the step delay, returning false if the turn was aborted.
func (e *Engine) pause(ctx context.Context) bool {
	if e.stepDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(e.stepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// deriveTitle produces a session title from the first line of the prompt.
func deriveTitle(prompt string) string {
	title := strings.TrimSpace(prompt)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	runes := []rune(title)
	if len(runes) > 60 {
		title = string(runes[:57]) + "..."
	}
	return title
}

// shellCommand extracts the command from a "!sh <command>" prompt.
func shellCommand(prompt string) (string, bool) {
	trimmed := strings.TrimSpace(prompt)
	if !strings.HasPrefix(trimmed, "!sh ") {
		return "", false
	}
	command := strings.TrimSpace(strings.TrimPrefix(trimmed, "!sh "))
	return command, command != ""
}

func scriptedAck(prompt string) string {
	if _, ok := shellCommand(prompt); ok {
		return "I'll run that command for you."
	}
	return "Let me take a look."
}

func scriptedReply(prompt string) string {
	if command, ok := shellCommand(prompt); ok {
		return fmt.Sprintf("Ran `%s`. The output is above.", command)
	}
	lower := strings.ToLower(prompt)
	if strings.Contains(lower, "markdown") || strings.Contains(lower, "bullet") || strings.Contains(lower, "list") {
		return "Here is a **markdown** response:\n\n- First item\n- Second item with `code`\n- Third item\n\n> This is a blockquote.\n"
	}
	return fmt.Sprintf("Echo: **%s**\n\nI received your message and am responding with some *formatted* text.", strings.TrimSpace(prompt))
}

func simulatedOutput(command string) string {
	return fmt.Sprintf("$ %s\n(simulated) exit status 0", command)
}
