// ABOUTME: User actions: send, stop, and permission decisions.
// ABOUTME: Send never appends locally; the reload after navigation is authoritative.

package controller

import (
	"context"
	"fmt"

	"github.com/hcnode/cui/internal/api"
)

// SendOptions configure a send. An empty WorkingDir falls back to the
// directory derived from the loaded history.
type SendOptions struct {
	Text           string
	WorkingDir     string
	Model          string
	PermissionMode string
}

// Send starts or resumes a conversation with the given prompt. On success
// the Navigate hook fires with the session id the backend returned and the
// controller reloads under that id. The local log is never updated
// optimistically; the reload is the source of truth. On failure the error
// surfaces as banner text and state stays untouched.
func (c *Controller) Send(ctx context.Context, opts SendOptions) error {
	c.mu.Lock()
	gen := c.generation
	resumed := c.sessionID
	workingDir := opts.WorkingDir
	if workingDir == "" {
		workingDir = c.workingDir
	}
	c.mu.Unlock()

	newSessionID, err := c.backend.StartConversation(ctx, api.StartOptions{
		ResumedSessionID: resumed,
		InitialPrompt:    opts.Text,
		WorkingDirectory: workingDir,
		Model:            opts.Model,
		PermissionMode:   opts.PermissionMode,
	})
	if err != nil {
		c.setErrorIfCurrent(gen, fmt.Sprintf("failed to send message: %v", err))
		return err
	}

	c.logger.Debug("conversation started",
		"resumed_session_id", resumed,
		"session_id", newSessionID,
	)
	if c.hooks.Navigate != nil {
		c.hooks.Navigate(newSessionID)
	}
	c.SetSession(ctx, newSessionID)
	return nil
}

// Stop halts the active streaming session. Without one it is a no-op. The
// subscription disconnects and local streaming state clears even when the
// backend call fails, so the view never stays stuck streaming; the failure
// still surfaces as banner text.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	gen := c.generation
	streamingID := c.streamingID
	c.mu.Unlock()

	if streamingID == "" {
		return nil
	}

	err := c.backend.StopConversation(ctx, streamingID)

	if c.apply(gen, func() {
		if c.conn != nil {
			c.conn.Disconnect()
			c.conn = nil
		}
		c.streamingID = ""
		if err != nil {
			c.errText = fmt.Sprintf("failed to stop: %v", err)
		}
	}) {
		c.notify()
	}
	return err
}

// Decide resolves the current permission request. Submissions are
// single-flight: while one is outstanding further calls are ignored, so a
// double keypress produces exactly one backend call. Success clears the
// request; failure keeps it so the user can retry.
func (c *Controller) Decide(ctx context.Context, action, denyReason string) error {
	c.mu.Lock()
	if c.deciding {
		c.mu.Unlock()
		c.logger.Debug("permission decision already in flight")
		return nil
	}
	req, ok := c.store.Permission()
	if !ok {
		c.mu.Unlock()
		return nil
	}
	c.deciding = true
	gen := c.generation
	c.mu.Unlock()

	err := c.backend.SendPermissionDecision(ctx, req.ID, action, denyReason)

	c.mu.Lock()
	c.deciding = false
	if gen == c.generation && !c.closed {
		if err != nil {
			c.errText = fmt.Sprintf("failed to submit decision: %v", err)
		} else {
			c.store.ClearPermission()
		}
	}
	c.mu.Unlock()

	c.notify()
	return err
}
