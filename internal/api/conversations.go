// ABOUTME: Conversation endpoints: history, recent list, start, and stop.
// ABOUTME: StartConversation returns the session id the caller must reload under.

package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ConversationDetails fetches the full message history for a session.
func (c *Client) ConversationDetails(ctx context.Context, sessionID string) ([]RawMessage, error) {
	var out struct {
		Messages []RawMessage `json:"messages"`
	}
	if err := c.get(ctx, "/api/conversations/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", sessionID, err)
	}
	return out.Messages, nil
}

// Conversations fetches the most recently active conversations, newest
// first. limit bounds the result; zero uses the backend default.
func (c *Client) Conversations(ctx context.Context, limit int) ([]ConversationSummary, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var out struct {
		Conversations []ConversationSummary `json:"conversations"`
	}
	if err := c.get(ctx, "/api/conversations", query, &out); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return out.Conversations, nil
}

// StartConversation starts a new conversation turn, optionally resuming an
// existing session. The returned session id identifies the conversation to
// load afterwards; it may differ from the resumed id, so callers must
// navigate to it rather than assume continuity.
func (c *Client) StartConversation(ctx context.Context, opts StartOptions) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.post(ctx, "/api/conversations/start", opts, &out); err != nil {
		return "", fmt.Errorf("start conversation: %w", err)
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("start conversation: backend returned no session id")
	}
	return out.SessionID, nil
}

// StopConversation asks the backend to stop an active streaming session.
// Stopping a session that already ended is not an error.
func (c *Client) StopConversation(ctx context.Context, streamingID string) error {
	if err := c.post(ctx, "/api/stream/"+url.PathEscape(streamingID)+"/stop", nil, nil); err != nil {
		return fmt.Errorf("stop stream %s: %w", streamingID, err)
	}
	return nil
}
