// ABOUTME: Permission endpoints: pending lookups and decision submission.
// ABOUTME: Decisions are keyed by request id, not by streaming session.

package api

import (
	"context"
	"fmt"
	"net/url"
)

// PendingPermissions fetches permission requests still awaiting a decision
// for the given streaming session.
func (c *Client) PendingPermissions(ctx context.Context, streamingID string) ([]PermissionRequest, error) {
	query := url.Values{}
	query.Set("streaming_id", streamingID)
	query.Set("status", "pending")

	var out struct {
		Permissions []PermissionRequest `json:"permissions"`
	}
	if err := c.get(ctx, "/api/permissions", query, &out); err != nil {
		return nil, fmt.Errorf("list pending permissions: %w", err)
	}
	return out.Permissions, nil
}

// SendPermissionDecision resolves a permission request with an approve or
// deny action. denyReason is only meaningful for denials and may be empty.
func (c *Client) SendPermissionDecision(ctx context.Context, requestID, action, denyReason string) error {
	body := struct {
		Action     string `json:"action"`
		DenyReason string `json:"deny_reason,omitempty"`
	}{
		Action:     action,
		DenyReason: denyReason,
	}

	if err := c.post(ctx, "/api/permissions/"+url.PathEscape(requestID)+"/decision", body, nil); err != nil {
		return fmt.Errorf("send decision for %s: %w", requestID, err)
	}
	return nil
}
