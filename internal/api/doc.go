// Package api implements the HTTP client for a conversation backend.
//
// # Overview
//
// The backend exposes a small JSON API plus an SSE stream per active
// conversation turn. This package covers the JSON side; live streaming
// lives in internal/stream.
//
// # Operations
//
//   - ConversationDetails: Full message history for a session
//   - Conversations: Recently active conversations, newest first
//   - StartConversation: Start or resume a conversation turn
//   - StopConversation: Stop an active streaming session
//   - PendingPermissions: Tool approvals awaiting a decision
//   - SendPermissionDecision: Approve or deny a permission request
//   - ListDirectory: Directory listing for the workspace picker
//   - Commands: Slash commands available in a working directory
//
// # Authentication
//
// Requests carry a bearer token when one is configured:
//
//	Authorization: Bearer <token>
//
// Token resolves the token from CUI_TOKEN or ~/.config/cui/token.
//
// # Errors
//
// A 404 maps to ErrNotFound. Other non-2xx responses decode the backend's
// {"error": "..."} envelope into *Error.
package api
