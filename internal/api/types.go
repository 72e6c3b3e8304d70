// ABOUTME: Wire types shared by the backend's JSON endpoints.
// ABOUTME: History entries nest role/content envelopes; content is a string or block list.

package api

import (
	"encoding/json"
	"time"
)

// Session status values reported by the backend.
const (
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
)

// Content block types.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Permission decision actions.
const (
	DecisionApprove = "approve"
	DecisionDeny    = "deny"
)

// RawMessage is a single history entry as stored by the backend. User and
// assistant messages nest their payload under Message; entries flagged as
// sidechain belong to a side conversation and are excluded from the primary
// thread.
type RawMessage struct {
	UUID        string       `json:"uuid"`
	Type        string       `json:"type"`
	Message     *MessageBody `json:"message,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Cwd         string       `json:"cwd,omitempty"`
	IsSidechain bool         `json:"is_sidechain,omitempty"`
}

// MessageBody is the nested role/content envelope inside a RawMessage.
type MessageBody struct {
	Role    string       `json:"role"`
	Content ContentValue `json:"content"`
}

// ContentValue holds message content, which arrives either as a plain JSON
// string or as a list of content blocks. Exactly one of Text and Blocks is
// populated after decoding.
type ContentValue struct {
	Text   string
	Blocks []ContentBlock
}

// UnmarshalJSON accepts both wire encodings of message content.
func (v *ContentValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &v.Text)
	}
	return json.Unmarshal(data, &v.Blocks)
}

// MarshalJSON writes the block list when present, the plain string otherwise.
func (v ContentValue) MarshalJSON() ([]byte, error) {
	if v.Blocks != nil {
		return json.Marshal(v.Blocks)
	}
	return json.Marshal(v.Text)
}

// ContentBlock is one structured element of a message: text, a tool
// invocation, or a tool result. The populated fields depend on Type.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ConversationSummary is one entry of the recent-conversations list.
type ConversationSummary struct {
	SessionID    string      `json:"session_id"`
	Status       string      `json:"status"`
	StreamingID  string      `json:"streaming_id,omitempty"`
	SessionInfo  SessionInfo `json:"session_info"`
	Summary      string      `json:"summary,omitempty"`
	ProjectPath  string      `json:"project_path,omitempty"`
	MessageCount int         `json:"message_count,omitempty"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// SessionInfo carries display metadata for a conversation.
type SessionInfo struct {
	Title string `json:"title,omitempty"`
	Cwd   string `json:"cwd,omitempty"`
	Model string `json:"model,omitempty"`
}

// PermissionRequest is a tool approval raised by a streaming session.
type PermissionRequest struct {
	ID          string          `json:"id"`
	StreamingID string          `json:"streaming_id"`
	ToolName    string          `json:"tool_name"`
	Input       json.RawMessage `json:"input,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Status      string          `json:"status"`
}

// StartOptions are the parameters for starting or resuming a conversation.
// ResumedSessionID is empty for a brand new conversation.
type StartOptions struct {
	ResumedSessionID string `json:"resumed_session_id,omitempty"`
	InitialPrompt    string `json:"initial_prompt"`
	WorkingDirectory string `json:"working_directory,omitempty"`
	Model            string `json:"model,omitempty"`
	PermissionMode   string `json:"permission_mode,omitempty"`
}

// DirEntry is one entry of a directory listing.
type DirEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// Command is a slash command advertised for a working directory.
type Command struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
