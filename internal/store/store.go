// ABOUTME: Storage interfaces and data models for the dev backend
// ABOUTME: Defines Session, Message, and PermissionRequest persistence

package store

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by Store implementations.
var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicateSession is returned when creating a session with an existing ID
	ErrDuplicateSession = errors.New("session already exists")

	// ErrAlreadyResolved is returned when deciding a permission request twice
	ErrAlreadyResolved = errors.New("permission request already resolved")
)

// Session status values.
const (
	SessionOngoing   = "ongoing"
	SessionCompleted = "completed"
)

// Permission request status values.
const (
	PermissionPending  = "pending"
	PermissionApproved = "approved"
	PermissionDenied   = "denied"
)

// Session represents a stored conversation.
type Session struct {
	ID          string
	Title       string
	Cwd         string
	Model       string
	Status      string // "ongoing" or "completed"
	StreamingID string // non-empty only while a turn is in flight
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message represents a single transcript entry within a session.
// Content holds the wire-format message body as JSON; the remaining
// fields are the envelope the history endpoint serves verbatim.
type Message struct {
	ID          string // ULID, lexicographically ordered by creation
	SessionID   string
	UUID        string
	Type        string // "user", "assistant", or "system"
	Content     string // JSON-encoded {role, content} body
	Cwd         string
	IsSidechain bool
	CreatedAt   time.Time
}

// PermissionRequest represents a tool approval request raised mid-turn.
type PermissionRequest struct {
	ID          string
	SessionID   string
	StreamingID string
	ToolName    string
	Input       string // JSON-encoded tool input
	Status      string // "pending", "approved", or "denied"
	DenyReason  string
	CreatedAt   time.Time
}

// Store defines the interface for backend persistence operations.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// SessionByStreamingID finds the session that owns an in-flight stream.
	// Completed sessions drop their streaming ID, so only ongoing turns match.
	SessionByStreamingID(ctx context.Context, streamingID string) (*Session, error)
	ListSessions(ctx context.Context, limit int) ([]*Session, error)
	UpdateSession(ctx context.Context, session *Session) error

	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	SessionMessages(ctx context.Context, sessionID string) ([]*Message, error)
	CountMessages(ctx context.Context, sessionID string) (int, error)

	// Permission requests
	CreatePermission(ctx context.Context, req *PermissionRequest) error
	GetPermission(ctx context.Context, id string) (*PermissionRequest, error)
	ListPermissions(ctx context.Context, streamingID, status string) ([]*PermissionRequest, error)
	ResolvePermission(ctx context.Context, id, status, denyReason string) error

	// Close releases any resources held by the store
	Close() error
}
