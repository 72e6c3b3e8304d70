// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides session/message/permission persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			cwd TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'completed',
			streaming_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_updated
			ON sessions(updated_at);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			uuid TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'user',
			content TEXT NOT NULL,
			cwd TEXT,
			is_sidechain INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session
			ON messages(session_id);

		CREATE TABLE IF NOT EXISTS permission_requests (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			streaming_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			input TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'pending',
			deny_reason TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_permissions_stream
			ON permission_requests(streaming_id, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// runMigrations applies schema changes to databases created by older builds
func (s *SQLiteStore) runMigrations() error {
	// Add sessions.model if missing (added after initial release)
	hasModel, err := s.columnExists("sessions", "model")
	if err != nil {
		return fmt.Errorf("checking sessions.model: %w", err)
	}
	if !hasModel {
		if _, err := s.db.Exec(`ALTER TABLE sessions ADD COLUMN model TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("adding sessions.model: %w", err)
		}
		s.logger.Info("migrated schema", "change", "sessions.model")
	}

	return nil
}

// columnExists checks pragma_table_info for a named column
func (s *SQLiteStore) columnExists(table, column string) (bool, error) {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession stores a new session.
// Returns ErrDuplicateSession if a session with the same ID already exists.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, title, cwd, model, status, streaming_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.Title,
		session.Cwd,
		session.Model,
		session.Status,
		session.StreamingID,
		session.CreatedAt.UTC().Format(time.RFC3339),
		session.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("inserting session: %w", err)
	}

	s.logger.Debug("created session", "id", session.ID, "status", session.Status)
	return nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// GetSession retrieves a session by ID.
// Returns ErrNotFound if the session doesn't exist.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, title, cwd, model, status, streaming_id, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`

	var session Session
	var createdAtStr, updatedAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.Title,
		&session.Cwd,
		&session.Model,
		&session.Status,
		&session.StreamingID,
		&createdAtStr,
		&updatedAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &session, nil
}

// SessionByStreamingID finds the session whose current turn carries the
// given streaming ID. Returns ErrNotFound when no ongoing session matches.
func (s *SQLiteStore) SessionByStreamingID(ctx context.Context, streamingID string) (*Session, error) {
	if streamingID == "" {
		return nil, ErrNotFound
	}

	query := `
		SELECT id, title, cwd, model, status, streaming_id, created_at, updated_at
		FROM sessions
		WHERE streaming_id = ?
	`

	var session Session
	var createdAtStr, updatedAtStr string

	err := s.db.QueryRowContext(ctx, query, streamingID).Scan(
		&session.ID,
		&session.Title,
		&session.Cwd,
		&session.Model,
		&session.Status,
		&session.StreamingID,
		&createdAtStr,
		&updatedAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session by streaming id: %w", err)
	}

	session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &session, nil
}

// ListSessions retrieves sessions ordered by most recently updated.
// If limit is 0 or negative, all sessions are returned.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	query := `
		SELECT id, title, cwd, model, status, streaming_id, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var session Session
		var createdAtStr, updatedAtStr string

		if err := rows.Scan(
			&session.ID,
			&session.Title,
			&session.Cwd,
			&session.Model,
			&session.Status,
			&session.StreamingID,
			&createdAtStr,
			&updatedAtStr,
		); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}

		session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}

		sessions = append(sessions, &session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}

	return sessions, nil
}

// UpdateSession updates an existing session.
// Returns ErrNotFound if the session doesn't exist.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *Session) error {
	query := `
		UPDATE sessions
		SET title = ?, cwd = ?, model = ?, status = ?, streaming_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		session.Title,
		session.Cwd,
		session.Model,
		session.Status,
		session.StreamingID,
		session.UpdatedAt.UTC().Format(time.RFC3339),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated session", "id", session.ID, "status", session.Status)
	return nil
}

// SaveMessage stores a transcript entry.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	msgType := msg.Type
	if msgType == "" {
		msgType = "user"
	}

	query := `
		INSERT INTO messages (id, session_id, uuid, type, content, cwd, is_sidechain, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.SessionID,
		msg.UUID,
		msgType,
		msg.Content,
		nullString(msg.Cwd),
		boolToInt(msg.IsSidechain),
		msg.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("saved message", "id", msg.ID, "session_id", msg.SessionID, "type", msgType)
	return nil
}

// nullString returns nil for empty strings, otherwise the string pointer
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SessionMessages retrieves all messages for a session in chronological order.
// ULID message IDs break created_at ties within the same second.
func (s *SQLiteStore) SessionMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	query := `
		SELECT id, session_id, uuid, type, content, cwd, is_sidechain, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var createdAtStr string
		var cwd *string
		var sidechain int

		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.UUID, &msg.Type, &msg.Content, &cwd, &sidechain, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}

		if cwd != nil {
			msg.Cwd = *cwd
		}
		msg.IsSidechain = sidechain != 0

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// CountMessages returns the number of messages stored for a session.
func (s *SQLiteStore) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`,
		sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}

// CreatePermission stores a new permission request.
func (s *SQLiteStore) CreatePermission(ctx context.Context, req *PermissionRequest) error {
	status := req.Status
	if status == "" {
		status = PermissionPending
	}

	query := `
		INSERT INTO permission_requests (id, session_id, streaming_id, tool_name, input, status, deny_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		req.ID,
		req.SessionID,
		req.StreamingID,
		req.ToolName,
		req.Input,
		status,
		nullString(req.DenyReason),
		req.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting permission request: %w", err)
	}

	s.logger.Debug("created permission request", "id", req.ID, "tool", req.ToolName)
	return nil
}

// GetPermission retrieves a permission request by ID.
// Returns ErrNotFound if the request doesn't exist.
func (s *SQLiteStore) GetPermission(ctx context.Context, id string) (*PermissionRequest, error) {
	query := `
		SELECT id, session_id, streaming_id, tool_name, input, status, deny_reason, created_at
		FROM permission_requests
		WHERE id = ?
	`

	var req PermissionRequest
	var createdAtStr string
	var denyReason *string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.SessionID,
		&req.StreamingID,
		&req.ToolName,
		&req.Input,
		&req.Status,
		&denyReason,
		&createdAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying permission request: %w", err)
	}

	if denyReason != nil {
		req.DenyReason = *denyReason
	}

	req.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &req, nil
}

// ListPermissions retrieves permission requests in chronological order.
// Empty streamingID or status match all values for that field.
func (s *SQLiteStore) ListPermissions(ctx context.Context, streamingID, status string) ([]*PermissionRequest, error) {
	query := `
		SELECT id, session_id, streaming_id, tool_name, input, status, deny_reason, created_at
		FROM permission_requests
	`
	var conds []string
	var args []any
	if streamingID != "" {
		conds = append(conds, "streaming_id = ?")
		args = append(args, streamingID)
	}
	if status != "" {
		conds = append(conds, "status = ?")
		args = append(args, status)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying permission requests: %w", err)
	}
	defer rows.Close()

	var reqs []*PermissionRequest
	for rows.Next() {
		var req PermissionRequest
		var createdAtStr string
		var denyReason *string

		if err := rows.Scan(
			&req.ID,
			&req.SessionID,
			&req.StreamingID,
			&req.ToolName,
			&req.Input,
			&req.Status,
			&denyReason,
			&createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("scanning permission row: %w", err)
		}

		if denyReason != nil {
			req.DenyReason = *denyReason
		}

		req.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing permission created_at: %w", err)
		}

		reqs = append(reqs, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating permission rows: %w", err)
	}

	return reqs, nil
}

// ResolvePermission records a decision on a pending permission request.
// Returns ErrNotFound if the request doesn't exist and ErrAlreadyResolved
// if it was already decided.
func (s *SQLiteStore) ResolvePermission(ctx context.Context, id, status, denyReason string) error {
	query := `
		UPDATE permission_requests
		SET status = ?, deny_reason = ?
		WHERE id = ? AND status = ?
	`

	result, err := s.db.ExecContext(ctx, query, status, nullString(denyReason), id, PermissionPending)
	if err != nil {
		return fmt.Errorf("resolving permission request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetPermission(ctx, id); getErr != nil {
			return getErr
		}
		return ErrAlreadyResolved
	}

	s.logger.Debug("resolved permission request", "id", id, "status", status)
	return nil
}
