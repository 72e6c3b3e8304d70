// Package store provides persistent storage for the dev backend using SQLite.
//
// # Data Models
//
//   - Session: A conversation with status (ongoing, completed), the streaming
//     identifier of its active turn, and session metadata (title, cwd, model)
//   - Message: An individual transcript entry holding the wire-format message
//     body as a JSON blob plus envelope fields (uuid, type, cwd, is_sidechain)
//   - PermissionRequest: A pending or resolved tool approval scoped to a
//     streaming identifier
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Database file locations:
//
//   - Development: ~/.local/share/cui/backend.db
//   - Testing: :memory: (in-memory database)
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateSession: Session already exists
//   - ErrAlreadyResolved: Permission request was already decided
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	store := store.NewMockStore()
//
// Use NewSQLiteStore(":memory:") for integration tests with real SQLite.
package store
