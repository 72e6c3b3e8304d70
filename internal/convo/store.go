// ABOUTME: Mutable store for one conversation's reconciled view.
// ABOUTME: Named mutations only; accessors return snapshots safe for rendering code.

package convo

import (
	"fmt"
	"sync"
	"time"

	"github.com/hcnode/cui/internal/api"
	"github.com/hcnode/cui/internal/dedupe"
	"github.com/hcnode/cui/internal/stream"
)

const (
	eventCacheTTL  = 5 * time.Minute
	eventCacheSize = 4096
)

// Store holds the reconciled view of one conversation. A single owner
// performs all mutations through the named methods; rendering code reads
// concurrently through the accessors, which return copies.
type Store struct {
	mu          sync.RWMutex
	messages    []Message
	toolResults map[string]ToolResult
	permission  *api.PermissionRequest
	expanded    map[string]bool
	nextID      int
	events      *dedupe.Cache
}

// ToolResult is the recorded outcome of a tool invocation.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// NewStore creates an empty conversation store. Call Close when done to
// release the event cache.
func NewStore() *Store {
	return &Store{
		toolResults: make(map[string]ToolResult),
		expanded:    make(map[string]bool),
		events:      dedupe.New(eventCacheTTL, eventCacheSize),
	}
}

// Close releases the store's event cache.
func (s *Store) Close() {
	s.events.Close()
}

// ReplaceAll swaps the entire message log for the given history and
// rebuilds the tool result index from tool_result blocks found in it.
// Replacing with identical history yields an identical store.
func (s *Store) ReplaceAll(messages []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]Message, len(messages))
	copy(s.messages, messages)
	s.nextID = len(messages)

	s.toolResults = make(map[string]ToolResult)
	for _, msg := range messages {
		for _, block := range msg.Blocks {
			if block.Type == api.BlockToolResult && block.ToolUseID != "" {
				s.toolResults[block.ToolUseID] = ToolResult{
					ToolUseID: block.ToolUseID,
					Content:   block.Content,
					IsError:   block.IsError,
				}
			}
		}
	}
}

// ApplyStreamEvent applies one stream event to the store. Application is
// idempotent per event id: a replayed id is ignored. Status events carry
// no store state and are ignored here.
func (s *Store) ApplyStreamEvent(ev stream.Event) {
	if ev.ID != "" && s.events.Seen(ev.ID) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case stream.KindMessage:
		if ev.Message == nil || ev.Message.IsSidechain {
			return
		}
		s.appendLocked(FromRaw(*ev.Message))

	case stream.KindToolResult:
		if ev.ToolResult == nil || ev.ToolResult.ToolUseID == "" {
			return
		}
		s.toolResults[ev.ToolResult.ToolUseID] = ToolResult{
			ToolUseID: ev.ToolResult.ToolUseID,
			Content:   ev.ToolResult.Content,
			IsError:   ev.ToolResult.IsError,
		}

	case stream.KindPermission:
		if ev.Permission == nil {
			return
		}
		req := *ev.Permission
		s.permission = &req
	}
}

// Append adds one message to the end of the log, assigning it the next
// positional id. Stream appends continue the counter left by ReplaceAll.
func (s *Store) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msg)
}

func (s *Store) appendLocked(msg Message) {
	msg.ID = fmt.Sprintf("msg-%d", s.nextID)
	s.nextID++
	s.messages = append(s.messages, msg)
}

// SetPermission installs req as the current permission request.
func (s *Store) SetPermission(req api.PermissionRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permission = &req
}

// ClearPermission removes the current permission request.
func (s *Store) ClearPermission() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permission = nil
}

// Permission returns the current permission request, if any.
func (s *Store) Permission() (api.PermissionRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.permission == nil {
		return api.PermissionRequest{}, false
	}
	return *s.permission, true
}

// Messages returns a copy of the ordered message log.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := make([]Message, len(s.messages))
	copy(messages, s.messages)
	return messages
}

// Len returns the number of messages in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// ToolResult returns the recorded outcome for a tool use id.
func (s *Store) ToolResult(toolUseID string) (ToolResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.toolResults[toolUseID]
	return result, ok
}

// ToolResults returns a copy of the tool result index.
func (s *Store) ToolResults() map[string]ToolResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make(map[string]ToolResult, len(s.toolResults))
	for id, result := range s.toolResults {
		results[id] = result
	}
	return results
}

// ToggleExpanded flips the expansion state for a tool use id. Expansion is
// pure view state and survives history reloads because tool use ids do.
func (s *Store) ToggleExpanded(toolUseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded[toolUseID] = !s.expanded[toolUseID]
}

// IsExpanded reports the expansion state for a tool use id.
func (s *Store) IsExpanded(toolUseID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded[toolUseID]
}
