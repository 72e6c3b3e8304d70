// ABOUTME: Event model for the conversation SSE stream.
// ABOUTME: Kind names double as SSE event names on the wire.

package stream

import (
	"encoding/json"
	"fmt"

	"github.com/hcnode/cui/internal/api"
)

// Event kinds, carried as the SSE event name.
const (
	KindMessage    = "message"
	KindToolResult = "tool_result"
	KindPermission = "permission_request"
	KindStatus     = "status"
	KindError      = "error"
)

// Turn lifecycle states carried by status events.
const (
	StatusStarted = "started"
	StatusEnded   = "ended"
)

// Event is one frame delivered by a streaming session. Kind selects which
// payload field is set. Error is only populated on the serving side; the
// subscriber surfaces error frames through the OnError handler instead.
type Event struct {
	ID         string
	Kind       string
	Message    *api.RawMessage
	ToolResult *ToolResult
	Permission *api.PermissionRequest
	Status     string
	Error      string
}

// Data renders the kind-specific JSON payload for writing the event to the
// wire.
func (e Event) Data() ([]byte, error) {
	switch e.Kind {
	case KindMessage:
		return json.Marshal(e.Message)
	case KindToolResult:
		return json.Marshal(e.ToolResult)
	case KindPermission:
		return json.Marshal(e.Permission)
	case KindStatus:
		return json.Marshal(statusPayload{State: e.Status})
	case KindError:
		return json.Marshal(errorPayload{Error: e.Error})
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

// ToolResult reports the outcome of one tool invocation during streaming.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// statusPayload is the JSON body of a status event.
type statusPayload struct {
	State string `json:"state"`
}

// errorPayload is the JSON body of an error event.
type errorPayload struct {
	Error string `json:"error"`
}

// decodeEvent parses one SSE frame into an Event. The caller handles error
// frames separately; unknown kinds are rejected so they can be skipped.
func decodeEvent(id, kind string, data []byte) (Event, error) {
	ev := Event{ID: id, Kind: kind}

	switch kind {
	case KindMessage:
		ev.Message = &api.RawMessage{}
		if err := json.Unmarshal(data, ev.Message); err != nil {
			return Event{}, fmt.Errorf("decode message event: %w", err)
		}
	case KindToolResult:
		ev.ToolResult = &ToolResult{}
		if err := json.Unmarshal(data, ev.ToolResult); err != nil {
			return Event{}, fmt.Errorf("decode tool_result event: %w", err)
		}
	case KindPermission:
		ev.Permission = &api.PermissionRequest{}
		if err := json.Unmarshal(data, ev.Permission); err != nil {
			return Event{}, fmt.Errorf("decode permission_request event: %w", err)
		}
	case KindStatus:
		var payload statusPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, fmt.Errorf("decode status event: %w", err)
		}
		ev.Status = payload.State
	default:
		return Event{}, fmt.Errorf("unknown event kind %q", kind)
	}

	return ev, nil
}
