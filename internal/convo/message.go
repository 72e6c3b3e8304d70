// ABOUTME: Display message model and the history transform.
// ABOUTME: Sidechain filtering, envelope unwrapping, and stable positional ids.

package convo

import (
	"fmt"
	"strings"
	"time"

	"github.com/hcnode/cui/internal/api"
)

// MessageType identifies who authored a chat message.
type MessageType string

const (
	MessageTypeUser      MessageType = "user"
	MessageTypeAssistant MessageType = "assistant"
	MessageTypeSystem    MessageType = "system"
)

// Message is a chat log entry as shown to the user. ID is assigned by the
// store and is stable across reloads of the same history.
type Message struct {
	ID        string
	Type      MessageType
	Text      string
	Blocks    []api.ContentBlock
	Timestamp time.Time
	Cwd       string
}

// DisplayText returns the plain text of the message: Text when set,
// otherwise the concatenated text blocks.
func (m Message) DisplayText() string {
	if m.Text != "" {
		return m.Text
	}
	var parts []string
	for _, block := range m.Blocks {
		if block.Type == api.BlockText && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// FromRaw converts one wire message into a display message. The id is left
// empty; the store assigns it on insertion.
func FromRaw(rm api.RawMessage) Message {
	msg := Message{
		Type:      typeOf(rm),
		Timestamp: rm.Timestamp,
		Cwd:       rm.Cwd,
	}
	if rm.Message != nil {
		msg.Text = rm.Message.Content.Text
		msg.Blocks = rm.Message.Content.Blocks
	}
	return msg
}

// typeOf resolves the author from the entry type, falling back to the
// nested role for entries that omit it.
func typeOf(rm api.RawMessage) MessageType {
	switch rm.Type {
	case "user":
		return MessageTypeUser
	case "assistant":
		return MessageTypeAssistant
	case "system":
		return MessageTypeSystem
	}
	if rm.Message != nil {
		switch rm.Message.Role {
		case "user":
			return MessageTypeUser
		case "assistant":
			return MessageTypeAssistant
		}
	}
	return MessageTypeSystem
}

// TransformHistory converts raw backend history into display messages.
// Sidechain entries are excluded and ids are assigned by position, so the
// same history always yields the same result.
func TransformHistory(raw []api.RawMessage) []Message {
	messages := make([]Message, 0, len(raw))
	for _, rm := range raw {
		if rm.IsSidechain {
			continue
		}
		msg := FromRaw(rm)
		msg.ID = fmt.Sprintf("msg-%d", len(messages))
		messages = append(messages, msg)
	}
	return messages
}

// WorkingDirOf returns the working directory of the last message that
// carries one, or "" when none does.
func WorkingDirOf(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Cwd != "" {
			return messages[i].Cwd
		}
	}
	return ""
}
