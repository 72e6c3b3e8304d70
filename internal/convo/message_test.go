// ABOUTME: Tests for the history transform
// ABOUTME: Verifies sidechain filtering, envelope unwrapping, stable ids, and cwd derivation

package convo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcnode/cui/internal/api"
)

func rawText(msgType, text, cwd string, sidechain bool) api.RawMessage {
	return api.RawMessage{
		UUID:        "u-" + text,
		Type:        msgType,
		Timestamp:   time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
		Cwd:         cwd,
		IsSidechain: sidechain,
		Message: &api.MessageBody{
			Role:    msgType,
			Content: api.ContentValue{Text: text},
		},
	}
}

func TestTransformHistory_DropsSidechainEntries(t *testing.T) {
	raw := []api.RawMessage{
		rawText("user", "keep me", "/home/user/project", false),
		rawText("assistant", "side one", "", true),
		rawText("assistant", "side two", "", true),
	}

	messages := TransformHistory(raw)

	require.Len(t, messages, 1)
	assert.Equal(t, "keep me", messages[0].Text)
	assert.Equal(t, MessageTypeUser, messages[0].Type)
	assert.Equal(t, "/home/user/project", WorkingDirOf(messages))
}

func TestTransformHistory_AssignsPositionalIDs(t *testing.T) {
	raw := []api.RawMessage{
		rawText("user", "first", "", false),
		rawText("assistant", "side", "", true),
		rawText("assistant", "second", "", false),
	}

	messages := TransformHistory(raw)

	require.Len(t, messages, 2)
	assert.Equal(t, "msg-0", messages[0].ID)
	assert.Equal(t, "msg-1", messages[1].ID)
}

func TestTransformHistory_IsDeterministic(t *testing.T) {
	raw := []api.RawMessage{
		rawText("user", "a", "/p1", false),
		rawText("assistant", "b", "", true),
		rawText("assistant", "c", "/p2", false),
	}

	first := TransformHistory(raw)
	second := TransformHistory(raw)

	assert.Equal(t, first, second)
}

func TestTransformHistory_UnwrapsBlockContent(t *testing.T) {
	raw := []api.RawMessage{
		{
			UUID:      "u1",
			Type:      "assistant",
			Timestamp: time.Now(),
			Message: &api.MessageBody{
				Role: "assistant",
				Content: api.ContentValue{Blocks: []api.ContentBlock{
					{Type: api.BlockText, Text: "running the tool"},
					{Type: api.BlockToolUse, ID: "tool-1", Name: "read_file", Input: json.RawMessage(`{"path":"x"}`)},
				}},
			},
		},
	}

	messages := TransformHistory(raw)

	require.Len(t, messages, 1)
	assert.Empty(t, messages[0].Text)
	require.Len(t, messages[0].Blocks, 2)
	assert.Equal(t, "read_file", messages[0].Blocks[1].Name)
	assert.Equal(t, "running the tool", messages[0].DisplayText())
}

func TestTransformHistory_FallsBackToNestedRole(t *testing.T) {
	raw := []api.RawMessage{
		{
			UUID:      "u1",
			Timestamp: time.Now(),
			Message:   &api.MessageBody{Role: "assistant", Content: api.ContentValue{Text: "untyped"}},
		},
		{
			UUID:      "u2",
			Timestamp: time.Now(),
		},
	}

	messages := TransformHistory(raw)

	require.Len(t, messages, 2)
	assert.Equal(t, MessageTypeAssistant, messages[0].Type)
	assert.Equal(t, MessageTypeSystem, messages[1].Type)
	assert.Empty(t, messages[1].Text)
}

func TestWorkingDirOf_LastEntryWins(t *testing.T) {
	messages := []Message{
		{ID: "msg-0", Cwd: "/first"},
		{ID: "msg-1", Cwd: "/second"},
		{ID: "msg-2"},
	}

	assert.Equal(t, "/second", WorkingDirOf(messages))
	assert.Equal(t, "", WorkingDirOf(nil))
}
