// ABOUTME: JSON transcript exporter, pretty-printed.
// ABOUTME: Serializes a tagged document shape decoupled from in-memory types.

package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/hcnode/cui/internal/api"
)

// jsonDocument is the serialized transcript shape. Kept separate from the
// in-memory types so exported files stay stable if those change.
type jsonDocument struct {
	SessionID  string        `json:"session_id"`
	Title      string        `json:"title,omitempty"`
	WorkingDir string        `json:"working_dir,omitempty"`
	Model      string        `json:"model,omitempty"`
	Status     string        `json:"status,omitempty"`
	UpdatedAt  *time.Time    `json:"updated_at,omitempty"`
	Messages   []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Text      string             `json:"text,omitempty"`
	Blocks    []api.ContentBlock `json:"blocks,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Cwd       string             `json:"cwd,omitempty"`
}

// JSONExporter renders transcripts as pretty-printed JSON.
type JSONExporter struct{}

// Export writes the transcript as a JSON document.
func (e *JSONExporter) Export(t *Transcript, w io.Writer) error {
	doc := jsonDocument{
		SessionID:  t.SessionID,
		Title:      t.Title,
		WorkingDir: t.WorkingDir,
		Model:      t.Model,
		Status:     t.Status,
		Messages:   make([]jsonMessage, 0, len(t.Messages)),
	}
	if !t.UpdatedAt.IsZero() {
		updated := t.UpdatedAt
		doc.UpdatedAt = &updated
	}

	for _, msg := range t.Messages {
		doc.Messages = append(doc.Messages, jsonMessage{
			ID:        msg.ID,
			Type:      string(msg.Type),
			Text:      msg.Text,
			Blocks:    msg.Blocks,
			Timestamp: msg.Timestamp,
			Cwd:       msg.Cwd,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
