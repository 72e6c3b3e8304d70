// ABOUTME: Markdown transcript exporter.
// ABOUTME: Renders metadata, messages, and tool activity as fenced blocks.

package export

import (
	"fmt"
	"io"
	"time"

	"github.com/hcnode/cui/internal/api"
	"github.com/hcnode/cui/internal/convo"
)

// MarkdownExporter renders transcripts as a markdown document.
type MarkdownExporter struct{}

// Export writes the transcript as markdown.
func (e *MarkdownExporter) Export(t *Transcript, w io.Writer) error {
	fmt.Fprintf(w, "# %s\n\n", documentTitle(t))

	fmt.Fprintf(w, "**Session:** %s  \n", t.SessionID)
	if t.WorkingDir != "" {
		fmt.Fprintf(w, "**Directory:** %s  \n", t.WorkingDir)
	}
	if t.Model != "" {
		fmt.Fprintf(w, "**Model:** %s  \n", t.Model)
	}
	if !t.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "**Updated:** %s  \n", t.UpdatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "**Messages:** %d\n\n", len(t.Messages))

	fmt.Fprintf(w, "---\n\n")

	for i, msg := range t.Messages {
		writeMessage(w, msg)
		if i < len(t.Messages)-1 {
			fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// documentTitle falls back to the session id when a conversation was never
// titled.
func documentTitle(t *Transcript) string {
	if t.Title != "" {
		return t.Title
	}
	return "Session " + t.SessionID
}

// writeMessage renders one message: author heading, then text and blocks.
func writeMessage(w io.Writer, msg convo.Message) {
	fmt.Fprintf(w, "**%s**", msg.Type)
	if !msg.Timestamp.IsZero() {
		fmt.Fprintf(w, " (%s)", msg.Timestamp.Format(time.RFC3339))
	}
	fmt.Fprintf(w, ":\n\n")

	if msg.Text != "" {
		fmt.Fprintf(w, "%s\n\n", msg.Text)
	}
	for _, block := range msg.Blocks {
		writeBlock(w, block)
	}
}

// writeBlock renders one content block. Tool inputs and outputs become
// fenced code blocks so the export survives a markdown renderer.
func writeBlock(w io.Writer, block api.ContentBlock) {
	switch block.Type {
	case api.BlockText:
		if block.Text != "" {
			fmt.Fprintf(w, "%s\n\n", block.Text)
		}
	case api.BlockToolUse:
		fmt.Fprintf(w, "Tool call `%s`:\n\n", block.Name)
		if len(block.Input) > 0 {
			fmt.Fprintf(w, "```json\n%s\n```\n\n", block.Input)
		}
	case api.BlockToolResult:
		label := "Tool output"
		if block.IsError {
			label = "Tool error"
		}
		fmt.Fprintf(w, "%s:\n\n```\n%s\n```\n\n", label, block.Content)
	}
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
