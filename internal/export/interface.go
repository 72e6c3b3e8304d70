// ABOUTME: Exporter interface and format factory for transcript exports.
// ABOUTME: Transcript is the self-contained view every format renders from.

package export

import (
	"fmt"
	"io"
	"time"

	"github.com/hcnode/cui/internal/convo"
)

// Transcript is the exportable view of one conversation: session metadata
// plus the transformed message history.
type Transcript struct {
	SessionID  string
	Title      string
	WorkingDir string
	Model      string
	Status     string
	UpdatedAt  time.Time
	Messages   []convo.Message
}

// Exporter renders a transcript in one output format.
type Exporter interface {
	Export(t *Transcript, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "html":
		return &HTMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, md, html)", format)
	}
}
