// ABOUTME: HTML transcript exporter built on the markdown renderer.
// ABOUTME: goldmark converts the body; a small shell template wraps it.

package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
)

var htmlShell = template.Must(template.New("transcript").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; color: #1a1a1a; }
pre { background: #f4f4f4; padding: 0.75rem; border-radius: 4px; overflow-x: auto; }
code { background: #f4f4f4; padding: 0.1rem 0.3rem; border-radius: 3px; }
hr { border: none; border-top: 1px solid #ddd; margin: 1.5rem 0; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTMLExporter renders transcripts as a standalone HTML page.
type HTMLExporter struct{}

// Export converts the markdown rendering to HTML and wraps it in the page
// shell.
func (e *HTMLExporter) Export(t *Transcript, w io.Writer) error {
	var md bytes.Buffer
	if err := (&MarkdownExporter{}).Export(t, &md); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := goldmark.Convert(md.Bytes(), &body); err != nil {
		return fmt.Errorf("converting markdown: %w", err)
	}

	return htmlShell.Execute(w, struct {
		Title string
		Body  template.HTML
	}{
		Title: documentTitle(t),
		Body:  template.HTML(body.String()),
	})
}

// Extension returns the file extension for this format
func (e *HTMLExporter) Extension() string {
	return "html"
}
