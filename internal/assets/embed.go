// ABOUTME: Embeds the dev backend status page into the binary.
// ABOUTME: Exposes a single render entry point for the root route.

package assets

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var statusTmpl = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// StatusData feeds the status page template.
type StatusData struct {
	Addr           string
	Uptime         string
	SessionCount   int
	OngoingCount   int
	AuthEnabled    bool
	MetricsEnabled bool
}

// RenderStatus writes the status page HTML.
func RenderStatus(w io.Writer, data StatusData) error {
	return statusTmpl.ExecuteTemplate(w, "status.html", data)
}
