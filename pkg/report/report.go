// Package report renders cached analysis results into export documents.
// Two renderers ship: structured JSON for machine consumers and Markdown
// for humans. Richer formats (PDF, HTML) stay with external tooling.
package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/csrfshield/csrfshield/pkg/result"
)

// ErrUnknownFormat indicates an unrecognized export format name.
var ErrUnknownFormat = errors.New("report: unknown format")

// Document is the renderer input: the tool identity plus the session
// summaries selected by the export scope.
type Document struct {
	Tool        string                  `json:"tool"`
	Version     string                  `json:"version"`
	GeneratedAt time.Time               `json:"generated_at"`
	Sessions    []result.SessionSummary `json:"sessions"`
}

// Renderer writes a document in one output format.
type Renderer interface {
	// Render writes the document to w.
	Render(w io.Writer, doc Document) error

	// Format returns the renderer's format name ("json", "markdown").
	Format() string
}

// NewDocument builds a document for the given sessions, stamped with the
// tool identity and the current time.
func NewDocument(version string, sessions []result.SessionSummary) Document {
	return Document{
		Tool:        "csrfshield",
		Version:     version,
		GeneratedAt: time.Now().UTC(),
		Sessions:    sessions,
	}
}

// For returns the renderer for a format name.
func For(format string) (Renderer, error) {
	switch format {
	case "json":
		return &JSONRenderer{Indent: "  "}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
