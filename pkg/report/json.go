package report

import (
	"io"

	"github.com/csrfshield/csrfshield/pkg/jsonutil"
)

// JSONRenderer writes the full structured document as indented JSON.
type JSONRenderer struct {
	// Indent is the indentation unit; empty means compact output.
	Indent string
}

var _ Renderer = (*JSONRenderer)(nil)

func (r *JSONRenderer) Format() string { return "json" }

func (r *JSONRenderer) Render(w io.Writer, doc Document) error {
	enc := jsonutil.NewEncoder(w)
	if r.Indent != "" {
		enc.SetIndent(r.Indent)
	}
	return enc.Encode(doc)
}
