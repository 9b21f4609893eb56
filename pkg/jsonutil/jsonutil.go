// Package jsonutil wraps github.com/go-json-experiment/json behind the small
// slice of the encoding/json API this codebase actually uses.
//
// Every JSON boundary in the tool (wire protocol, model files, reports, rule
// configuration snippets) goes through this package, so swapping the
// underlying implementation is a one-file change.
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent returns the JSON encoding of v indented with indent.
func MarshalIndent(v any, indent string) ([]byte, error) {
	return json.Marshal(v, jsontext.WithIndent(indent))
}

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}

// RawValue is a raw JSON value, decoded lazily by the consumer that knows
// its shape.
type RawValue = jsontext.Value

// Encoder is a streaming JSON encoder that terminates every value with a
// newline, which is exactly the framing the control protocol needs.
type Encoder struct {
	w      io.Writer
	indent string
}

// NewEncoder creates an encoder that writes newline-delimited JSON to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// SetIndent switches the encoder to indented output. Indented values are
// still newline-terminated; callers that need strict one-line framing must
// not set an indent.
func (e *Encoder) SetIndent(indent string) {
	e.indent = indent
}

// Encode writes the JSON encoding of v followed by a newline.
func (e *Encoder) Encode(v any) error {
	var err error
	if e.indent != "" {
		err = json.MarshalWrite(e.w, v, jsontext.WithIndent(e.indent))
	} else {
		err = json.MarshalWrite(e.w, v)
	}
	if err != nil {
		return err
	}
	_, err = e.w.Write([]byte{'\n'})
	return err
}

// Decoder is a streaming JSON decoder for a sequence of concatenated or
// newline-delimited values.
type Decoder struct {
	dec *jsontext.Decoder
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: jsontext.NewDecoder(r)}
}

// Decode reads the next JSON value from the stream into v. Returns io.EOF
// at a clean end of stream.
func (d *Decoder) Decode(v any) error {
	return json.UnmarshalDecode(d.dec, v)
}
