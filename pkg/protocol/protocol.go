// Package protocol defines the newline-delimited JSON control protocol: one
// Request yields exactly one correlated Response or Error, plus zero or more
// unsolicited Progress messages sharing the request id.
package protocol

import (
	"fmt"
	"io"

	"github.com/csrfshield/csrfshield/pkg/jsonutil"
	"github.com/csrfshield/csrfshield/pkg/pipeline"
)

// Method names.
const (
	MethodPing           = "ping"
	MethodLoad           = "load"
	MethodListSessions   = "list_sessions"
	MethodAnalyzeSession = "analyze_session"
	MethodAnalyzeAll     = "analyze_all"
	MethodGetResults     = "get_results"
	MethodCancel         = "cancel"
	MethodExport         = "export"
)

// Error codes.
const (
	CodeFileNotFound    = "FILE_NOT_FOUND"
	CodeParseError      = "PARSE_ERROR"
	CodeDependencyError = "DEPENDENCY_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeAlreadyRunning  = "ALREADY_RUNNING"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Request is one client message. Params is kept raw; each method decodes its
// own parameter shape.
type Request struct {
	ID     int64             `json:"id"`
	Method string            `json:"method"`
	Params jsonutil.RawValue `json:"params,omitempty"`
}

// Params shapes per method. Methods without a listed shape take none.
type (
	LoadParams struct {
		Path string `json:"path"`
	}

	SessionParams struct {
		SessionID string `json:"session_id"`
	}

	ExportParams struct {
		Format    string `json:"format"`
		Scope     string `json:"scope"`
		SessionID string `json:"session_id,omitempty"`
		Path      string `json:"path"`
	}
)

// Response is the success reply to one request.
type Response struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

// ErrorDetail is the code/message pair inside an Error message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is the failure reply to one request.
type Error struct {
	ID    int64       `json:"id"`
	Error ErrorDetail `json:"error"`
}

// ProgressMessage is an unsolicited progress event correlated to the
// analyze request that triggered it.
type ProgressMessage struct {
	ID       int64             `json:"id"`
	Progress pipeline.Progress `json:"progress"`
}

// NewError builds an Error reply.
func NewError(id int64, code, format string, args ...any) Error {
	return Error{ID: id, Error: ErrorDetail{Code: code, Message: fmt.Sprintf(format, args...)}}
}

// Reader decodes NDJSON requests from a stream.
type Reader struct {
	dec *jsonutil.Decoder
}

// NewReader wraps an input stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: jsonutil.NewDecoder(r)}
}

// Next reads the next request. io.EOF signals a clean end of stream.
func (r *Reader) Next() (Request, error) {
	var req Request
	if err := r.dec.Decode(&req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Writer encodes protocol messages as NDJSON. Not safe for concurrent use;
// the server funnels all writes through one goroutine.
type Writer struct {
	enc *jsonutil.Encoder
}

// NewWriter wraps an output stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: jsonutil.NewEncoder(w)}
}

// Write emits one message followed by a newline.
func (w *Writer) Write(msg any) error {
	return w.enc.Encode(msg)
}
