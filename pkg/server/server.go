// Package server exposes the orchestrator over the NDJSON control protocol.
//
// Three units of work cooperate: the dispatch loop reads requests one at a
// time, analysis requests run on their own goroutine so the loop stays
// responsive, and a single writer goroutine owns the output stream so
// responses and progress messages never interleave mid-line.
package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/csrfshield/csrfshield/pkg/defaults"
	"github.com/csrfshield/csrfshield/pkg/har"
	"github.com/csrfshield/csrfshield/pkg/inference"
	"github.com/csrfshield/csrfshield/pkg/jsonutil"
	"github.com/csrfshield/csrfshield/pkg/pipeline"
	"github.com/csrfshield/csrfshield/pkg/protocol"
	"github.com/csrfshield/csrfshield/pkg/report"
	"github.com/csrfshield/csrfshield/pkg/result"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

// LoadFunc is the flow-reconstruction collaborator: capture path in,
// session flows out.
type LoadFunc func(path string) ([]traffic.SessionFlow, error)

// Server wires the protocol to an orchestrator.
type Server struct {
	orch    *pipeline.Orchestrator
	loadFn  LoadFunc
	version string

	out chan any
	wg  sync.WaitGroup
}

// New creates a server. A nil loadFn defaults to the HAR parser.
func New(orch *pipeline.Orchestrator, loadFn LoadFunc, version string) *Server {
	if loadFn == nil {
		loadFn = func(path string) ([]traffic.SessionFlow, error) {
			exchanges, err := har.ParseFile(path)
			if err != nil {
				return nil, err
			}
			return har.ReconstructFlows(exchanges, nil), nil
		}
	}
	if version == "" {
		version = defaults.Version
	}
	return &Server{orch: orch, loadFn: loadFn, version: version}
}

// Serve runs the dispatch loop until the input stream ends. A decode error
// mid-stream is returned to the caller: the protocol framing is broken and
// the process should treat it as fatal.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	reader := protocol.NewReader(r)
	writer := protocol.NewWriter(w)

	s.out = make(chan any, defaults.ProgressChannelSize)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range s.out {
			if err := writer.Write(msg); err != nil {
				log.Printf("[server] write failed: %v", err)
			}
		}
	}()

	var loopErr error
	for {
		req, err := reader.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				loopErr = fmt.Errorf("server: request decode: %w", err)
			}
			break
		}
		s.dispatch(req)
	}

	// Let in-flight analysis goroutines finish before the stream closes so
	// every accepted request still gets its response.
	s.wg.Wait()
	close(s.out)
	<-writerDone
	return loopErr
}

// dispatch routes one request. ping and cancel are handled inline so they
// stay sub-second while a batch runs; analysis runs on its own goroutine.
func (s *Server) dispatch(req protocol.Request) {
	switch req.Method {
	case protocol.MethodPing:
		s.respond(req.ID, map[string]string{"status": "ok", "version": s.version})

	case protocol.MethodCancel:
		s.orch.Cancel()
		s.respond(req.ID, map[string]any{"cancelled": true, "batch": s.orch.Batch()})

	case protocol.MethodLoad:
		s.handleLoad(req)

	case protocol.MethodListSessions:
		s.respond(req.ID, map[string]any{"sessions": s.orch.Sessions()})

	case protocol.MethodGetResults:
		s.handleGetResults(req)

	case protocol.MethodAnalyzeSession:
		var params protocol.SessionParams
		if !s.decodeParams(req, &params) {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runAnalyzeSession(req.ID, params.SessionID)
		}()

	case protocol.MethodAnalyzeAll:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runAnalyzeAll(req.ID)
		}()

	case protocol.MethodExport:
		s.handleExport(req)

	default:
		s.fail(req.ID, protocol.CodeValidationError, "unknown method %q", req.Method)
	}
}

func (s *Server) handleLoad(req protocol.Request) {
	var params protocol.LoadParams
	if !s.decodeParams(req, &params) {
		return
	}
	if params.Path == "" {
		s.fail(req.ID, protocol.CodeValidationError, "load requires a path")
		return
	}

	flows, err := s.loadFn(params.Path)
	if err != nil {
		s.failErr(req.ID, err)
		return
	}
	if err := s.orch.Load(flows); err != nil {
		s.failErr(req.ID, err)
		return
	}

	ids := make([]string, 0, len(flows))
	for _, f := range flows {
		ids = append(ids, f.ID)
	}
	s.respond(req.ID, map[string]any{"sessions": len(ids), "session_ids": ids})
}

func (s *Server) handleGetResults(req protocol.Request) {
	var params protocol.SessionParams
	if !s.decodeParams(req, &params) {
		return
	}
	summary, analyzed, err := s.orch.Results(params.SessionID)
	if err != nil {
		s.failErr(req.ID, err)
		return
	}
	if !analyzed {
		s.respond(req.ID, map[string]string{
			"session_id": params.SessionID,
			"status":     "not_analyzed",
		})
		return
	}
	s.respond(req.ID, map[string]any{
		"session_id": params.SessionID,
		"status":     "analyzed",
		"summary":    summary,
	})
}

// analyzeReply is the analyze_session result payload: the summary with its
// per-exchange results split out.
type analyzeReply struct {
	SessionID string                  `json:"session_id"`
	Summary   result.SessionSummary   `json:"summary"`
	Results   []result.AnalysisResult `json:"results"`
}

func (s *Server) runAnalyzeSession(id int64, sessionID string) {
	summary, err := s.orch.AnalyzeSession(sessionID, s.progressFunc(id))
	if err != nil {
		s.failErr(id, err)
		return
	}
	results := summary.Results
	summary.Results = nil
	s.respond(id, analyzeReply{SessionID: sessionID, Summary: summary, Results: results})
}

func (s *Server) runAnalyzeAll(id int64) {
	status, err := s.orch.AnalyzeAll(s.progressFunc(id))
	if err != nil {
		s.failErr(id, err)
		return
	}
	s.respond(id, map[string]any{
		"status":    status.State,
		"completed": status.Completed,
		"total":     status.Total,
	})
}

func (s *Server) handleExport(req protocol.Request) {
	var params protocol.ExportParams
	if !s.decodeParams(req, &params) {
		return
	}
	renderer, err := report.For(params.Format)
	if err != nil {
		s.failErr(req.ID, err)
		return
	}
	if params.Path == "" {
		s.fail(req.ID, protocol.CodeValidationError, "export requires a path")
		return
	}

	var sessions []result.SessionSummary
	switch params.Scope {
	case "all", "":
		sessions = s.orch.Analyzed()
	case "session":
		summary, analyzed, err := s.orch.Results(params.SessionID)
		if err != nil {
			s.failErr(req.ID, err)
			return
		}
		if !analyzed {
			s.fail(req.ID, protocol.CodeValidationError, "session %s has not been analyzed", params.SessionID)
			return
		}
		sessions = []result.SessionSummary{*summary}
	default:
		s.fail(req.ID, protocol.CodeValidationError, "unknown export scope %q", params.Scope)
		return
	}

	doc := report.NewDocument(s.version, sessions)
	f, err := os.Create(params.Path)
	if err != nil {
		s.fail(req.ID, protocol.CodeInternalError, "create %s: %v", params.Path, err)
		return
	}
	defer f.Close()
	if err := renderer.Render(f, doc); err != nil {
		s.fail(req.ID, protocol.CodeInternalError, "render: %v", err)
		return
	}
	s.respond(req.ID, map[string]any{
		"path":     params.Path,
		"format":   renderer.Format(),
		"sessions": len(sessions),
	})
}

// progressFunc adapts the writer channel into a pipeline progress callback
// correlated to the triggering request id.
func (s *Server) progressFunc(id int64) pipeline.ProgressFunc {
	return func(p pipeline.Progress) {
		s.out <- protocol.ProgressMessage{ID: id, Progress: p}
	}
}

func (s *Server) decodeParams(req protocol.Request, v any) bool {
	if len(req.Params) == 0 {
		s.fail(req.ID, protocol.CodeValidationError, "%s requires params", req.Method)
		return false
	}
	if err := jsonutil.Unmarshal(req.Params, v); err != nil {
		s.fail(req.ID, protocol.CodeValidationError, "bad params for %s: %v", req.Method, err)
		return false
	}
	return true
}

func (s *Server) respond(id int64, payload any) {
	s.out <- protocol.Response{ID: id, Result: payload}
}

func (s *Server) fail(id int64, code, format string, args ...any) {
	s.out <- protocol.NewError(id, code, format, args...)
}

// failErr maps sentinel errors onto protocol error codes.
func (s *Server) failErr(id int64, err error) {
	code := protocol.CodeInternalError
	switch {
	case errors.Is(err, har.ErrNotFound):
		code = protocol.CodeFileNotFound
	case errors.Is(err, har.ErrParse):
		code = protocol.CodeParseError
	case errors.Is(err, inference.ErrModelUnavailable):
		code = protocol.CodeDependencyError
	case errors.Is(err, pipeline.ErrBatchRunning):
		code = protocol.CodeAlreadyRunning
	case errors.Is(err, pipeline.ErrUnknownSession),
		errors.Is(err, pipeline.ErrNoSessions),
		errors.Is(err, report.ErrUnknownFormat):
		code = protocol.CodeValidationError
	}
	s.fail(id, code, "%v", err)
}
