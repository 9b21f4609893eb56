// Package pipeline is the analysis orchestrator: it owns the loaded session
// registry and result cache, runs the per-session stage sequence, and
// exposes the batch lifecycle with cooperative cancellation.
//
// Stage order per session is fixed: auth classification first (it may
// short-circuit everything else), then static rules, feature extraction,
// inference, heuristic adjustment and scoring per analyzable exchange, then
// recommendation synthesis. Sessions are processed sequentially so repeated
// runs over the same capture produce identical output.
package pipeline

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/csrfshield/csrfshield/pkg/authdetect"
	"github.com/csrfshield/csrfshield/pkg/defaults"
	"github.com/csrfshield/csrfshield/pkg/features"
	"github.com/csrfshield/csrfshield/pkg/finding"
	"github.com/csrfshield/csrfshield/pkg/inference"
	"github.com/csrfshield/csrfshield/pkg/result"
	"github.com/csrfshield/csrfshield/pkg/rules"
	"github.com/csrfshield/csrfshield/pkg/scoring"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

const stepTotal = defaults.PipelineSteps

// Sentinel errors. Callers should use errors.Is().
var (
	// ErrUnknownSession indicates the session id is not in the registry.
	ErrUnknownSession = errors.New("pipeline: unknown session")

	// ErrBatchRunning indicates a batch analysis is already in progress.
	ErrBatchRunning = errors.New("pipeline: batch already running")

	// ErrNoSessions indicates analysis was requested before any load.
	ErrNoSessions = errors.New("pipeline: no sessions loaded")
)

// SessionState is the cache state of one session.
type SessionState string

const (
	StateNotAnalyzed SessionState = "not_analyzed"
	StateAnalyzing   SessionState = "analyzing"
	StateAnalyzed    SessionState = "analyzed"
)

// BatchState is the lifecycle state of the batch runner.
type BatchState string

const (
	BatchIdle      BatchState = "idle"
	BatchRunning   BatchState = "running"
	BatchCompleted BatchState = "completed"
	BatchCancelled BatchState = "cancelled"
	BatchFailed    BatchState = "failed"
)

// BatchStatus is a point-in-time snapshot of the batch runner.
type BatchStatus struct {
	State     BatchState `json:"state"`
	Completed int        `json:"completed"`
	Total     int        `json:"total"`
}

// SessionInfo is one row of the session listing.
type SessionInfo struct {
	SessionID     string                `json:"session_id"`
	ExchangeCount int                   `json:"exchange_count"`
	Auth          traffic.AuthMechanism `json:"auth_mechanism"`
	State         SessionState          `json:"state"`
}

// Orchestrator coordinates the analysis stages over a loaded session set.
// All exported methods are safe for concurrent use; the cache is the only
// shared mutable state and every write replaces a whole entry.
type Orchestrator struct {
	classifier *authdetect.Classifier
	engine     *rules.Engine
	extractor  *features.Extractor
	predictor  inference.Predictor
	scorer     *scoring.Scorer

	actionKeywords []string

	mu      sync.RWMutex
	flows   map[string]traffic.SessionFlow
	order   []string
	entries map[string]*result.SessionSummary
	states  map[string]SessionState

	batchMu   sync.Mutex
	batch     BatchStatus
	cancelled atomic.Bool
}

// Options carries the orchestrator's collaborators. Predictor may be nil;
// analysis then fails with inference.ErrModelUnavailable.
type Options struct {
	Classifier     *authdetect.Classifier
	Engine         *rules.Engine
	Extractor      *features.Extractor
	Predictor      inference.Predictor
	Scorer         *scoring.Scorer
	ActionKeywords []string
}

// New creates an orchestrator with an empty registry.
func New(opts Options) *Orchestrator {
	if len(opts.ActionKeywords) == 0 {
		opts.ActionKeywords = defaults.ActionKeywords()
	}
	return &Orchestrator{
		classifier:     opts.Classifier,
		engine:         opts.Engine,
		extractor:      opts.Extractor,
		predictor:      opts.Predictor,
		scorer:         opts.Scorer,
		actionKeywords: opts.ActionKeywords,
		flows:          make(map[string]traffic.SessionFlow),
		entries:        make(map[string]*result.SessionSummary),
		states:         make(map[string]SessionState),
		batch:          BatchStatus{State: BatchIdle},
	}
}

// Load replaces the session registry with a freshly reconstructed flow set
// and clears the result cache. Rejected while a batch is running.
func (o *Orchestrator) Load(flows []traffic.SessionFlow) error {
	o.batchMu.Lock()
	if o.batch.State == BatchRunning {
		o.batchMu.Unlock()
		return ErrBatchRunning
	}
	o.batchMu.Unlock()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.flows = make(map[string]traffic.SessionFlow, len(flows))
	o.entries = make(map[string]*result.SessionSummary, len(flows))
	o.states = make(map[string]SessionState, len(flows))
	o.order = o.order[:0]
	for _, f := range flows {
		if _, dup := o.flows[f.ID]; dup {
			log.Printf("[pipeline] duplicate session id %s in load, keeping first", f.ID)
			continue
		}
		o.flows[f.ID] = f
		o.order = append(o.order, f.ID)
		o.states[f.ID] = StateNotAnalyzed
	}
	log.Printf("[pipeline] loaded %d session(s)", len(o.order))
	return nil
}

// Sessions lists the loaded sessions in load order.
func (o *Orchestrator) Sessions() []SessionInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]SessionInfo, 0, len(o.order))
	for _, id := range o.order {
		flow := o.flows[id]
		info := SessionInfo{
			SessionID:     id,
			ExchangeCount: len(flow.Exchanges),
			Auth:          flow.Auth,
			State:         o.states[id],
		}
		if entry := o.entries[id]; entry != nil {
			info.Auth = entry.Auth
		}
		out = append(out, info)
	}
	return out
}

// Results returns the cached summary for a session. The boolean is false
// for a known session that has not been analyzed yet; an unknown session is
// ErrUnknownSession.
func (o *Orchestrator) Results(sessionID string) (*result.SessionSummary, bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if _, ok := o.flows[sessionID]; !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	entry := o.entries[sessionID]
	if entry == nil {
		return nil, false, nil
	}
	return entry, true, nil
}

// Analyzed returns the cached summaries for every analyzed session, in load
// order.
func (o *Orchestrator) Analyzed() []result.SessionSummary {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]result.SessionSummary, 0, len(o.order))
	for _, id := range o.order {
		if entry := o.entries[id]; entry != nil {
			out = append(out, *entry)
		}
	}
	return out
}

// Batch returns a snapshot of the batch runner state.
func (o *Orchestrator) Batch() BatchStatus {
	o.batchMu.Lock()
	defer o.batchMu.Unlock()
	return o.batch
}

// Cancel requests cooperative cancellation of the running batch. The flag is
// checked only at session boundaries, so the in-flight session completes.
// Always serviceable; cancelling an idle orchestrator is a no-op.
func (o *Orchestrator) Cancel() {
	o.cancelled.Store(true)
	log.Printf("[pipeline] cancellation requested")
}

// AnalyzeSession analyzes one session and atomically replaces its cache
// entry. Re-analysis re-runs classification and every later stage.
func (o *Orchestrator) AnalyzeSession(sessionID string, fn ProgressFunc) (result.SessionSummary, error) {
	o.mu.RLock()
	flow, ok := o.flows[sessionID]
	o.mu.RUnlock()
	if !ok {
		return result.SessionSummary{}, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	rep := reporter{fn: fn, sessionIndex: 1, sessionTotal: 1}
	return o.analyzeOne(flow, rep)
}

// AnalyzeAll analyzes every loaded session in load order, emitting progress
// around each pipeline step. Only one batch runs at a time; a concurrent
// call fails with ErrBatchRunning. Cancellation yields a partial result set
// with Completed < Total.
func (o *Orchestrator) AnalyzeAll(fn ProgressFunc) (BatchStatus, error) {
	// Claim the batch before reading the registry: Load refuses while the
	// state is running, so the id snapshot below cannot go stale under us.
	o.batchMu.Lock()
	if o.batch.State == BatchRunning {
		status := o.batch
		o.batchMu.Unlock()
		return status, ErrBatchRunning
	}
	prev := o.batch
	o.batch = BatchStatus{State: BatchRunning}
	o.cancelled.Store(false)
	o.batchMu.Unlock()

	o.mu.RLock()
	ids := make([]string, len(o.order))
	copy(ids, o.order)
	o.mu.RUnlock()
	if len(ids) == 0 {
		o.batchMu.Lock()
		o.batch = prev
		o.batchMu.Unlock()
		return prev, ErrNoSessions
	}

	o.batchMu.Lock()
	o.batch.Total = len(ids)
	o.batchMu.Unlock()

	completed := 0
	final := BatchCompleted
	var runErr error

	for i, id := range ids {
		if o.cancelled.Load() {
			final = BatchCancelled
			break
		}
		o.mu.RLock()
		flow := o.flows[id]
		o.mu.RUnlock()

		rep := reporter{fn: fn, sessionIndex: i + 1, sessionTotal: len(ids)}
		if _, err := o.analyzeOne(flow, rep); err != nil {
			final = BatchFailed
			runErr = fmt.Errorf("session %s: %w", id, err)
			break
		}
		completed++
		o.batchMu.Lock()
		o.batch.Completed = completed
		o.batchMu.Unlock()
	}

	o.batchMu.Lock()
	o.batch.State = final
	o.batch.Completed = completed
	status := o.batch
	o.batchMu.Unlock()

	log.Printf("[pipeline] batch %s: %d/%d session(s) analyzed", final, completed, len(ids))
	return status, runErr
}

// analyzeOne runs the full stage sequence for one flow and replaces its
// cache entry. The flow's classification is always recomputed.
func (o *Orchestrator) analyzeOne(flow traffic.SessionFlow, rep reporter) (result.SessionSummary, error) {
	o.setState(flow.ID, StateAnalyzing)

	summary, err := o.runStages(flow, rep)
	if err != nil {
		o.setState(flow.ID, StateNotAnalyzed)
		return result.SessionSummary{}, err
	}

	o.mu.Lock()
	o.entries[flow.ID] = &summary
	o.states[flow.ID] = StateAnalyzed
	o.mu.Unlock()
	return summary, nil
}

func (o *Orchestrator) runStages(flow traffic.SessionFlow, rep reporter) (result.SessionSummary, error) {
	mech := o.classifier.Classify(flow)
	flow = flow.WithAuth(mech)

	if authdetect.ShortCircuits(mech) {
		// Header-only auth skips every later stage but still accounts for
		// one full session of batch progress.
		rep.before(1, StepStatic)
		summary := o.classifier.ShortCircuitSummary(flow)
		summary.Finalize()
		rep.after(stepTotal, StepRecommendations)
		return summary, nil
	}

	if o.predictor == nil {
		return result.SessionSummary{}, inference.ErrModelUnavailable
	}

	summary := result.SessionSummary{
		SessionID:     flow.ID,
		Auth:          mech,
		ExchangeCount: len(flow.Exchanges),
		AnalyzedAt:    time.Now().UTC(),
	}

	// Step 1: static rules across the whole flow.
	rep.before(1, StepStatic)
	eval := o.engine.Evaluate(&flow, o.actionKeywords)
	rep.after(1, StepStatic)

	// Steps 2-4 produce one result per analyzable exchange.
	var indices []int
	for i := range flow.Exchanges {
		if rules.Analyzable(&flow.Exchanges[i], o.actionKeywords) {
			indices = append(indices, i)
		}
	}

	rep.before(2, StepFeatures)
	vectors := make(map[int]features.Vector, len(indices))
	sctx := features.Context{Auth: mech}
	for _, i := range indices {
		ex := &flow.Exchanges[i]
		vectors[i] = o.extractor.Extract(ex, sctx)
		if tok, source := o.extractor.IdentifyToken(ex); source != features.TokenSourceNone {
			sctx.PriorToken = tok.Value
			sctx.HasPriorToken = true
		}
	}
	rep.after(2, StepFeatures)

	rep.before(3, StepInference)
	probs := make(map[int]float64, len(indices))
	inconclusive := make(map[int]bool, len(indices))
	for i, bad := range eval.Inconclusive {
		inconclusive[i] = bad
	}
	for _, i := range indices {
		p, err := o.predictor.Predict(vectors[i])
		if err != nil {
			if errors.Is(err, inference.ErrModelUnavailable) {
				return result.SessionSummary{}, err
			}
			log.Printf("[pipeline] inference failed for %s %s: %v",
				flow.Exchanges[i].Method, flow.Exchanges[i].URL, err)
			inconclusive[i] = true
			continue
		}
		probs[i] = p
	}
	rep.after(3, StepInference)

	rep.before(4, StepScoring)
	for _, i := range indices {
		ex := &flow.Exchanges[i]
		findings := eval.Findings[i]
		sortFindings(findings)

		res := result.AnalysisResult{
			Endpoint:     ex.URL,
			Method:       ex.Method,
			Findings:     findings,
			Inconclusive: inconclusive[i],
		}

		raw, scored := probs[i]
		if scored {
			adjusted := o.scorer.AdjustProbability(raw, findings, ex.URL, ex.Method)
			staticNorm := o.engine.StaticScore(findings)
			modifiers := o.scorer.Modifiers(ex.URL, ex.Method, ex.IsHTTPS(), findings)
			score, level := scoring.Score(adjusted, staticNorm, modifiers)

			res.Probability = &adjusted
			v := vectors[i]
			res.Features = &v
			res.StaticScore = staticNorm
			res.RiskScore = score
			res.RiskLevel = level
		} else {
			// Inference failed for this exchange: fall back to the static
			// half alone so a finding-heavy exchange is never scored zero.
			staticNorm := o.engine.StaticScore(findings)
			modifiers := o.scorer.Modifiers(ex.URL, ex.Method, ex.IsHTTPS(), findings)
			score, level := scoring.Score(0, staticNorm, modifiers)
			res.StaticScore = staticNorm
			res.RiskScore = score
			res.RiskLevel = level
			res.Inconclusive = true
		}

		summary.Results = append(summary.Results, res)
	}
	rep.after(4, StepScoring)

	rep.before(5, StepRecommendations)
	for i := range summary.Results {
		summary.Results[i].Recommendations = Recommendations(summary.Results[i].Findings)
	}
	summary.Finalize()
	rep.after(5, StepRecommendations)

	return summary, nil
}

func (o *Orchestrator) setState(id string, s SessionState) {
	o.mu.Lock()
	o.states[id] = s
	o.mu.Unlock()
}

// sortFindings orders findings by rule ID for stable output.
func sortFindings(findings []finding.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].RuleID < findings[j].RuleID
	})
}
