// Package rules implements the static CSRF rule engine: a fixed catalog of
// checks evaluated against every analyzable exchange of a session flow.
//
// The engine is deliberately dumb about tokens — identification is injected
// as a TokenFinder so the same identification logic feeds rules and feature
// extraction without the packages depending on each other.
package rules

import (
	"log"

	"github.com/csrfshield/csrfshield/pkg/csrftoken"
	"github.com/csrfshield/csrfshield/pkg/finding"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

// TokenFinder locates the anti-forgery token for an exchange. The int is a
// source code (features.TokenSource*); 0 means no token.
type TokenFinder func(ex *traffic.Exchange) (csrftoken.Token, int)

// Context is the session-level input a rule sees alongside the exchange.
type Context struct {
	Flow *traffic.SessionFlow

	// Token identification for the exchange under evaluation.
	Token       csrftoken.Token
	TokenFound  bool
	TokenSource int

	// TokenReuseCount is the number of analyzable exchanges in the session
	// sharing this exchange's token value (including itself). Zero when no
	// token was found.
	TokenReuseCount int
}

// Rule is one static check. Evaluate returns zero or more findings; it must
// not mutate the exchange or the context.
type Rule interface {
	ID() string
	Name() string
	Severity() finding.Severity
	Evaluate(ex *traffic.Exchange, sctx *Context) []finding.Finding
}

// Evaluation is the engine output for one session flow: findings keyed by
// exchange index, plus the indices where a rule panicked and the static
// verdict is partial.
type Evaluation struct {
	Findings     map[int][]finding.Finding
	Inconclusive map[int]bool
}

// Engine evaluates the configured rule catalog over session flows. It is
// safe for concurrent use.
type Engine struct {
	rules  []Rule
	finder TokenFinder
}

// NewEngine builds an engine from a rule catalog and a token finder.
func NewEngine(catalog []Rule, finder TokenFinder) *Engine {
	return &Engine{rules: catalog, finder: finder}
}

// Rules returns the engine's catalog in evaluation order.
func (e *Engine) Rules() []Rule { return e.rules }

// Analyzable reports whether an exchange warrants CSRF analysis: every
// state-changing method, plus read-method requests whose URL carries
// state-changing vocabulary (CSRF-008 territory).
func Analyzable(ex *traffic.Exchange, actionKeywords []string) bool {
	if ex.IsStateChanging() {
		return true
	}
	return ex.IsReadMethod() && matchKeyword(ex.PathAndQuery(), actionKeywords) != ""
}

// Evaluate runs every rule against every analyzable exchange of the flow.
// A panicking rule is recovered and logged, and the affected exchange is
// marked inconclusive; the remaining rules still run.
func (e *Engine) Evaluate(flow *traffic.SessionFlow, actionKeywords []string) Evaluation {
	eval := Evaluation{
		Findings:     make(map[int][]finding.Finding),
		Inconclusive: make(map[int]bool),
	}

	// First pass: identify tokens so reuse counts are session-wide.
	tokens := make(map[int]csrftoken.Token)
	sources := make(map[int]int)
	valueCount := make(map[string]int)
	var indices []int
	for i := range flow.Exchanges {
		ex := &flow.Exchanges[i]
		if !Analyzable(ex, actionKeywords) {
			continue
		}
		indices = append(indices, i)
		tok, source := e.finder(ex)
		if source != 0 {
			tokens[i] = tok
			sources[i] = source
			valueCount[tok.Value]++
		}
	}

	for _, i := range indices {
		ex := &flow.Exchanges[i]
		tok, found := tokens[i]
		sctx := &Context{
			Flow:        flow,
			Token:       tok,
			TokenFound:  found,
			TokenSource: sources[i],
		}
		if found {
			sctx.TokenReuseCount = valueCount[tok.Value]
		}

		for _, rule := range e.rules {
			findings, ok := e.evaluateOne(rule, ex, sctx)
			if !ok {
				eval.Inconclusive[i] = true
				continue
			}
			eval.Findings[i] = append(eval.Findings[i], findings...)
		}
	}
	return eval
}

// evaluateOne runs a single rule with panic isolation.
func (e *Engine) evaluateOne(rule Rule, ex *traffic.Exchange, sctx *Context) (findings []finding.Finding, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[rules] rule %s panicked on %s %s: %v", rule.ID(), ex.Method, ex.URL, r)
			findings, ok = nil, false
		}
	}()
	return rule.Evaluate(ex, sctx), true
}

// StaticScore normalizes a finding set to [0,1]: the sum of the findings'
// severity weights divided by the maximum possible sum across the configured
// catalog. This is the static half of the scoring blend.
func (e *Engine) StaticScore(findings []finding.Finding) float64 {
	max := 0.0
	for _, r := range e.rules {
		max += r.Severity().Weight()
	}
	if max == 0 {
		return 0
	}
	total := 0.0
	for _, f := range findings {
		total += f.Severity.Weight()
	}
	norm := total / max
	if norm > 1 {
		return 1
	}
	return norm
}
