// Package authdetect classifies the authentication mechanism of a session
// flow and builds the fixed short-circuit verdict for header-only sessions.
//
// The mechanism decides whether CSRF analysis applies at all: browsers attach
// cookies automatically to cross-site requests, but never custom auth
// headers. A session authenticated exclusively by headers is therefore
// structurally immune, and the pipeline skips rules, features and inference
// for it.
package authdetect

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/csrfshield/csrfshield/pkg/defaults"
	"github.com/csrfshield/csrfshield/pkg/finding"
	"github.com/csrfshield/csrfshield/pkg/result"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

// ShortCircuitRecommendation is the single recommendation attached to every
// short-circuited result.
const ShortCircuitRecommendation = "No CSRF protection required: session uses header-based authentication, which browsers do not attach to cross-site requests."

// Classifier determines the auth mechanism of session flows.
type Classifier struct {
	authHeaders    []string
	cookiePatterns []string
}

// NewClassifier creates a classifier using the given auth header names and
// session cookie name patterns. Empty lists fall back to the defaults.
func NewClassifier(authHeaders, cookiePatterns []string) *Classifier {
	if len(authHeaders) == 0 {
		authHeaders = defaults.AuthHeaders()
	}
	if len(cookiePatterns) == 0 {
		cookiePatterns = defaults.SessionCookiePatterns()
	}
	return &Classifier{authHeaders: authHeaders, cookiePatterns: cookiePatterns}
}

// Classify inspects every exchange in the flow and returns the mechanism:
//
//	session cookies only        -> AuthCookie
//	auth headers only           -> AuthHeaderOnly
//	both                        -> AuthMixed
//	neither                     -> AuthNone
func (c *Classifier) Classify(flow traffic.SessionFlow) traffic.AuthMechanism {
	hasCookie := false
	hasHeader := false

	for i := range flow.Exchanges {
		ex := &flow.Exchanges[i]
		if !hasCookie && c.hasSessionCookie(ex) {
			hasCookie = true
		}
		if !hasHeader && c.authHeaderOn(ex) != "" {
			hasHeader = true
		}
		if hasCookie && hasHeader {
			break
		}
	}

	switch {
	case hasCookie && hasHeader:
		return traffic.AuthMixed
	case hasCookie:
		return traffic.AuthCookie
	case hasHeader:
		return traffic.AuthHeaderOnly
	default:
		return traffic.AuthNone
	}
}

// ShortCircuits reports whether the mechanism makes CSRF inapplicable.
func ShortCircuits(mech traffic.AuthMechanism) bool {
	return mech == traffic.AuthHeaderOnly
}

// ShortCircuitSummary builds the fixed verdict for a header-only session:
// exactly one informational result with the baseline score and a single
// CSRF-011 finding whose evidence quotes the auth headers that triggered the
// classification. The first exchange is the representative, regardless of
// method: the verdict is about the session's auth shape, not about any one
// request, so a capture of pure API reads still gets its result. A flow with
// no exchanges falls back to a placeholder endpoint.
func (c *Classifier) ShortCircuitSummary(flow traffic.SessionFlow) result.SessionSummary {
	summary := result.SessionSummary{
		SessionID:     flow.ID,
		Auth:          traffic.AuthHeaderOnly,
		ExchangeCount: len(flow.Exchanges),
		AnalyzedAt:    time.Now().UTC(),
	}

	endpoint, method := "unknown", "GET"
	var rep *traffic.Exchange
	if len(flow.Exchanges) > 0 {
		rep = &flow.Exchanges[0]
		endpoint, method = rep.URL, rep.Method
	}

	ref := finding.RefFor(method, endpoint, 0)
	if rep != nil {
		ref = finding.RefFor(rep.Method, rep.URL, rep.ResponseStatus)
	}

	summary.Results = []result.AnalysisResult{{
		Endpoint:  endpoint,
		Method:    method,
		RiskScore: defaults.ShortCircuitScore,
		RiskLevel: finding.RiskLow,
		Findings: []finding.Finding{{
			RuleID:      "CSRF-011",
			RuleName:    "Header-Based Authentication",
			Severity:    finding.Info,
			Description: "Session authenticates via HTTP headers only; CSRF attacks cannot forge custom headers cross-site.",
			Evidence:    c.shortCircuitEvidence(rep),
			Exchange:    ref,
		}},
		Recommendations: []string{ShortCircuitRecommendation},
	}}

	log.Printf("[authdetect] session %s short-circuited: header-only auth", flow.ID)
	return summary
}

// shortCircuitEvidence quotes every recognized auth header on the
// representative exchange, values truncated so bearer tokens never land
// whole in a report.
func (c *Classifier) shortCircuitEvidence(ex *traffic.Exchange) string {
	if ex == nil {
		return "header-based authentication detected on session"
	}
	var parts []string
	for _, name := range c.authHeaders {
		if v, ok := ex.Header(name); ok && v != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", name, truncate(v, defaults.EvidenceValueLimit)))
		}
	}
	if len(parts) == 0 {
		return "header-based authentication detected on session"
	}
	return strings.Join(parts, "; ")
}

// authHeaderOn returns the first configured auth header present on the
// exchange, or "".
func (c *Classifier) authHeaderOn(ex *traffic.Exchange) string {
	for _, name := range c.authHeaders {
		if v, ok := ex.Header(name); ok && v != "" {
			return name
		}
	}
	return ""
}

func (c *Classifier) hasSessionCookie(ex *traffic.Exchange) bool {
	for name := range ex.Cookies {
		lower := strings.ToLower(name)
		for _, p := range c.cookiePatterns {
			if strings.Contains(lower, strings.ToLower(p)) {
				return true
			}
		}
	}
	return false
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
