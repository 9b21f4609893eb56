// Package scoring turns an inference probability and a static finding set
// into the final bounded risk score.
//
// Two stages, strictly ordered:
//
//  1. AdjustProbability — heuristic post-processing of the raw model output
//     using the static findings and endpoint vocabulary, clamped to [0,1]
//     after every step.
//  2. Score — blend adjusted probability with the normalized static severity
//     into a rounded base, then add flat integer context modifiers and clamp
//     to [0,100].
//
// The two-step shape is load-bearing: modifiers are flat points, not
// probabilities, and folding them into the weighted blend would push totals
// outside the score range.
package scoring

import (
	"math"
	"strings"

	"github.com/csrfshield/csrfshield/pkg/defaults"
	"github.com/csrfshield/csrfshield/pkg/finding"
)

// protectionRules lists the rule IDs whose absence from a finding set
// evidences a working protection mechanism on the exchange.
var protectionRules = []string{
	"CSRF-001", // anti-forgery token present
	"CSRF-002", // CSRF defense header present
	"CSRF-005", // SameSite attribute present
	"CSRF-007", // Origin header present
	"CSRF-009", // Referer header present
}

// Config carries the endpoint vocabularies the scorer matches URLs against.
// Empty lists fall back to the defaults.
type Config struct {
	SensitiveKeywords []string
	FinancialKeywords []string
	AdminKeywords     []string
	UserDataKeywords  []string
	ActionKeywords    []string
}

func (c *Config) fill() {
	if len(c.SensitiveKeywords) == 0 {
		c.SensitiveKeywords = defaults.SensitiveKeywords()
	}
	if len(c.FinancialKeywords) == 0 {
		c.FinancialKeywords = defaults.FinancialKeywords()
	}
	if len(c.AdminKeywords) == 0 {
		c.AdminKeywords = defaults.AdminKeywords()
	}
	if len(c.UserDataKeywords) == 0 {
		c.UserDataKeywords = defaults.UserDataKeywords()
	}
	if len(c.ActionKeywords) == 0 {
		c.ActionKeywords = defaults.ActionKeywords()
	}
}

// Scorer applies the adjustment heuristics and the score blend. Stateless
// after construction and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer builds a scorer, filling empty vocabulary lists from defaults.
func NewScorer(cfg Config) *Scorer {
	cfg.fill()
	return &Scorer{cfg: cfg}
}

// AdjustProbability post-processes a raw inference probability. Heuristics
// apply in fixed order, each followed by a clamp to [0,1]:
//
//	(a) reused-token finding        -> floor at 0.95
//	(b) sensitive endpoint          -> ×1.2
//	(c) read method with action URL -> ×1.3
//	(d) ≥2 protections evidenced    -> ×0.6
//
// Callers must not invoke this for short-circuited sessions; there is no
// probability to adjust there.
func (s *Scorer) AdjustProbability(p float64, findings []finding.Finding, rawURL, method string) float64 {
	p = clamp01(p)

	if hasRule(findings, "CSRF-004") && p < defaults.ReusedTokenProbabilityFloor {
		p = defaults.ReusedTokenProbabilityFloor
	}
	p = clamp01(p)

	lowerURL := strings.ToLower(rawURL)
	if matchesAny(lowerURL, s.cfg.SensitiveKeywords) {
		p = clamp01(p * defaults.SensitiveEndpointMultiplier)
	}

	if isReadMethod(method) && matchesAny(lowerURL, s.cfg.ActionKeywords) {
		p = clamp01(p * defaults.ReadMethodActionMultiplier)
	}

	if ProtectionCount(findings) >= 2 {
		p = clamp01(p * defaults.MultiProtectionMultiplier)
	}

	return p
}

// Modifiers derives the sum of the applicable flat context modifiers for one
// exchange.
func (s *Scorer) Modifiers(rawURL, method string, usesHTTPS bool, findings []finding.Finding) int {
	lowerURL := strings.ToLower(rawURL)
	sum := 0
	if matchesAny(lowerURL, s.cfg.FinancialKeywords) {
		sum += defaults.ModifierFinancial
	}
	if matchesAny(lowerURL, s.cfg.AdminKeywords) {
		sum += defaults.ModifierAdmin
	}
	if matchesAny(lowerURL, s.cfg.UserDataKeywords) {
		sum += defaults.ModifierUserData
	}
	if usesHTTPS {
		sum += defaults.ModifierHTTPS
	}
	if ProtectionCount(findings) >= 2 {
		sum += defaults.ModifierMultiProtection
	}
	if isReadMethod(method) && matchesAny(lowerURL, s.cfg.ActionKeywords) {
		sum += defaults.ModifierReadMethodStateChange
	}
	return sum
}

// Score blends the adjusted probability and normalized static severity into
// the final score and level. The base is rounded once before modifiers are
// added; modifiers never re-enter the blend.
func Score(probability, staticNorm float64, modifiers int) (int, finding.RiskLevel) {
	base := math.Round((defaults.ProbabilityWeight*probability + defaults.StaticWeight*staticNorm) * 100)
	score := int(base) + modifiers
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, finding.LevelForScore(score)
}

// ProtectionCount counts the distinct protection mechanisms evidenced by a
// finding set: each protection-indicating rule that did NOT fire counts as
// one working mechanism.
//
// A fired CSRF-010 marks a JSON body, where the form-token rule cannot fire;
// its silence there is structural and does not count as a protection. The
// findings are the only applicability signal available here, so gaps the
// rules cannot express (e.g. a response without Set-Cookie for CSRF-005)
// still count.
func ProtectionCount(findings []finding.Finding) int {
	jsonBody := hasRule(findings, "CSRF-010")
	count := 0
	for _, id := range protectionRules {
		if hasRule(findings, id) {
			continue
		}
		if id == "CSRF-001" && jsonBody {
			continue
		}
		count++
	}
	return count
}

func hasRule(findings []finding.Finding, id string) bool {
	for _, f := range findings {
		if f.RuleID == id {
			return true
		}
	}
	return false
}

func matchesAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func isReadMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "OPTIONS":
		return true
	}
	return false
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
