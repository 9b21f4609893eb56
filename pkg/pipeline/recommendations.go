package pipeline

import "github.com/csrfshield/csrfshield/pkg/finding"

// remediations maps rule IDs to their remediation guidance.
var remediations = map[string]string{
	"CSRF-001": "Embed a server-generated anti-forgery token in every state-changing form and validate it on submission.",
	"CSRF-002": "Require a custom CSRF header (such as X-CSRF-Token) on state-changing requests; browsers cannot attach it cross-site.",
	"CSRF-003": "Generate anti-forgery tokens from a cryptographically secure random source with at least 128 bits of entropy.",
	"CSRF-004": "Rotate anti-forgery tokens per request, or at minimum per session; a reused token defeats the defense once leaked.",
	"CSRF-005": "Set SameSite=Lax or SameSite=Strict on session cookies instead of relying on browser defaults.",
	"CSRF-006": "Add the Secure attribute to any cookie declaring SameSite=None.",
	"CSRF-007": "Validate the Origin header on state-changing requests and reject mismatches.",
	"CSRF-008": "Move state-changing operations off GET/HEAD; safe methods are forgeable via links and image tags.",
	"CSRF-009": "Validate the Referer header as defense in depth where the Origin header is unavailable.",
	"CSRF-010": "Restrict Access-Control-Allow-Origin to trusted origins and pair JSON endpoints with a token or header check.",
}

// Recommendations derives the deduplicated remediation list for a finding
// set, ordered by rule ID.
func Recommendations(findings []finding.Finding) []string {
	seen := make(map[string]bool, len(findings))
	var out []string
	for _, f := range findings {
		if seen[f.RuleID] {
			continue
		}
		seen[f.RuleID] = true
		if r, ok := remediations[f.RuleID]; ok {
			out = append(out, r)
		}
	}
	return out
}
