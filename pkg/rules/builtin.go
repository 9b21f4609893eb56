package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/csrfshield/csrfshield/pkg/csrftoken"
	"github.com/csrfshield/csrfshield/pkg/defaults"
	"github.com/csrfshield/csrfshield/pkg/finding"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

// staticRule is the shared shape of the built-in rules: identity plus a
// check closure returning evidence when the rule fires.
type staticRule struct {
	id          string
	name        string
	severity    finding.Severity
	description string
	check       func(ex *traffic.Exchange, sctx *Context) (evidence string, fired bool)
}

func (r *staticRule) ID() string                 { return r.id }
func (r *staticRule) Name() string               { return r.name }
func (r *staticRule) Severity() finding.Severity { return r.severity }

func (r *staticRule) Evaluate(ex *traffic.Exchange, sctx *Context) []finding.Finding {
	evidence, fired := r.check(ex, sctx)
	if !fired {
		return nil
	}
	return []finding.Finding{{
		RuleID:      r.id,
		RuleName:    r.name,
		Severity:    r.severity,
		Description: r.description,
		Evidence:    evidence,
		Exchange:    finding.RefFor(ex.Method, ex.URL, ex.ResponseStatus),
	}}
}

// Builtin returns the rule catalog for a configuration, in rule-ID order.
// CSRF-011 is deliberately absent: the short-circuit path owns it.
func Builtin(cfg Config) []Rule {
	all := []*staticRule{
		missingTokenRule(),
		missingCSRFHeaderRule(cfg.CSRFHeaders),
		lowEntropyTokenRule(cfg.EntropyFloor),
		reusedTokenRule(),
		missingSameSiteRule(),
		sameSiteNoneInsecureRule(),
		missingOriginRule(),
		actionViaReadMethodRule(cfg.ActionKeywords),
		missingRefererRule(),
		unrestrictedJSONRule(),
	}

	catalog := make([]Rule, 0, len(all))
	for _, r := range all {
		if cfg.enabled(r.id) {
			catalog = append(catalog, r)
		}
	}
	return catalog
}

func missingTokenRule() *staticRule {
	return &staticRule{
		id:          "CSRF-001",
		name:        "Missing Anti-Forgery Token",
		severity:    finding.High,
		description: "State-changing form submission carries no identifiable anti-forgery token.",
		check: func(ex *traffic.Exchange, sctx *Context) (string, bool) {
			if !ex.IsStateChanging() || !ex.IsFormEncoded() {
				return "", false
			}
			if sctx.TokenFound {
				return "", false
			}
			fields := ex.FormFields()
			names := make([]string, 0, len(fields))
			for name := range fields {
				names = append(names, name)
			}
			sort.Strings(names)
			return "form fields: " + strings.Join(names, ", "), true
		},
	}
}

func missingCSRFHeaderRule(csrfHeaders []string) *staticRule {
	if len(csrfHeaders) == 0 {
		csrfHeaders = defaults.CSRFHeaders()
	}
	return &staticRule{
		id:          "CSRF-002",
		name:        "Missing CSRF Header",
		severity:    finding.Medium,
		description: "State-changing request carries none of the recognized CSRF defense headers.",
		check: func(ex *traffic.Exchange, sctx *Context) (string, bool) {
			if !ex.IsStateChanging() {
				return "", false
			}
			for _, name := range csrfHeaders {
				if v, ok := ex.Header(name); ok && v != "" {
					return "", false
				}
			}
			return "checked: " + strings.Join(csrfHeaders, ", "), true
		},
	}
}

func lowEntropyTokenRule(floor float64) *staticRule {
	if floor == 0 {
		floor = defaults.TokenEntropyFloor
	}
	return &staticRule{
		id:          "CSRF-003",
		name:        "Low-Entropy Token",
		severity:    finding.High,
		description: "Anti-forgery token value has low entropy and may be predictable.",
		check: func(ex *traffic.Exchange, sctx *Context) (string, bool) {
			if !sctx.TokenFound {
				return "", false
			}
			entropy := csrftoken.Entropy(sctx.Token.Value)
			if entropy >= floor {
				return "", false
			}
			return fmt.Sprintf("token %q entropy %.2f bits/char (floor %.1f)",
				truncateValue(sctx.Token.Value), entropy, floor), true
		},
	}
}

func reusedTokenRule() *staticRule {
	return &staticRule{
		id:          "CSRF-004",
		name:        "Reused Anti-Forgery Token",
		severity:    finding.Critical,
		description: "The same token value is reused across multiple requests in one session; tokens must be single-use or per-session-rotated.",
		check: func(ex *traffic.Exchange, sctx *Context) (string, bool) {
			if !sctx.TokenFound || sctx.TokenReuseCount < 2 {
				return "", false
			}
			return fmt.Sprintf("token %q seen on %d exchanges",
				truncateValue(sctx.Token.Value), sctx.TokenReuseCount), true
		},
	}
}

func missingSameSiteRule() *staticRule {
	return &staticRule{
		id:          "CSRF-005",
		name:        "Cookie Without SameSite",
		severity:    finding.Medium,
		description: "Session cookie is set without a SameSite attribute, leaving the browser default in control.",
		check: func(ex *traffic.Exchange, sctx *Context) (string, bool) {
			if !ex.IsStateChanging() {
				return "", false
			}
			setCookie, ok := ex.ResponseHeader("Set-Cookie")
			if !ok || setCookie == "" {
				return "", false
			}
			if strings.Contains(strings.ToLower(setCookie), "samesite=") {
				return "", false
			}
			return "Set-Cookie: " + truncateValue(setCookie), true
		},
	}
}

func sameSiteNoneInsecureRule() *staticRule {
	return &staticRule{
		id:          "CSRF-006",
		name:        "SameSite=None Without Secure",
		severity:    finding.High,
		description: "Cookie opts out of same-site protection without requiring a secure channel.",
		check: func(ex *traffic.Exchange, sctx *Context) (string, bool) {
			setCookie, ok := ex.ResponseHeader("Set-Cookie")
			if !ok {
				return "", false
			}
			lower := strings.ToLower(setCookie)
			if !strings.Contains(lower, "samesite=none") || strings.Contains(lower, "secure") {
				return "", false
			}
			return "Set-Cookie: " + truncateValue(setCookie), true
		},
	}
}

func missingOriginRule() *staticRule {
	return &staticRule{
		id:          "CSRF-007",
		name:        "Missing Origin Header",
		severity:    finding.Medium,
		description: "State-changing request carries no Origin header, so no server-side origin validation is possible.",
		check: func(ex *traffic.Exchange, sctx *Context) (string, bool) {
			if !ex.IsStateChanging() {
				return "", false
			}
			if _, ok := ex.Header("Origin"); ok {
				return "", false
			}
			return "no Origin header on " + ex.Method + " request", true
		},
	}
}

func actionViaReadMethodRule(actionKeywords []string) *staticRule {
	if len(actionKeywords) == 0 {
		actionKeywords = defaults.ActionKeywords()
	}
	return &staticRule{
		id:          "CSRF-008",
		name:        "State Change Via Read Method",
		severity:    finding.High,
		description: "GET/HEAD request appears to perform a state change; safe methods are trivially forgeable via image tags and links.",
		check: func(ex *traffic.Exchange, sctx *Context) (string, bool) {
			if !ex.IsReadMethod() {
				return "", false
			}
			kw := matchKeyword(ex.PathAndQuery(), actionKeywords)
			if kw == "" {
				return "", false
			}
			return fmt.Sprintf("keyword %q in %s %s", kw, ex.Method, ex.URL), true
		},
	}
}

func missingRefererRule() *staticRule {
	return &staticRule{
		id:          "CSRF-009",
		name:        "Missing Referer Header",
		severity:    finding.Low,
		description: "State-changing request carries no Referer header, so referer-based validation cannot apply.",
		check: func(ex *traffic.Exchange, sctx *Context) (string, bool) {
			if !ex.IsStateChanging() {
				return "", false
			}
			if _, ok := ex.Header("Referer"); ok {
				return "", false
			}
			return "no Referer header on " + ex.Method + " request", true
		},
	}
}

func unrestrictedJSONRule() *staticRule {
	return &staticRule{
		id:          "CSRF-010",
		name:        "JSON Endpoint Without CORS Restriction",
		severity:    finding.Medium,
		description: "JSON-consuming endpoint shows no evidence of CORS restriction; content type alone is not a CSRF defense.",
		check: func(ex *traffic.Exchange, sctx *Context) (string, bool) {
			if !ex.IsStateChanging() || !ex.IsJSON() {
				return "", false
			}
			acao, ok := ex.ResponseHeader("Access-Control-Allow-Origin")
			if ok && acao != "" && acao != "*" {
				return "", false
			}
			if acao == "*" {
				return "Access-Control-Allow-Origin: *", true
			}
			return "no Access-Control-Allow-Origin on response", true
		},
	}
}

// matchKeyword returns the first keyword contained in s, or "".
func matchKeyword(s string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(s, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}

func truncateValue(s string) string {
	if len(s) <= defaults.EvidenceValueLimit {
		return s
	}
	return s[:defaults.EvidenceValueLimit] + "..."
}
