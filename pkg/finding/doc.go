// Package finding provides the shared security finding types used across
// the analysis pipeline: severities, risk levels, and the Finding record a
// static rule produces for one HTTP exchange.
//
// All analysis packages produce or consume these canonical types instead of
// declaring their own, so the scorer, the cache, and the protocol layer agree
// on one representation.
//
// Usage:
//
//	f := finding.Finding{
//	    RuleID:   "CSRF-001",
//	    RuleName: "Missing Anti-Forgery Token",
//	    Severity: finding.High,
//	    Exchange: finding.RefFor("POST", "https://example.com/transfer", 302),
//	}
package finding
