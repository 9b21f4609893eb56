package finding

import (
	"fmt"

	"github.com/spaolacci/murmur3"
)

// ExchangeRef is the compact identity of the HTTP exchange a finding is tied
// to. Findings reference exchanges by identity rather than carrying a full
// copy, so a result set stays small no matter how large the capture was.
type ExchangeRef struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Status int    `json:"status"`

	// Hash is a murmur3 digest of method|url|status, stable across runs and
	// handy for deduplication in downstream tooling.
	Hash string `json:"hash"`
}

// RefFor builds the compact reference for an exchange identity.
func RefFor(method, url string, status int) ExchangeRef {
	key := fmt.Sprintf("%s|%s|%d", method, url, status)
	return ExchangeRef{
		Method: method,
		URL:    url,
		Status: status,
		Hash:   fmt.Sprintf("%016x", murmur3.Sum64([]byte(key))),
	}
}

// Finding is one rule violation tied to one exchange. Findings are immutable:
// produced once per rule evaluation, never edited.
type Finding struct {
	RuleID      string      `json:"rule_id"`
	RuleName    string      `json:"rule_name"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Evidence    string      `json:"evidence,omitempty"`
	Exchange    ExchangeRef `json:"exchange"`
}

// MaxSeverity returns the highest severity present in findings, or Info for
// an empty list.
func MaxSeverity(findings []Finding) Severity {
	max := Info
	for _, f := range findings {
		if f.Severity.Rank() > max.Rank() {
			max = f.Severity
		}
	}
	return max
}
