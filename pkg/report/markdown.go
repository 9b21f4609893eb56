package report

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownRenderer writes a human-readable report: one section per session
// with a result table and the finding details beneath it.
type MarkdownRenderer struct{}

var _ Renderer = (*MarkdownRenderer)(nil)

func (r *MarkdownRenderer) Format() string { return "markdown" }

func (r *MarkdownRenderer) Render(w io.Writer, doc Document) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Report\n\n", doc.Tool)
	fmt.Fprintf(&b, "Generated: %s  \n", doc.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Version: %s  \n", doc.Version)
	fmt.Fprintf(&b, "Sessions analyzed: %d\n\n", len(doc.Sessions))

	for _, s := range doc.Sessions {
		fmt.Fprintf(&b, "## Session `%s`\n\n", s.SessionID)
		fmt.Fprintf(&b, "- Auth mechanism: `%s`\n", s.Auth)
		fmt.Fprintf(&b, "- Exchanges: %d\n", s.ExchangeCount)
		fmt.Fprintf(&b, "- Risk: **%d / 100 (%s)**\n", s.MaxScore, s.Level)
		if s.MaxProbability != nil {
			fmt.Fprintf(&b, "- Max probability: %.2f\n", *s.MaxProbability)
		}
		b.WriteString("\n")

		if len(s.Results) == 0 {
			b.WriteString("No state-changing exchanges to analyze.\n\n")
			continue
		}

		b.WriteString("| Method | Endpoint | Score | Level | Findings |\n")
		b.WriteString("|--------|----------|-------|-------|----------|\n")
		for _, res := range s.Results {
			marker := ""
			if res.Inconclusive {
				marker = " (inconclusive)"
			}
			fmt.Fprintf(&b, "| %s | %s | %d%s | %s | %d |\n",
				res.Method, res.Endpoint, res.RiskScore, marker, res.RiskLevel, len(res.Findings))
		}
		b.WriteString("\n")

		for _, res := range s.Results {
			if len(res.Findings) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %s %s\n\n", res.Method, res.Endpoint)
			for _, f := range res.Findings {
				fmt.Fprintf(&b, "- **%s** [%s] %s: %s", f.RuleID, f.Severity, f.RuleName, f.Description)
				if f.Evidence != "" {
					fmt.Fprintf(&b, " _(evidence: %s)_", f.Evidence)
				}
				b.WriteString("\n")
			}
			if len(res.Recommendations) > 0 {
				b.WriteString("\nRecommendations:\n\n")
				for _, rec := range res.Recommendations {
					fmt.Fprintf(&b, "1. %s\n", rec)
				}
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
