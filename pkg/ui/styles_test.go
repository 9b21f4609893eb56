package ui

import (
	"strings"
	"testing"

	"github.com/csrfshield/csrfshield/pkg/finding"
)

func TestSeverityBadge(t *testing.T) {
	for _, s := range []finding.Severity{
		finding.Critical, finding.High, finding.Medium, finding.Low, finding.Info,
	} {
		if got := SeverityBadge(s); !strings.Contains(got, string(s)) {
			t.Errorf("SeverityBadge(%s) = %q, text lost", s, got)
		}
	}
	// Unknown severities pass through unstyled.
	if got := SeverityBadge(finding.Severity("WEIRD")); got != "WEIRD" {
		t.Errorf("unknown severity badge = %q", got)
	}
}

func TestLevelBadge(t *testing.T) {
	for _, l := range []finding.RiskLevel{
		finding.RiskCritical, finding.RiskHigh, finding.RiskMedium, finding.RiskLow,
	} {
		if got := LevelBadge(l); !strings.Contains(got, string(l)) {
			t.Errorf("LevelBadge(%s) = %q, text lost", l, got)
		}
	}
}

func TestBanner(t *testing.T) {
	if got := Banner("1.0.3"); !strings.Contains(got, "csrfshield") || !strings.Contains(got, "v1.0.3") {
		t.Errorf("Banner = %q", got)
	}
}
