package scoring

import (
	"testing"

	"github.com/csrfshield/csrfshield/pkg/finding"
)

func TestScoreWorkedExamples(t *testing.T) {
	tests := []struct {
		name       string
		prob       float64
		staticNorm float64
		modifiers  int
		wantScore  int
		wantLevel  finding.RiskLevel
	}{
		{"high risk", 0.85, 0.70, 10, 88, finding.RiskCritical},
		{"low risk", 0.15, 0.10, -5, 8, finding.RiskLow},
		{"zero everything", 0, 0, 0, 0, finding.RiskLow},
		{"clamped high", 1.0, 1.0, 50, 100, finding.RiskCritical},
		{"clamped low", 0, 0, -10, 0, finding.RiskLow},
		{"band boundary medium", 0.21, 0.21, 0, 21, finding.RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, level := Score(tt.prob, tt.staticNorm, tt.modifiers)
			if score != tt.wantScore {
				t.Errorf("Score = %d, want %d", score, tt.wantScore)
			}
			if level != tt.wantLevel {
				t.Errorf("Level = %s, want %s", level, tt.wantLevel)
			}
		})
	}
}

func TestScoreBaseRoundedOnce(t *testing.T) {
	// 0.5·0.85 + 0.5·0.70 = 0.775 -> 77.5 rounds to 78 before the modifier.
	score, _ := Score(0.85, 0.70, 0)
	if score != 78 {
		t.Errorf("base = %d, want 78 (round once, then add modifiers)", score)
	}
}

func TestAdjustProbabilityReusedTokenFloor(t *testing.T) {
	s := NewScorer(Config{})
	findings := []finding.Finding{{RuleID: "CSRF-004", Severity: finding.Critical}}
	got := s.AdjustProbability(0.30, findings, "https://app.example/update", "POST")
	if got < 0.95 {
		t.Errorf("AdjustProbability = %v, want >= 0.95 with reused token", got)
	}
}

func TestAdjustProbabilitySensitiveMultiplier(t *testing.T) {
	s := NewScorer(Config{})
	// Unprotected exchange: enough protection rules fired that the
	// multi-protection damper stays off.
	findings := []finding.Finding{
		{RuleID: "CSRF-001"}, {RuleID: "CSRF-002"}, {RuleID: "CSRF-005"},
		{RuleID: "CSRF-007"}, {RuleID: "CSRF-009"},
	}
	base := s.AdjustProbability(0.50, findings, "https://app.example/items", "POST")
	sensitive := s.AdjustProbability(0.50, findings, "https://app.example/admin/items", "POST")
	if sensitive <= base {
		t.Errorf("sensitive %v should exceed base %v", sensitive, base)
	}
	if want := 0.50 * 1.2; !close(sensitive, want) {
		t.Errorf("sensitive = %v, want %v", sensitive, want)
	}
}

func TestAdjustProbabilityReadMethodAction(t *testing.T) {
	s := NewScorer(Config{})
	findings := []finding.Finding{
		{RuleID: "CSRF-001"}, {RuleID: "CSRF-002"}, {RuleID: "CSRF-005"},
		{RuleID: "CSRF-007"}, {RuleID: "CSRF-009"},
	}
	got := s.AdjustProbability(0.50, findings, "https://app.example/items/update?id=1", "GET")
	if want := 0.50 * 1.3; !close(got, want) {
		t.Errorf("read-method action = %v, want %v", got, want)
	}
}

func TestAdjustProbabilityMultiProtectionDamper(t *testing.T) {
	s := NewScorer(Config{})
	// No findings at all: every protection counts as evidenced.
	got := s.AdjustProbability(0.50, nil, "https://app.example/items", "POST")
	if want := 0.50 * 0.6; !close(got, want) {
		t.Errorf("multi-protection = %v, want %v", got, want)
	}
}

func TestAdjustProbabilityBounds(t *testing.T) {
	s := NewScorer(Config{})
	inputs := []float64{-0.5, 0, 0.5, 0.99, 1.0, 1.7}
	findingSets := [][]finding.Finding{
		nil,
		{{RuleID: "CSRF-004"}},
		{{RuleID: "CSRF-001"}, {RuleID: "CSRF-002"}, {RuleID: "CSRF-004"},
			{RuleID: "CSRF-005"}, {RuleID: "CSRF-007"}, {RuleID: "CSRF-009"}},
	}
	urls := []string{"https://a.example/x", "https://a.example/admin/transfer?delete=1"}
	for _, p := range inputs {
		for _, fs := range findingSets {
			for _, u := range urls {
				for _, m := range []string{"GET", "POST"} {
					got := s.AdjustProbability(p, fs, u, m)
					if got < 0 || got > 1 {
						t.Fatalf("AdjustProbability(%v, %d findings, %s %s) = %v out of [0,1]",
							p, len(fs), m, u, got)
					}
				}
			}
		}
	}
}

func TestModifiers(t *testing.T) {
	s := NewScorer(Config{})
	allFired := []finding.Finding{
		{RuleID: "CSRF-001"}, {RuleID: "CSRF-002"}, {RuleID: "CSRF-005"},
		{RuleID: "CSRF-007"}, {RuleID: "CSRF-009"},
	}

	tests := []struct {
		name     string
		url      string
		method   string
		https    bool
		findings []finding.Finding
		want     int
	}{
		{"financial endpoint", "https://b.example/payment/send", "POST", false, allFired, 10},
		{"admin endpoint", "https://b.example/admin", "POST", false, allFired, 8},
		{"user data endpoint", "https://b.example/profile", "POST", false, allFired, 5},
		{"https only", "https://b.example/items", "POST", true, allFired, -3},
		{"multi protection", "https://b.example/items", "POST", false, nil, -5},
		{"read method action", "https://b.example/items/delete", "GET", false, allFired, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Modifiers(tt.url, tt.method, tt.https, tt.findings); got != tt.want {
				t.Errorf("Modifiers = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProtectionCount(t *testing.T) {
	if got := ProtectionCount(nil); got != 5 {
		t.Errorf("ProtectionCount(nil) = %d, want 5", got)
	}
	fired := []finding.Finding{
		{RuleID: "CSRF-001"}, {RuleID: "CSRF-002"}, {RuleID: "CSRF-005"},
		{RuleID: "CSRF-007"}, {RuleID: "CSRF-009"},
	}
	if got := ProtectionCount(fired); got != 0 {
		t.Errorf("ProtectionCount(all fired) = %d, want 0", got)
	}

	// A fired CSRF-010 marks a JSON body: the form-token rule's silence is
	// structural there and must not count as a protection.
	jsonExchange := []finding.Finding{
		{RuleID: "CSRF-002"}, {RuleID: "CSRF-007"},
		{RuleID: "CSRF-009"}, {RuleID: "CSRF-010"},
	}
	if got := ProtectionCount(jsonExchange); got != 1 {
		t.Errorf("ProtectionCount(json exchange) = %d, want 1 (only SameSite)", got)
	}
}

func TestAdjustProbabilityJSONExchangeNotDamped(t *testing.T) {
	s := NewScorer(Config{})
	// Typical unprotected JSON POST: header/origin/referer rules fired plus
	// CSRF-010. Without the applicability gate the untriggerable form-token
	// rule would push the protection count to 2 and damp the probability.
	findings := []finding.Finding{
		{RuleID: "CSRF-002"}, {RuleID: "CSRF-007"},
		{RuleID: "CSRF-009"}, {RuleID: "CSRF-010"},
	}
	got := s.AdjustProbability(0.50, findings, "https://api.example/items", "POST")
	if !close(got, 0.50) {
		t.Errorf("AdjustProbability = %v, want 0.50 undamped", got)
	}
}

func close(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
