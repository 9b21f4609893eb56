package result

import (
	"testing"

	"github.com/csrfshield/csrfshield/pkg/finding"
)

func TestFinalizeAggregates(t *testing.T) {
	p1, p2 := 0.4, 0.9
	s := SessionSummary{Results: []AnalysisResult{
		{RiskScore: 30, Probability: &p1, StaticScore: 0.2},
		{RiskScore: 75, Probability: &p2, StaticScore: 0.6},
		{RiskScore: 5}, // short-circuit style entry, no probability
	}}
	s.Finalize()

	if s.MaxScore != 75 {
		t.Errorf("MaxScore = %d, want 75", s.MaxScore)
	}
	if s.Level != finding.RiskCritical {
		t.Errorf("Level = %s, want CRITICAL (band of max score)", s.Level)
	}
	if s.MaxProbability == nil || *s.MaxProbability != 0.9 {
		t.Errorf("MaxProbability = %v, want 0.9", s.MaxProbability)
	}
	if s.MaxStatic != 0.6 {
		t.Errorf("MaxStatic = %v, want 0.6", s.MaxStatic)
	}
}

func TestFinalizeEmptyAndShortCircuit(t *testing.T) {
	var empty SessionSummary
	empty.Finalize()
	if empty.MaxScore != 0 || empty.Level != finding.RiskLow || empty.MaxProbability != nil {
		t.Errorf("empty summary aggregates: %+v", empty)
	}

	short := SessionSummary{Results: []AnalysisResult{{RiskScore: 5, RiskLevel: finding.RiskLow}}}
	short.Finalize()
	if short.MaxScore != 5 || short.Level != finding.RiskLow {
		t.Errorf("short-circuit aggregates: score=%d level=%s", short.MaxScore, short.Level)
	}
	if short.MaxProbability != nil {
		t.Error("short-circuit summary must keep MaxProbability nil")
	}
}
