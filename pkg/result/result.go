// Package result defines the analysis output model: one AnalysisResult per
// analyzed state-changing exchange and one SessionSummary per session flow.
package result

import (
	"time"

	"github.com/csrfshield/csrfshield/pkg/features"
	"github.com/csrfshield/csrfshield/pkg/finding"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

// AnalysisResult is the verdict for one state-changing exchange.
//
// Probability and Features are nil together, and only for short-circuited
// sessions: header-only authentication skips feature extraction and
// inference, so there is nothing probabilistic to report.
type AnalysisResult struct {
	Endpoint  string    `json:"endpoint"`
	Method    string    `json:"method"`
	RiskScore int       `json:"risk_score"`

	RiskLevel finding.RiskLevel `json:"risk_level"`
	Findings  []finding.Finding `json:"findings"`

	Probability *float64         `json:"probability,omitempty"`
	Features    *features.Vector `json:"features,omitempty"`

	// StaticScore is the normalized static severity in [0,1] that entered
	// the score blend. Zero for short-circuited results.
	StaticScore float64 `json:"static_score,omitempty"`

	Recommendations []string `json:"recommendations,omitempty"`

	// Inconclusive is set when a rule panicked during evaluation and the
	// static verdict for this exchange is partial.
	Inconclusive bool `json:"inconclusive,omitempty"`
}

// SessionSummary is the per-session roll-up: the classified auth mechanism,
// the aggregate verdict, and the results for every analyzed exchange.
type SessionSummary struct {
	SessionID     string                `json:"session_id"`
	Auth          traffic.AuthMechanism `json:"auth_mechanism"`
	ExchangeCount int                   `json:"exchange_count"`

	// Aggregates over Results. MaxScore drives Level; MaxProbability is nil
	// for short-circuited sessions.
	MaxScore       int               `json:"max_score"`
	Level          finding.RiskLevel `json:"risk_level"`
	MaxProbability *float64          `json:"max_probability,omitempty"`
	MaxStatic      float64           `json:"max_static"`

	Results    []AnalysisResult `json:"results"`
	AnalyzedAt time.Time        `json:"analyzed_at"`
}

// Finalize recomputes the aggregate fields from Results. The level is the
// band of the maximum score, not the maximum per-result level.
func (s *SessionSummary) Finalize() {
	s.MaxScore = 0
	s.MaxProbability = nil
	s.MaxStatic = 0
	for _, r := range s.Results {
		if r.RiskScore > s.MaxScore {
			s.MaxScore = r.RiskScore
		}
		if r.Probability != nil && (s.MaxProbability == nil || *r.Probability > *s.MaxProbability) {
			p := *r.Probability
			s.MaxProbability = &p
		}
		if r.StaticScore > s.MaxStatic {
			s.MaxStatic = r.StaticScore
		}
	}
	s.Level = finding.LevelForScore(s.MaxScore)
}
