package finding

import "github.com/csrfshield/csrfshield/pkg/defaults"

// RiskLevel is the overall risk classification for an analysis result.
// The four bands are fixed, inclusive lower bounds:
//
//	 0–20  LOW
//	21–40  MEDIUM
//	41–70  HIGH
//	71–100 CRITICAL
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// IsValid reports whether l is a recognized risk level.
func (l RiskLevel) IsValid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// String returns the level as a string.
func (l RiskLevel) String() string {
	return string(l)
}

// LevelForScore maps a 0–100 risk score onto its band.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= defaults.BandCriticalMin:
		return RiskCritical
	case score >= defaults.BandHighMin:
		return RiskHigh
	case score >= defaults.BandMediumMin:
		return RiskMedium
	default:
		return RiskLow
	}
}
