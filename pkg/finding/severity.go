package finding

// Severity represents the severity level of a security finding.
// Values are the fixed uppercase tokens used on the wire and in rule
// configuration files.
type Severity string

const (
	// Critical represents a directly exploitable weakness (e.g. a token
	// reused verbatim across requests).
	Critical Severity = "CRITICAL"

	// High represents a significant gap requiring a prompt fix (e.g. a
	// state-changing form with no anti-forgery token at all).
	High Severity = "HIGH"

	// Medium represents a moderate gap (e.g. a missing SameSite attribute).
	Medium Severity = "MEDIUM"

	// Low represents a limited-impact gap (e.g. no Referer evidence).
	Low Severity = "LOW"

	// Info represents informational findings with no direct security impact.
	Info Severity = "INFO"
)

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case Critical, High, Medium, Low, Info:
		return true
	}
	return false
}

// Weight returns the normalization weight used by the risk scorer.
// Critical=1.0, High=0.75, Medium=0.5, Low=0.25, Info=0.0.
func (s Severity) Weight() float64 {
	switch s {
	case Critical:
		return 1.0
	case High:
		return 0.75
	case Medium:
		return 0.5
	case Low:
		return 0.25
	default:
		return 0.0
	}
}

// Rank returns a numeric rank for sorting and comparison.
// Critical=5, High=4, Medium=3, Low=2, Info=1, Unknown=0.
func (s Severity) Rank() int {
	switch s {
	case Critical:
		return 5
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case Info:
		return 1
	default:
		return 0
	}
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}
