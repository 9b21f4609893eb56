// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for detection lists, thresholds, and
// scoring constants.
//
// Usage:
//
//	settings.CookiePatterns = defaults.SessionCookiePatterns()
//	if entropy < defaults.TokenEntropyFloor { ... }
//
// DO NOT scatter hardcoded values like `entropy < 3.5` through the analysis
// packages. Reference the appropriate constant from this package so the CLI,
// the config file loader, and the tests agree on one value.
package defaults

// Version is the current CSRF Shield version
const Version = "1.0.3"

// ============================================================================
// AUTH DETECTION
// ============================================================================
//
// Lists used by the auth mechanism classifier. A single match across any
// exchange of a session is sufficient to flag the category.
// ============================================================================

// AuthHeaders returns the header names treated as non-cookie authentication.
// Presence of any of these with a non-empty value marks header auth.
func AuthHeaders() []string {
	return []string{
		"Authorization",
		"X-API-Key",
		"X-Auth-Token",
		"Api-Key",
		"X-Access-Token",
	}
}

// SessionCookiePatterns returns the substrings that identify a session
// cookie by name (case-insensitive).
func SessionCookiePatterns() []string {
	return []string{"session", "sid", "auth"}
}

// ============================================================================
// TOKEN IDENTIFICATION
// ============================================================================
//
// Three-tier search: exact names, keyword fragments, then the entropy
// fallback for fields that merely look like random tokens.
// ============================================================================

// TokenFieldNames returns exact (case-insensitive) anti-forgery token field
// names seen across common frameworks.
func TokenFieldNames() []string {
	return []string{
		"csrf_token",
		"_token",
		"authenticity_token",
		"csrfmiddlewaretoken",
		"__RequestVerificationToken",
		"_csrf",
		"xsrf_token",
		"nonce",
	}
}

// TokenKeywords returns substrings that suggest a field carries an
// anti-forgery token.
func TokenKeywords() []string {
	return []string{"csrf", "xsrf", "token", "forgery", "nonce"}
}

const (
	// TokenMinLength is the minimum value length for the entropy fallback tier.
	TokenMinLength = 16

	// TokenEntropyThreshold is the minimum Shannon entropy (bits per
	// character) for the entropy fallback tier.
	TokenEntropyThreshold = 3.5

	// TokenEntropyFloor is the entropy below which an identified token is
	// flagged as weak by the static rules.
	TokenEntropyFloor = 3.0

	// EvidenceValueLimit caps header/token values quoted in finding evidence.
	EvidenceValueLimit = 50
)

// ============================================================================
// CSRF HEADERS
// ============================================================================

// CSRFHeaders returns request header names recognized as header-carried
// anti-forgery tokens.
func CSRFHeaders() []string {
	return []string{"X-CSRF-Token", "X-XSRF-Token", "X-CSRFToken", "X-Requested-With"}
}

// ============================================================================
// ENDPOINT VOCABULARY
// ============================================================================
//
// Keyword lists matched against URL path + query. Used by the feature
// extractor (sensitivity), the heuristic adjuster, and the context modifiers.
// ============================================================================

// SensitiveKeywords returns path/query fragments indicating a sensitive
// endpoint (administrative or financial vocabulary).
func SensitiveKeywords() []string {
	return []string{
		"admin", "account", "password", "payment", "transfer",
		"delete", "settings", "email", "billing", "wallet",
		"profile", "withdraw", "deposit", "card", "bank",
	}
}

// FinancialKeywords returns fragments indicating a financial-data endpoint.
func FinancialKeywords() []string {
	return []string{"payment", "transfer", "billing", "wallet", "withdraw", "deposit", "card", "bank", "invoice"}
}

// AdminKeywords returns fragments indicating an administrative endpoint.
func AdminKeywords() []string {
	return []string{"admin", "manage", "console", "superuser"}
}

// UserDataKeywords returns fragments indicating a user-data-modifying endpoint.
func UserDataKeywords() []string {
	return []string{"profile", "account", "settings", "password", "email", "user"}
}

// ActionKeywords returns fragments in a URL or query that indicate a state
// change regardless of HTTP method.
func ActionKeywords() []string {
	return []string{
		"delete", "remove", "update", "create", "transfer",
		"pay", "add", "set", "change", "edit", "disable", "enable",
	}
}

// ============================================================================
// SCORING
// ============================================================================
//
// The two-step scoring design: a multiplicative base from probability and
// normalized static severity, then flat integer context modifiers. Modifiers
// are points, not probabilities — they must never be folded into the
// weighted base.
// ============================================================================

const (
	// ProbabilityWeight is the inference share of the base score.
	ProbabilityWeight = 0.5

	// StaticWeight is the static-analysis share of the base score.
	StaticWeight = 0.5

	// ShortCircuitScore is the fixed score for header-only-auth sessions.
	ShortCircuitScore = 5

	// ModifierFinancial is added for financial-data endpoints.
	ModifierFinancial = 10

	// ModifierAdmin is added for administrative endpoints.
	ModifierAdmin = 8

	// ModifierUserData is added for user-data-modifying endpoints.
	ModifierUserData = 5

	// ModifierHTTPS is added when the exchange uses HTTPS.
	ModifierHTTPS = -3

	// ModifierMultiProtection is added when two or more distinct protection
	// mechanisms are evidenced.
	ModifierMultiProtection = -5

	// ModifierReadMethodStateChange is added when a read method carries an
	// action-indicating URL.
	ModifierReadMethodStateChange = 7
)

// Risk level band boundaries (inclusive lower bounds).
const (
	BandMediumMin   = 21
	BandHighMin     = 41
	BandCriticalMin = 71
)

// Heuristic adjuster constants.
const (
	// ReusedTokenProbabilityFloor floors the probability when a static
	// token-reuse finding exists.
	ReusedTokenProbabilityFloor = 0.95

	// SensitiveEndpointMultiplier scales probability for sensitive URLs.
	SensitiveEndpointMultiplier = 1.2

	// ReadMethodActionMultiplier scales probability for read-method requests
	// carrying action parameters.
	ReadMethodActionMultiplier = 1.3

	// MultiProtectionMultiplier scales probability down when several
	// protections are in place.
	MultiProtectionMultiplier = 0.6
)

// ============================================================================
// PIPELINE
// ============================================================================

const (
	// PipelineSteps is the number of intra-session analysis steps reported
	// through progress events.
	PipelineSteps = 5

	// ProgressChannelSize buffers progress events between the batch
	// goroutine and the dispatch loop.
	ProgressChannelSize = 100
)

// ============================================================================
// HTTP CONTENT TYPES
// ============================================================================

const (
	// ContentTypeJSON is application/json
	ContentTypeJSON = "application/json"

	// ContentTypeForm is application/x-www-form-urlencoded
	ContentTypeForm = "application/x-www-form-urlencoded"

	// ContentTypeMultipart is multipart/form-data
	ContentTypeMultipart = "multipart/form-data"
)

// ============================================================================
// EXIT CODES
// ============================================================================

const (
	// ExitOK indicates success.
	ExitOK = 0

	// ExitError indicates an operational failure (bad input, parse error).
	ExitError = 1

	// ExitUsage indicates invalid command-line usage.
	ExitUsage = 2
)
