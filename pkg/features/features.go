// Package features derives the fixed-shape feature vector the probabilistic
// classifier consumes, one vector per state-changing exchange.
//
// Every feature is numeric or categorical — raw strings never cross into the
// inference boundary. Categorical features use small integer codes with a
// fixed meaning documented on the Vector fields.
package features

import (
	"strings"

	"github.com/csrfshield/csrfshield/pkg/csrftoken"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

// Token source codes.
const (
	TokenSourceNone   = 0
	TokenSourceBody   = 1
	TokenSourceHeader = 2
)

// Vector is the fixed ordered 14-feature summary of one exchange.
// Field order is the wire order; it never changes without retraining the
// downstream model.
type Vector struct {
	HasToken            bool    `json:"has_token"`
	TokenInHeader       bool    `json:"token_in_header"`
	TokenInBody         bool    `json:"token_in_body"`
	TokenEntropy        float64 `json:"token_entropy"`
	TokenRotated        bool    `json:"token_rotated"`
	MethodCategory      int     `json:"method_category"`       // POST=0 PUT=1 PATCH=2 DELETE=3 other=4
	ContentTypeCategory int     `json:"content_type_category"` // form=0 json=1 multipart=2 other=3
	SameSiteCategory    int     `json:"same_site_category"`    // strict=0 lax=1 none=2 absent=3
	AuthMechanism       int     `json:"auth_mechanism"`        // traffic.AuthMechanism.Category()
	HasOriginHeader     bool    `json:"has_origin_header"`
	HasRefererHeader    bool    `json:"has_referer_header"`
	UsesHTTPS           bool    `json:"uses_https"`
	EndpointSensitivity float64 `json:"endpoint_sensitivity"`
	HasCustomHeader     bool    `json:"has_custom_header"`
}

// Names returns the feature names in wire order.
func Names() []string {
	return []string{
		"has_token", "token_in_header", "token_in_body", "token_entropy",
		"token_rotated", "method_category", "content_type_category",
		"same_site_category", "auth_mechanism", "has_origin_header",
		"has_referer_header", "uses_https", "endpoint_sensitivity",
		"has_custom_header",
	}
}

// Values returns the vector as a name-keyed numeric map: booleans as 0/1,
// categoricals as their codes. This is the strictly numeric view inference
// consumes.
func (v Vector) Values() map[string]float64 {
	return map[string]float64{
		"has_token":             b2f(v.HasToken),
		"token_in_header":       b2f(v.TokenInHeader),
		"token_in_body":         b2f(v.TokenInBody),
		"token_entropy":         v.TokenEntropy,
		"token_rotated":         b2f(v.TokenRotated),
		"method_category":       float64(v.MethodCategory),
		"content_type_category": float64(v.ContentTypeCategory),
		"same_site_category":    float64(v.SameSiteCategory),
		"auth_mechanism":        float64(v.AuthMechanism),
		"has_origin_header":     b2f(v.HasOriginHeader),
		"has_referer_header":    b2f(v.HasRefererHeader),
		"uses_https":            b2f(v.UsesHTTPS),
		"endpoint_sensitivity":  v.EndpointSensitivity,
		"has_custom_header":     b2f(v.HasCustomHeader),
	}
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Context is the session-level input to extraction: the classified auth
// mechanism and the most recent identified token from a prior exchange in
// the same session (for the rotation check).
type Context struct {
	Auth          traffic.AuthMechanism
	PriorToken    string
	HasPriorToken bool
}

// Config carries the extraction lists and thresholds.
type Config struct {
	Token             csrftoken.Config
	CSRFHeaders       []string
	SensitiveKeywords []string
}

// Extractor derives feature vectors. It is stateless and safe for
// concurrent use.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an extractor with the given configuration.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// IdentifyToken locates the anti-forgery token for an exchange, checking the
// form body first and recognized CSRF headers second. The source return is
// one of the TokenSource constants.
func (x *Extractor) IdentifyToken(ex *traffic.Exchange) (csrftoken.Token, int) {
	if ex.IsFormEncoded() {
		if tok, ok := csrftoken.Identify(ex.FormFields(), x.cfg.Token); ok {
			return tok, TokenSourceBody
		}
	}

	headerFields := make(map[string]string)
	for _, name := range x.cfg.CSRFHeaders {
		if v, ok := ex.Header(name); ok && v != "" {
			headerFields[name] = v
		}
	}
	if tok, ok := csrftoken.Identify(headerFields, x.cfg.Token); ok {
		return tok, TokenSourceHeader
	}

	return csrftoken.Token{}, TokenSourceNone
}

// Extract derives the feature vector for one state-changing exchange.
func (x *Extractor) Extract(ex *traffic.Exchange, sctx Context) Vector {
	tok, source := x.IdentifyToken(ex)

	v := Vector{
		HasToken:            source != TokenSourceNone,
		TokenInHeader:       source == TokenSourceHeader,
		TokenInBody:         source == TokenSourceBody,
		MethodCategory:      methodCategory(ex.Method),
		ContentTypeCategory: contentTypeCategory(ex),
		SameSiteCategory:    sameSiteCategory(ex),
		AuthMechanism:       sctx.Auth.Category(),
		UsesHTTPS:           ex.IsHTTPS(),
		EndpointSensitivity: x.Sensitivity(ex.PathAndQuery()),
	}

	if v.HasToken {
		v.TokenEntropy = csrftoken.Entropy(tok.Value)
		if sctx.HasPriorToken {
			v.TokenRotated = tok.Value != sctx.PriorToken
		}
	}

	if _, ok := ex.Header("Origin"); ok {
		v.HasOriginHeader = true
	}
	if _, ok := ex.Header("Referer"); ok {
		v.HasRefererHeader = true
	}
	for _, name := range x.cfg.CSRFHeaders {
		if val, ok := ex.Header(name); ok && val != "" {
			v.HasCustomHeader = true
			break
		}
	}

	return v
}

// Sensitivity scores how sensitive an endpoint looks based on keyword
// overlap with path+query. Each matched keyword contributes 0.25,
// saturating at 1.0.
func (x *Extractor) Sensitivity(pathAndQuery string) float64 {
	matches := 0
	for _, kw := range x.cfg.SensitiveKeywords {
		if strings.Contains(pathAndQuery, strings.ToLower(kw)) {
			matches++
		}
	}
	score := float64(matches) * 0.25
	if score > 1.0 {
		return 1.0
	}
	return score
}

func methodCategory(method string) int {
	switch strings.ToUpper(method) {
	case "POST":
		return 0
	case "PUT":
		return 1
	case "PATCH":
		return 2
	case "DELETE":
		return 3
	default:
		return 4
	}
}

func contentTypeCategory(ex *traffic.Exchange) int {
	ct := strings.ToLower(ex.ContentType)
	switch {
	case strings.Contains(ct, "application/x-www-form-urlencoded"):
		return 0
	case strings.Contains(ct, "application/json"):
		return 1
	case strings.Contains(ct, "multipart/form-data"):
		return 2
	default:
		return 3
	}
}

// sameSiteCategory inspects the session's Set-Cookie response header on this
// exchange. Absent evidence encodes as 3 — inference treats "we never saw a
// SameSite attribute" differently from an explicit None.
func sameSiteCategory(ex *traffic.Exchange) int {
	setCookie, ok := ex.ResponseHeader("Set-Cookie")
	if !ok {
		return 3
	}
	lower := strings.ToLower(setCookie)
	switch {
	case strings.Contains(lower, "samesite=strict"):
		return 0
	case strings.Contains(lower, "samesite=lax"):
		return 1
	case strings.Contains(lower, "samesite=none"):
		return 2
	default:
		return 3
	}
}
