// Package traffic defines the reconstructed capture model the analysis
// pipeline consumes: one Exchange per request/response pair and one
// SessionFlow per authentication context.
//
// Values in this package are immutable by convention. Nothing downstream
// mutates an Exchange or a SessionFlow; stages that need to record a derived
// fact (like the detected auth mechanism) produce a new value.
package traffic

import (
	"net/url"
	"strings"
	"time"
)

// AuthMechanism is the authentication mechanism detected for a session flow.
type AuthMechanism string

const (
	// AuthCookie marks sessions relying on cookies (CSRF-relevant).
	AuthCookie AuthMechanism = "cookie"

	// AuthHeaderOnly marks bearer/API-key-only sessions. This is the
	// short-circuit trigger: CSRF is structurally inapplicable.
	AuthHeaderOnly AuthMechanism = "header_only"

	// AuthMixed marks sessions with both cookies and auth headers.
	AuthMixed AuthMechanism = "mixed"

	// AuthNone marks sessions with no detected authentication.
	AuthNone AuthMechanism = "none"

	// AuthUnknown marks flows that have not been classified yet.
	AuthUnknown AuthMechanism = "unknown"
)

// IsValid reports whether m is a recognized mechanism.
func (m AuthMechanism) IsValid() bool {
	switch m {
	case AuthCookie, AuthHeaderOnly, AuthMixed, AuthNone, AuthUnknown:
		return true
	}
	return false
}

// Category returns the small-integer encoding used in feature vectors.
// cookie=0, header_only=1, mixed=2, none=3, unknown=4.
func (m AuthMechanism) Category() int {
	switch m {
	case AuthCookie:
		return 0
	case AuthHeaderOnly:
		return 1
	case AuthMixed:
		return 2
	case AuthNone:
		return 3
	default:
		return 4
	}
}

// Exchange is one request/response pair extracted from a capture.
type Exchange struct {
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	Headers         map[string]string `json:"headers"`
	Cookies         map[string]string `json:"cookies"`
	Body            string            `json:"body,omitempty"`
	ContentType     string            `json:"content_type,omitempty"`
	ResponseStatus  int               `json:"response_status"`
	ResponseHeaders map[string]string `json:"response_headers"`
	ResponseBody    string            `json:"response_body,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// Header returns the request header value for name, case-insensitively.
func (e *Exchange) Header(name string) (string, bool) {
	for k, v := range e.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// ResponseHeader returns the response header value for name,
// case-insensitively.
func (e *Exchange) ResponseHeader(name string) (string, bool) {
	for k, v := range e.ResponseHeaders {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// IsStateChanging reports whether the request method is one that mutates
// server state by HTTP semantics.
func (e *Exchange) IsStateChanging() bool {
	switch strings.ToUpper(e.Method) {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

// IsReadMethod reports whether the request uses a nominally safe method.
func (e *Exchange) IsReadMethod() bool {
	switch strings.ToUpper(e.Method) {
	case "GET", "HEAD", "OPTIONS":
		return true
	}
	return false
}

// IsHTTPS reports whether the request URL uses the https scheme.
func (e *Exchange) IsHTTPS() bool {
	return strings.HasPrefix(strings.ToLower(e.URL), "https://")
}

// IsJSON reports whether the request carries a JSON body.
func (e *Exchange) IsJSON() bool {
	return strings.Contains(strings.ToLower(e.ContentType), "application/json")
}

// IsFormEncoded reports whether the request carries a form-encoded body
// (urlencoded or multipart).
func (e *Exchange) IsFormEncoded() bool {
	ct := strings.ToLower(e.ContentType)
	return strings.Contains(ct, "application/x-www-form-urlencoded") ||
		strings.Contains(ct, "multipart/form-data")
}

// FormFields parses the body as application/x-www-form-urlencoded and
// returns the field map. Returns an empty map for non-form or unparseable
// bodies; analysis treats those the same as "no fields".
func (e *Exchange) FormFields() map[string]string {
	fields := make(map[string]string)
	if e.Body == "" {
		return fields
	}
	values, err := url.ParseQuery(e.Body)
	if err != nil {
		return fields
	}
	for k, vs := range values {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return fields
}

// PathAndQuery returns the lowercased path plus raw query of the request
// URL, the surface keyword vocabularies are matched against. Falls back to
// the whole URL string when parsing fails.
func (e *Exchange) PathAndQuery() string {
	u, err := url.Parse(e.URL)
	if err != nil {
		return strings.ToLower(e.URL)
	}
	return strings.ToLower(u.Path + "?" + u.RawQuery)
}

// SessionFlow is an ordered group of exchanges sharing one authentication
// context. The zero AuthMechanism for a freshly reconstructed flow is
// AuthUnknown; classification produces a new flow value via WithAuth.
type SessionFlow struct {
	ID        string        `json:"session_id"`
	Exchanges []Exchange    `json:"exchanges"`
	Auth      AuthMechanism `json:"auth_mechanism"`
}

// WithAuth returns a copy of the flow with the auth mechanism set.
// The exchange slice is shared, not copied: exchanges are immutable.
func (f SessionFlow) WithAuth(mech AuthMechanism) SessionFlow {
	return SessionFlow{ID: f.ID, Exchanges: f.Exchanges, Auth: mech}
}
