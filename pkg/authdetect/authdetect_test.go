package authdetect

import (
	"strings"
	"testing"

	"github.com/csrfshield/csrfshield/pkg/finding"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

func flowWith(exchanges ...traffic.Exchange) traffic.SessionFlow {
	return traffic.SessionFlow{ID: "s1", Exchanges: exchanges, Auth: traffic.AuthUnknown}
}

func TestClassifyDecisionTable(t *testing.T) {
	cookieEx := traffic.Exchange{
		Method:  "GET",
		URL:     "https://app.example/home",
		Cookies: map[string]string{"session_id": "abc"},
	}
	headerEx := traffic.Exchange{
		Method:  "POST",
		URL:     "https://app.example/api",
		Headers: map[string]string{"Authorization": "Bearer tok"},
	}
	bareEx := traffic.Exchange{Method: "GET", URL: "https://app.example/public"}

	tests := []struct {
		name string
		flow traffic.SessionFlow
		want traffic.AuthMechanism
	}{
		{"cookie only", flowWith(cookieEx, bareEx), traffic.AuthCookie},
		{"header only", flowWith(headerEx, bareEx), traffic.AuthHeaderOnly},
		{"both", flowWith(cookieEx, headerEx), traffic.AuthMixed},
		{"neither", flowWith(bareEx), traffic.AuthNone},
		{"empty flow", flowWith(), traffic.AuthNone},
	}

	c := NewClassifier(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.flow); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyNonSessionCookieIgnored(t *testing.T) {
	flow := flowWith(traffic.Exchange{
		Method:  "GET",
		URL:     "https://app.example/",
		Cookies: map[string]string{"theme": "dark"},
	})
	c := NewClassifier(nil, nil)
	if got := c.Classify(flow); got != traffic.AuthNone {
		t.Errorf("Classify = %s, want none", got)
	}
}

func TestShortCircuits(t *testing.T) {
	if !ShortCircuits(traffic.AuthHeaderOnly) {
		t.Error("header_only must short-circuit")
	}
	for _, m := range []traffic.AuthMechanism{traffic.AuthCookie, traffic.AuthMixed, traffic.AuthNone} {
		if ShortCircuits(m) {
			t.Errorf("%s must not short-circuit", m)
		}
	}
}

func TestShortCircuitSummary(t *testing.T) {
	longToken := "Bearer " + strings.Repeat("x", 100)
	flow := flowWith(
		traffic.Exchange{
			Method:  "GET",
			URL:     "https://api.example/items",
			Headers: map[string]string{"Authorization": longToken},
		},
		traffic.Exchange{
			Method:         "POST",
			URL:            "https://api.example/items",
			Headers:        map[string]string{"Authorization": longToken},
			ResponseStatus: 201,
		},
	)

	c := NewClassifier(nil, nil)
	summary := c.ShortCircuitSummary(flow)

	if summary.Auth != traffic.AuthHeaderOnly {
		t.Errorf("Auth = %s", summary.Auth)
	}
	if len(summary.Results) != 1 {
		t.Fatalf("got %d results, want exactly 1 fixed verdict", len(summary.Results))
	}

	res := summary.Results[0]
	if res.Method != "GET" || res.Endpoint != "https://api.example/items" {
		t.Errorf("representative = %s %s, want first exchange", res.Method, res.Endpoint)
	}
	if res.RiskScore != 5 {
		t.Errorf("RiskScore = %d, want 5", res.RiskScore)
	}
	if res.RiskLevel != finding.RiskLow {
		t.Errorf("RiskLevel = %s, want LOW", res.RiskLevel)
	}
	if res.Probability != nil || res.Features != nil {
		t.Error("short-circuit result must have nil probability and features")
	}
	if len(res.Findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(res.Findings))
	}

	f := res.Findings[0]
	if f.RuleID != "CSRF-011" || f.Severity != finding.Info {
		t.Errorf("finding = %s/%s, want CSRF-011/INFO", f.RuleID, f.Severity)
	}
	if !strings.HasPrefix(f.Evidence, "Authorization: ") {
		t.Errorf("evidence = %q", f.Evidence)
	}
	// Value truncated to 50 chars plus the ellipsis marker.
	value := strings.TrimPrefix(f.Evidence, "Authorization: ")
	if len(value) != 53 || !strings.HasSuffix(value, "...") {
		t.Errorf("evidence value not truncated to 50: %q (len %d)", value, len(value))
	}

	if len(res.Recommendations) != 1 || res.Recommendations[0] != ShortCircuitRecommendation {
		t.Errorf("recommendations = %v", res.Recommendations)
	}
}

func TestShortCircuitSummaryReadOnlySession(t *testing.T) {
	// A bearer-token API capture with nothing but reads still gets its one
	// fixed verdict; the verdict is about the auth shape, not the methods.
	flow := flowWith(
		traffic.Exchange{
			Method:  "GET",
			URL:     "https://api.example/items",
			Headers: map[string]string{"Authorization": "Bearer abc"},
		},
		traffic.Exchange{
			Method:  "GET",
			URL:     "https://api.example/items/7",
			Headers: map[string]string{"Authorization": "Bearer abc"},
		},
	)

	summary := NewClassifier(nil, nil).ShortCircuitSummary(flow)
	if len(summary.Results) != 1 {
		t.Fatalf("got %d results, want 1 fixed short-circuit result", len(summary.Results))
	}
	res := summary.Results[0]
	if res.RiskScore != 5 || res.RiskLevel != finding.RiskLow {
		t.Errorf("verdict = %d/%s, want 5/LOW", res.RiskScore, res.RiskLevel)
	}
	if len(res.Findings) != 1 || res.Findings[0].RuleID != "CSRF-011" || res.Findings[0].Severity != finding.Info {
		t.Errorf("findings = %+v", res.Findings)
	}
	if res.Endpoint != "https://api.example/items" {
		t.Errorf("representative endpoint = %s, want first exchange", res.Endpoint)
	}
}

func TestShortCircuitSummaryEmptyFlow(t *testing.T) {
	summary := NewClassifier(nil, nil).ShortCircuitSummary(flowWith())
	if len(summary.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(summary.Results))
	}
	res := summary.Results[0]
	if res.Endpoint != "unknown" || res.Method != "GET" {
		t.Errorf("fallback identity = %s %s, want GET unknown", res.Method, res.Endpoint)
	}
	if res.Findings[0].Evidence != "header-based authentication detected on session" {
		t.Errorf("fallback evidence = %q", res.Findings[0].Evidence)
	}
}
