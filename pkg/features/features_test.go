package features

import (
	"testing"

	"github.com/csrfshield/csrfshield/pkg/csrftoken"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

func testExtractor() *Extractor {
	return NewExtractor(Config{
		Token: csrftoken.Config{
			FieldNames:       []string{"csrf_token"},
			Keywords:         []string{"csrf", "token"},
			MinLength:        16,
			EntropyThreshold: 3.5,
		},
		CSRFHeaders:       []string{"X-CSRF-Token", "X-Requested-With"},
		SensitiveKeywords: []string{"admin", "password", "transfer", "payment"},
	})
}

func TestExtractFormToken(t *testing.T) {
	x := testExtractor()
	ex := &traffic.Exchange{
		Method:      "POST",
		URL:         "https://app.example/profile",
		ContentType: "application/x-www-form-urlencoded",
		Body:        "csrf_token=abcdefgh12345678&name=a",
		Headers:     map[string]string{"Origin": "https://app.example", "Referer": "https://app.example/form"},
	}
	v := x.Extract(ex, Context{Auth: traffic.AuthCookie})

	if !v.HasToken || !v.TokenInBody || v.TokenInHeader {
		t.Errorf("token flags = has=%v body=%v header=%v", v.HasToken, v.TokenInBody, v.TokenInHeader)
	}
	if v.TokenEntropy <= 0 {
		t.Errorf("TokenEntropy = %v, want > 0", v.TokenEntropy)
	}
	if v.MethodCategory != 0 {
		t.Errorf("MethodCategory = %d, want 0 for POST", v.MethodCategory)
	}
	if v.ContentTypeCategory != 0 {
		t.Errorf("ContentTypeCategory = %d, want 0 for form", v.ContentTypeCategory)
	}
	if !v.HasOriginHeader || !v.HasRefererHeader {
		t.Error("origin/referer flags not set")
	}
	if !v.UsesHTTPS {
		t.Error("UsesHTTPS not set")
	}
	if v.AuthMechanism != traffic.AuthCookie.Category() {
		t.Errorf("AuthMechanism = %d", v.AuthMechanism)
	}
}

func TestExtractHeaderToken(t *testing.T) {
	x := testExtractor()
	ex := &traffic.Exchange{
		Method:      "POST",
		URL:         "https://app.example/api",
		ContentType: "application/json",
		Headers:     map[string]string{"X-CSRF-Token": "abcdefgh12345678"},
	}
	v := x.Extract(ex, Context{Auth: traffic.AuthCookie})
	if !v.HasToken || !v.TokenInHeader || v.TokenInBody {
		t.Errorf("token flags = has=%v header=%v body=%v", v.HasToken, v.TokenInHeader, v.TokenInBody)
	}
	if !v.HasCustomHeader {
		t.Error("HasCustomHeader not set for X-CSRF-Token")
	}
	if v.ContentTypeCategory != 1 {
		t.Errorf("ContentTypeCategory = %d, want 1 for json", v.ContentTypeCategory)
	}
}

func TestTokenRotation(t *testing.T) {
	x := testExtractor()
	ex := &traffic.Exchange{
		Method:      "POST",
		URL:         "https://app.example/a",
		ContentType: "application/x-www-form-urlencoded",
		Body:        "csrf_token=valueB",
	}

	// No prior token: rotation is false regardless of current token.
	v := x.Extract(ex, Context{Auth: traffic.AuthCookie})
	if v.TokenRotated {
		t.Error("rotation without prior token must be false")
	}

	// Prior token differs: rotated.
	v = x.Extract(ex, Context{Auth: traffic.AuthCookie, PriorToken: "valueA", HasPriorToken: true})
	if !v.TokenRotated {
		t.Error("differing prior token must report rotation")
	}

	// Prior token identical: not rotated.
	v = x.Extract(ex, Context{Auth: traffic.AuthCookie, PriorToken: "valueB", HasPriorToken: true})
	if v.TokenRotated {
		t.Error("identical prior token must not report rotation")
	}
}

func TestSameSiteCategory(t *testing.T) {
	x := testExtractor()
	tests := []struct {
		setCookie string
		want      int
	}{
		{"sid=1; SameSite=Strict", 0},
		{"sid=1; SameSite=Lax", 1},
		{"sid=1; SameSite=None; Secure", 2},
		{"sid=1; Path=/", 3},
		{"", 3},
	}
	for _, tt := range tests {
		ex := &traffic.Exchange{Method: "POST", URL: "https://x.example/"}
		if tt.setCookie != "" {
			ex.ResponseHeaders = map[string]string{"Set-Cookie": tt.setCookie}
		}
		v := x.Extract(ex, Context{Auth: traffic.AuthCookie})
		if v.SameSiteCategory != tt.want {
			t.Errorf("SameSiteCategory(%q) = %d, want %d", tt.setCookie, v.SameSiteCategory, tt.want)
		}
	}
}

func TestSensitivitySaturates(t *testing.T) {
	x := testExtractor()
	if got := x.Sensitivity("/home"); got != 0 {
		t.Errorf("Sensitivity(/home) = %v, want 0", got)
	}
	if got := x.Sensitivity("/admin/users"); got != 0.25 {
		t.Errorf("Sensitivity one keyword = %v, want 0.25", got)
	}
	got := x.Sensitivity("/admin/password/transfer/payment?admin=1")
	if got != 1.0 {
		t.Errorf("Sensitivity all keywords = %v, want saturation at 1.0", got)
	}
}

func TestValuesCoversAllFeatures(t *testing.T) {
	v := Vector{HasToken: true, TokenEntropy: 3.2, MethodCategory: 2, EndpointSensitivity: 0.5}
	values := v.Values()
	if len(values) != 14 {
		t.Fatalf("Values has %d entries, want 14", len(values))
	}
	for _, name := range Names() {
		if _, ok := values[name]; !ok {
			t.Errorf("Values missing feature %q", name)
		}
	}
	if values["has_token"] != 1 || values["token_entropy"] != 3.2 || values["method_category"] != 2 {
		t.Errorf("Values mapping wrong: %v", values)
	}
}
