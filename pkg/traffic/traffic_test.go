package traffic

import (
	"testing"
	"time"
)

func TestHeaderCaseInsensitive(t *testing.T) {
	ex := Exchange{Headers: map[string]string{"Content-Type": "application/json"}}
	if v, ok := ex.Header("content-type"); !ok || v != "application/json" {
		t.Errorf("Header(content-type) = %q, %v", v, ok)
	}
	if _, ok := ex.Header("Origin"); ok {
		t.Error("unexpected Origin header")
	}
}

func TestMethodClassification(t *testing.T) {
	tests := []struct {
		method        string
		stateChanging bool
		read          bool
	}{
		{"POST", true, false},
		{"put", true, false},
		{"PATCH", true, false},
		{"DELETE", true, false},
		{"GET", false, true},
		{"HEAD", false, true},
		{"OPTIONS", false, true},
		{"TRACE", false, false},
	}
	for _, tt := range tests {
		ex := Exchange{Method: tt.method}
		if got := ex.IsStateChanging(); got != tt.stateChanging {
			t.Errorf("%s IsStateChanging = %v, want %v", tt.method, got, tt.stateChanging)
		}
		if got := ex.IsReadMethod(); got != tt.read {
			t.Errorf("%s IsReadMethod = %v, want %v", tt.method, got, tt.read)
		}
	}
}

func TestFormFields(t *testing.T) {
	ex := Exchange{
		ContentType: "application/x-www-form-urlencoded",
		Body:        "csrf_token=abc123&amount=50",
	}
	fields := ex.FormFields()
	if fields["csrf_token"] != "abc123" || fields["amount"] != "50" {
		t.Errorf("FormFields = %v", fields)
	}

	empty := Exchange{Body: ""}
	if got := empty.FormFields(); len(got) != 0 {
		t.Errorf("FormFields on empty body = %v", got)
	}
}

func TestPathAndQuery(t *testing.T) {
	ex := Exchange{URL: "https://bank.example/Transfer?Amount=100"}
	if got := ex.PathAndQuery(); got != "/transfer?amount=100" {
		t.Errorf("PathAndQuery = %q", got)
	}
}

func TestIsHTTPS(t *testing.T) {
	if !(&Exchange{URL: "HTTPS://x.example/"}).IsHTTPS() {
		t.Error("uppercase scheme should count as HTTPS")
	}
	if (&Exchange{URL: "http://x.example/"}).IsHTTPS() {
		t.Error("http should not count as HTTPS")
	}
}

func TestAuthMechanismCategory(t *testing.T) {
	tests := []struct {
		mech AuthMechanism
		want int
	}{
		{AuthCookie, 0},
		{AuthHeaderOnly, 1},
		{AuthMixed, 2},
		{AuthNone, 3},
		{AuthUnknown, 4},
	}
	for _, tt := range tests {
		if got := tt.mech.Category(); got != tt.want {
			t.Errorf("%s.Category() = %d, want %d", tt.mech, got, tt.want)
		}
	}
}

func TestSessionFlowWithAuth(t *testing.T) {
	flow := SessionFlow{ID: "s1", Auth: AuthUnknown, Exchanges: []Exchange{
		{Method: "GET", Timestamp: time.Now()},
		{Method: "POST", Timestamp: time.Now()},
	}}
	tagged := flow.WithAuth(AuthCookie)
	if tagged.Auth != AuthCookie || flow.Auth != AuthUnknown {
		t.Error("WithAuth must not mutate the original flow")
	}
	if len(tagged.Exchanges) != 2 {
		t.Errorf("WithAuth must share the exchange slice, got %d", len(tagged.Exchanges))
	}
}
