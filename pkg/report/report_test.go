package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/csrfshield/csrfshield/pkg/finding"
	"github.com/csrfshield/csrfshield/pkg/jsonutil"
	"github.com/csrfshield/csrfshield/pkg/result"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

func sampleDocument() Document {
	p := 0.82
	return Document{
		Tool:        "csrfshield",
		Version:     "1.0.3",
		GeneratedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Sessions: []result.SessionSummary{{
			SessionID:     "sess-aaa",
			Auth:          traffic.AuthCookie,
			ExchangeCount: 3,
			MaxScore:      72,
			Level:         finding.RiskCritical,
			Results: []result.AnalysisResult{{
				Endpoint:    "https://app.example/transfer",
				Method:      "POST",
				RiskScore:   72,
				RiskLevel:   finding.RiskCritical,
				Probability: &p,
				Findings: []finding.Finding{{
					RuleID:      "CSRF-001",
					RuleName:    "Missing Anti-Forgery Token",
					Severity:    finding.High,
					Description: "State-changing form submission carries no identifiable anti-forgery token.",
					Evidence:    "form fields: amount, to",
				}},
				Recommendations: []string{"Embed a server-generated anti-forgery token in every state-changing form and validate it on submission."},
			}},
		}},
	}
}

func TestForKnownFormats(t *testing.T) {
	for _, format := range []string{"json", "markdown", "md"} {
		if _, err := For(format); err != nil {
			t.Errorf("For(%q): %v", format, err)
		}
	}
	if _, err := For("pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("For(pdf) err = %v, want ErrUnknownFormat", err)
	}
}

func TestJSONRender(t *testing.T) {
	var buf bytes.Buffer
	r := &JSONRenderer{Indent: "  "}
	if err := r.Render(&buf, sampleDocument()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !jsonutil.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Fatal("output is not valid JSON")
	}

	var decoded Document
	if err := jsonutil.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Sessions) != 1 || decoded.Sessions[0].SessionID != "sess-aaa" {
		t.Errorf("round trip lost sessions: %+v", decoded.Sessions)
	}
	if decoded.Sessions[0].Results[0].Probability == nil {
		t.Error("probability dropped in rendering")
	}
}

func TestMarkdownRender(t *testing.T) {
	var buf bytes.Buffer
	r := &MarkdownRenderer{}
	if err := r.Render(&buf, sampleDocument()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# csrfshield Report",
		"sess-aaa",
		"CSRF-001",
		"72",
		"CRITICAL",
		"| POST | https://app.example/transfer |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownRenderEmptySession(t *testing.T) {
	doc := sampleDocument()
	doc.Sessions[0].Results = nil
	var buf bytes.Buffer
	if err := (&MarkdownRenderer{}).Render(&buf, doc); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No state-changing exchanges") {
		t.Error("empty session placeholder missing")
	}
}
