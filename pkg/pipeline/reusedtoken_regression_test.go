package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/csrfshield/csrfshield/pkg/finding"
	"github.com/csrfshield/csrfshield/pkg/traffic"
)

// A session reusing one token value across two POSTs must produce the
// reused-token finding on BOTH exchanges, floor both probabilities at 0.95,
// and push both scores into the upper bands. Regression guard for the
// session-wide reuse count getting computed per-exchange.
func TestReusedTokenAcrossSession(t *testing.T) {
	t0 := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	mk := func(url string, ts time.Time) traffic.Exchange {
		return traffic.Exchange{
			Method:      "POST",
			URL:         url,
			Cookies:     map[string]string{"session_id": "r1"},
			ContentType: "application/x-www-form-urlencoded",
			Body:        "csrf_token=c2FtZXRva2VudmFsdWUxMjM0&x=1",
			ResponseHeaders: map[string]string{
				"Set-Cookie": "session_id=r1; Path=/; HttpOnly",
			},
			ResponseStatus: 200,
			Timestamp:      ts,
		}
	}
	flow := traffic.SessionFlow{
		ID:   "r1",
		Auth: traffic.AuthUnknown,
		Exchanges: []traffic.Exchange{
			mk("https://app.example/orders", t0),
			mk("https://app.example/orders/confirm", t0.Add(time.Second)),
		},
	}

	o := newTestOrchestrator()
	require.NoError(t, o.Load([]traffic.SessionFlow{flow}))

	summary, err := o.AnalyzeSession("r1", nil)
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)

	for i, res := range summary.Results {
		var reused *finding.Finding
		for j := range res.Findings {
			if res.Findings[j].RuleID == "CSRF-004" {
				reused = &res.Findings[j]
			}
		}
		require.NotNilf(t, reused, "exchange %d missing reused-token finding", i)
		require.Equal(t, finding.Critical, reused.Severity)

		require.NotNil(t, res.Probability)
		require.GreaterOrEqual(t, *res.Probability, 0.95,
			"reused token must floor the probability")
		require.GreaterOrEqual(t, res.RiskScore, 41,
			"reused token session should land at least in the HIGH band")
	}

	require.Contains(t, []finding.RiskLevel{finding.RiskHigh, finding.RiskCritical}, summary.Level)
	require.NotNil(t, summary.MaxProbability)
	require.GreaterOrEqual(t, *summary.MaxProbability, 0.95)
}
