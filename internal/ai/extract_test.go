package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract_StrictJSON(t *testing.T) {
	t.Parallel()

	raw := `{"answer":"Your CSP is missing.","citations":["security.headers"],
"suggested_actions":["Define a Content-Security-Policy"],"urgency":"high"}`
	p := extract(raw)
	require.Equal(t, "Your CSP is missing.", p.Answer)
	require.Equal(t, []string{"security.headers"}, p.Citations)
	require.Equal(t, []string{"Define a Content-Security-Policy"}, p.SuggestedActions)
	require.Equal(t, UrgencyHigh, p.Urgency)
}

func TestExtract_JSONInCodeFence(t *testing.T) {
	t.Parallel()

	raw := "Here is the result:\n```json\n{\"answer\":\"All good.\",\"urgency\":\"Low\"}\n```"
	p := extract(raw)
	require.Equal(t, "All good.", p.Answer)
	require.Equal(t, UrgencyLow, p.Urgency)
}

func TestExtract_HeuristicLines(t *testing.T) {
	t.Parallel()

	raw := `The page loads slowly on mobile devices.

- Compress hero images
- Defer third-party scripts
1. Enable HTTP/2

Urgency: Medium`
	p := extract(raw)
	require.Equal(t, "The page loads slowly on mobile devices.", p.Answer)
	require.Equal(t, []string{
		"Compress hero images",
		"Defer third-party scripts",
		"Enable HTTP/2",
	}, p.SuggestedActions)
	require.Equal(t, UrgencyMedium, p.Urgency)
}

func TestExtract_LeadingUrgencyLineIsNotTheAnswer(t *testing.T) {
	t.Parallel()

	p := extract("Urgency: High\nThe checkout page is served over plain HTTP.\n- Enable HTTPS")
	require.Equal(t, "The checkout page is served over plain HTTP.", p.Answer)
	require.Equal(t, UrgencyHigh, p.Urgency)
	require.Equal(t, []string{"Enable HTTPS"}, p.SuggestedActions)
}

func TestExtract_ActionCap(t *testing.T) {
	t.Parallel()

	raw := "Answer line.\n- a\n- b\n- c\n- d\n- e\n- f\n- g"
	p := extract(raw)
	require.Len(t, p.SuggestedActions, maxSuggestedActions)
}

func TestExtract_DefaultUrgency(t *testing.T) {
	t.Parallel()

	p := extract("Just a plain answer with no markers.")
	require.Equal(t, UrgencyLow, p.Urgency)
	require.Equal(t, "Just a plain answer with no markers.", p.Answer)
}

func TestExtract_MalformedJSONFallsBackToHeuristic(t *testing.T) {
	t.Parallel()

	p := extract(`{"answer": truncated`)
	require.NotEmpty(t, p.Answer)
	require.Equal(t, UrgencyLow, p.Urgency)
}

func TestNormalizeUrgency(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"HIGH":    UrgencyHigh,
		"medium":  UrgencyMedium,
		"Low":     UrgencyLow,
		"bananas": UrgencyLow,
		"":        UrgencyLow,
	}
	for in, want := range cases {
		require.Equal(t, want, normalizeUrgency(in), "input %q", in)
	}
}
