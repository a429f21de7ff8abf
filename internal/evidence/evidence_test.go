package evidence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
)

func sampleAudit() *audit.Audit {
	a := &audit.Audit{
		ID: "a1",
		SEO: audit.Section{
			Score: 72,
			Findings: []audit.Finding{
				{Title: "Missing meta description", Action: "Add one"},
				{Title: "Broken internal link: https://x.test/old (Not Found)", Action: "Fix or remove the broken link"},
			},
			Raw: map[string]any{"links_checked": 5, "links_broken": 1},
		},
		Performance: audit.Section{Score: 40, Findings: []audit.Finding{
			{Title: "Poor mobile performance score (40)", Action: "Reduce image weight"},
		}},
		Security: audit.Section{Score: 84, Findings: []audit.Finding{
			{Title: "Missing Content-Security-Policy header", Action: "Define a CSP"},
		}},
		AISummary: audit.Summary{
			Summary:         "The site is broadly healthy with a weak mobile experience.",
			Recommendations: []string{"Compress hero images", "Add a CSP"},
		},
	}
	a.Normalize()
	return a
}

func TestBuild_KeywordMatchComesFirst(t *testing.T) {
	t.Parallel()

	got := Build(sampleAudit(), "why is the site slow on mobile?", 2)
	require.Len(t, got, 2)
	require.Contains(t, got, "performance.scores")
	require.Contains(t, got["performance.scores"], "Performance score: 40/100")
}

func TestBuild_BrokenLinkQueryPullsLinkSnippet(t *testing.T) {
	t.Parallel()

	got := Build(sampleAudit(), "do I have broken links?", 3)
	require.Contains(t, got, "seo.links")
	require.Contains(t, got["seo.links"], "broken: 1")
	require.Contains(t, got["seo.links"], "https://x.test/old")
}

func TestBuild_EmptyQueryFallsBackToCoreSections(t *testing.T) {
	t.Parallel()

	got := Build(sampleAudit(), "", 10)
	for _, key := range []string{"seo.findings", "performance.scores", "security.headers", "summary", "summary.recommendations"} {
		require.Contains(t, got, key)
	}
}

func TestBuild_RespectsLimitAndDefault(t *testing.T) {
	t.Parallel()

	require.Len(t, Build(sampleAudit(), "", 1), 1)
	got := Build(sampleAudit(), "", 0)
	require.NotEmpty(t, got)
	require.LessOrEqual(t, len(got), DefaultLimit)
}

func TestBuild_ClampsSnippets(t *testing.T) {
	t.Parallel()

	a := sampleAudit()
	a.AISummary.Summary = strings.Repeat("verylongsummary ", 200)
	got := Build(a, "give me the overall summary", 1)
	require.Contains(t, got, "summary")
	require.LessOrEqual(t, len([]rune(got["summary"])), 400)
}

func TestBuild_NilAudit(t *testing.T) {
	t.Parallel()

	require.Empty(t, Build(nil, "anything", 3))
}

func TestKeys_Sorted(t *testing.T) {
	t.Parallel()

	keys := Keys(map[string]string{"b": "2", "a": "1", "c": "3"})
	require.Equal(t, []string{"a", "b", "c"}, keys)
}
