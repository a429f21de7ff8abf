// Package evidence selects audit snippets relevant to a user question. The
// AI chain receives only these snippets, never the raw record.
package evidence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
)

// DefaultLimit caps the number of snippets when the caller does not choose.
const DefaultLimit = 6

// snippetRunes bounds each snippet so provider prompts stay small.
const snippetRunes = 400

type snippet struct {
	key  string
	text string
	// terms this snippet answers for, matched against the query.
	terms []string
}

// Build returns up to limit snippets keyed by stable names. Selection order:
// snippets whose terms match the query, then the fixed core sections, then
// the summary fields. The result is never empty for a populated audit.
func Build(a *audit.Audit, query string, limit int) map[string]string {
	if a == nil {
		return map[string]string{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	all := collect(a)
	q := strings.ToLower(query)

	out := make(map[string]string, limit)
	add := func(s snippet) {
		if len(out) >= limit || s.text == "" {
			return
		}
		if _, dup := out[s.key]; dup {
			return
		}
		out[s.key] = clamp(s.text)
	}

	if q != "" {
		for _, s := range all {
			for _, term := range s.terms {
				if strings.Contains(q, term) {
					add(s)
					break
				}
			}
		}
	}
	// Core sections back-fill whatever the keyword pass left open.
	for _, key := range []string{"seo.findings", "performance.scores", "security.headers"} {
		for _, s := range all {
			if s.key == key {
				add(s)
			}
		}
	}
	for _, s := range all {
		if s.key == "summary" || s.key == "summary.recommendations" {
			add(s)
		}
	}
	return out
}

// Keys returns the sorted key set, the citation universe for answers.
func Keys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func collect(a *audit.Audit) []snippet {
	return []snippet{
		{
			key:   "seo.findings",
			text:  renderSection("SEO", a.SEO),
			terms: []string{"seo", "title", "meta", "description", "heading", "h1", "canonical", "content", "sitemap", "robots", "rank", "search"},
		},
		{
			key:   "seo.links",
			text:  renderLinks(a.SEO),
			terms: []string{"link", "broken", "404"},
		},
		{
			key:   "performance.scores",
			text:  renderSection("Performance", a.Performance),
			terms: []string{"performance", "speed", "slow", "fast", "latency", "vitals", "load", "mobile", "desktop"},
		},
		{
			key:   "security.headers",
			text:  renderSection("Security", a.Security),
			terms: []string{"security", "header", "https", "ssl", "tls", "csp", "hsts", "secure", "vulnerab"},
		},
		{
			key:   "summary",
			text:  a.AISummary.Summary,
			terms: []string{"summary", "overview", "overall"},
		},
		{
			key:   "summary.recommendations",
			text:  strings.Join(a.AISummary.Recommendations, "\n"),
			terms: []string{"recommend", "fix", "improve", "action", "next"},
		},
	}
}

func renderSection(name string, s audit.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s score: %.0f/100.", name, s.Score)
	for _, f := range s.Findings {
		fmt.Fprintf(&b, "\n- %s (%s)", f.Title, f.Action)
	}
	return b.String()
}

// renderLinks surfaces the link-health counters when the sweep ran.
func renderLinks(s audit.Section) string {
	checked, ok := s.Raw["links_checked"]
	if !ok {
		return ""
	}
	broken := s.Raw["links_broken"]
	var b strings.Builder
	fmt.Fprintf(&b, "Internal links checked: %v, broken: %v.", checked, broken)
	for _, f := range s.Findings {
		if strings.Contains(f.Title, "Broken internal link") {
			fmt.Fprintf(&b, "\n- %s", f.Title)
		}
	}
	return b.String()
}

func clamp(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetRunes {
		return s
	}
	return string(runes[:snippetRunes])
}
