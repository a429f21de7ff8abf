package analyzer

import (
	"fmt"
	"strings"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
)

// securityHeaders are checked in order; each missing one is a finding.
var securityHeaders = []struct {
	header    string
	httpsOnly bool
	action    string
}{
	{"strict-transport-security", true, "Add Strict-Transport-Security to pin browsers to HTTPS"},
	{"content-security-policy", false, "Define a Content-Security-Policy to limit script sources"},
	{"x-content-type-options", false, "Set X-Content-Type-Options: nosniff"},
	{"x-frame-options", false, "Set X-Frame-Options (or a frame-ancestors CSP directive)"},
	{"referrer-policy", false, "Set a Referrer-Policy to avoid leaking URLs to third parties"},
	{"permissions-policy", false, "Set a Permissions-Policy to disable unused browser features"},
}

// AnalyzeSecurity inspects the already-fetched response; it performs no
// network calls of its own. Score is 100 minus 8 per finding, floored at 0.
func AnalyzeSecurity(res audit.FetchResult) audit.Section {
	section := audit.NewSection()
	isHTTPS := strings.HasPrefix(strings.ToLower(res.FinalURL), "https://")

	for _, check := range securityHeaders {
		if check.httpsOnly && !isHTTPS {
			continue
		}
		if _, present := res.Headers[check.header]; !present {
			section.Findings = append(section.Findings, audit.Finding{
				Title:  fmt.Sprintf("Missing %s header", canonicalHeader(check.header)),
				Action: check.action,
			})
		}
	}

	if !isHTTPS {
		section.Findings = append(section.Findings, audit.Finding{
			Title:  "Site served over plain HTTP",
			Action: "Serve the site over HTTPS and redirect HTTP traffic",
		})
	}

	for _, disclosure := range []string{"server", "x-powered-by"} {
		if v, present := res.Headers[disclosure]; present && v != "" {
			section.Findings = append(section.Findings, audit.Finding{
				Title:  fmt.Sprintf("%s header discloses %q", canonicalHeader(disclosure), v),
				Action: "Strip version-revealing headers at the edge",
			})
		}
	}

	if isHTTPS && res.HasBody && hasMixedContent(res.Body) {
		section.Findings = append(section.Findings, audit.Finding{
			Title:  "Mixed content: insecure http:// resources on an HTTPS page",
			Action: "Load all scripts, styles, and images over HTTPS",
		})
	}

	score := 100 - 8*len(section.Findings)
	if score < 0 {
		score = 0
	}
	section.Score = float64(score)
	section.Raw = map[string]any{"findings_count": len(section.Findings)}
	return section
}

// hasMixedContent looks for http:// subresource loads. Anchor hrefs are
// navigation, not mixed content, so only src attributes count.
func hasMixedContent(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, `src="http://`) ||
		strings.Contains(lower, `src='http://`)
}

func canonicalHeader(h string) string {
	parts := strings.Split(h, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "-")
}
