package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/evidence"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/metrics"
)

// Answer is the chain's response to a follow-up question. Citations is a
// subset of the evidence keys the answer drew from.
type Answer struct {
	Answer           string   `json:"answer"`
	Citations        []string `json:"citations"`
	SuggestedActions []string `json:"suggested_actions"`
	Urgency          string   `json:"urgency"`
}

// Chain tries providers in order and synthesizes deterministically when all
// of them fail. It never returns an error to callers.
type Chain struct {
	providers []Provider
	timeout   time.Duration
	logger    *zap.Logger
}

// NewChain builds a Chain. Nil providers are skipped so constructors for
// disabled backends can be passed straight through.
func NewChain(providers []Provider, timeout time.Duration, logger *zap.Logger) *Chain {
	if timeout == 0 {
		timeout = 25 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	enabled := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			enabled = append(enabled, p)
		}
	}
	return &Chain{providers: enabled, timeout: timeout, logger: logger}
}

// Providers reports the enabled provider names in priority order.
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

const answerSystemPrompt = `You are a website audit assistant. Answer using only the
provided evidence snippets. Respond as JSON with keys "answer" (string),
"citations" (array of evidence keys you used), "suggested_actions" (array of
strings, at most 5) and "urgency" (Low, Medium or High).`

// AnswerQuestion answers a follow-up question against the given evidence.
func (c *Chain) AnswerQuestion(ctx context.Context, ev map[string]string, query string) Answer {
	keys := evidence.Keys(ev)

	var sb strings.Builder
	sb.WriteString("Evidence:\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", k, ev[k])
	}
	fmt.Fprintf(&sb, "Question: %s", query)

	raw, ok := c.generate(ctx, answerSystemPrompt, sb.String())
	if !ok {
		return fallbackAnswer(ev, keys)
	}

	p := extract(raw)
	ans := Answer{
		Answer:           p.Answer,
		Citations:        intersect(p.Citations, keys),
		SuggestedActions: p.SuggestedActions,
		Urgency:          p.Urgency,
	}
	if ans.Urgency == "" {
		ans.Urgency = UrgencyLow
	}
	if len(ans.Citations) == 0 {
		// The model cited nothing usable; every snippet was in the prompt.
		ans.Citations = keys
	}
	if ans.SuggestedActions == nil {
		ans.SuggestedActions = []string{}
	}
	return ans
}

const summarySystemPrompt = `You are a website audit assistant. Given section scores
and findings, write a short plain-language report. Respond as JSON with keys
"answer" (2-4 sentence overall summary) and "suggested_actions" (the most
important fixes, at most 5 strings).`

// Summarize produces the narrative stored with the audit.
func (c *Chain) Summarize(ctx context.Context, a *audit.Audit) audit.Summary {
	ev := evidence.Build(a, "", evidence.DefaultLimit)
	keys := evidence.Keys(ev)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Audit of %s\n\n", a.Meta.URL)
	for _, k := range keys {
		if strings.HasPrefix(k, "summary") {
			continue
		}
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", k, ev[k])
	}

	if raw, ok := c.generate(ctx, summarySystemPrompt, sb.String()); ok {
		p := extract(raw)
		if p.Answer != "" {
			recs := p.SuggestedActions
			if recs == nil {
				recs = []string{}
			}
			return audit.Summary{Summary: p.Answer, Recommendations: recs}
		}
	}
	return fallbackSummary(a)
}

// generate walks the provider chain. Each failure logs, counts a failover,
// and advances to the next provider.
func (c *Chain) generate(ctx context.Context, system, user string) (string, bool) {
	for _, p := range c.providers {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		raw, err := p.Generate(callCtx, system, user)
		cancel()
		if err != nil {
			c.logger.Warn("provider failed, advancing chain",
				zap.String("provider", p.Name()), zap.Error(err))
			metrics.ObserveAIFailover(p.Name())
			continue
		}
		return raw, true
	}
	return "", false
}

// Marker terms the deterministic fallback scans the evidence for.
var fallbackSignals = []struct {
	markers []string
	action  string
	urgent  bool
}{
	{[]string{"broken internal link"}, "Fix or remove the broken internal links", true},
	{[]string{"poor mobile performance", "poor desktop performance", "slow server response", "core web vital"}, "Improve page speed: compress images and cut render-blocking scripts", true},
	{[]string{"missing strict-transport-security", "missing content-security-policy", "missing x-content-type-options", "missing x-frame-options", "missing referrer-policy", "missing permissions-policy"}, "Add the missing security response headers", false},
	{[]string{"plain http"}, "Serve the site over HTTPS", false},
	{[]string{"missing meta description", "missing page title", "thin content"}, "Fill in the missing SEO metadata", false},
}

// fallbackAnswer synthesizes a response from the evidence alone.
func fallbackAnswer(ev map[string]string, keys []string) Answer {
	var joined strings.Builder
	for _, k := range keys {
		joined.WriteString(strings.ToLower(ev[k]))
		joined.WriteString("\n")
	}
	text := joined.String()

	ans := Answer{
		Citations:        keys,
		SuggestedActions: []string{},
		Urgency:          UrgencyLow,
	}
	for _, sig := range fallbackSignals {
		for _, m := range sig.markers {
			if strings.Contains(text, m) {
				ans.SuggestedActions = append(ans.SuggestedActions, sig.action)
				if sig.urgent {
					ans.Urgency = UrgencyMedium
				}
				break
			}
		}
		if len(ans.SuggestedActions) >= maxSuggestedActions {
			break
		}
	}

	switch {
	case len(ans.SuggestedActions) > 0:
		ans.Answer = fmt.Sprintf("Based on the audit evidence, %d issue area(s) stand out. See the suggested actions and cited sections.", len(ans.SuggestedActions))
	case len(keys) > 0:
		ans.Answer = "The audit evidence shows no notable issues for this question. See the cited sections for details."
	default:
		ans.Answer = "No audit evidence is available to answer this question."
		ans.Citations = []string{}
	}
	return ans
}

// fallbackSummary writes the stored narrative without any provider.
func fallbackSummary(a *audit.Audit) audit.Summary {
	var parts []string
	parts = append(parts, fmt.Sprintf("SEO scored %.0f/100 with %d finding(s).", a.SEO.Score, len(a.SEO.Findings)))
	parts = append(parts, fmt.Sprintf("Performance scored %.0f/100 with %d finding(s).", a.Performance.Score, len(a.Performance.Findings)))
	parts = append(parts, fmt.Sprintf("Security scored %.0f/100 with %d finding(s).", a.Security.Score, len(a.Security.Findings)))

	recs := []string{}
	for _, section := range []audit.Section{a.Security, a.Performance, a.SEO} {
		for _, f := range section.Findings {
			if f.Action == "" {
				continue
			}
			recs = append(recs, f.Action)
			if len(recs) >= maxSuggestedActions {
				break
			}
		}
		if len(recs) >= maxSuggestedActions {
			break
		}
	}
	return audit.Summary{Summary: strings.Join(parts, " "), Recommendations: recs}
}

func intersect(cited, valid []string) []string {
	set := make(map[string]struct{}, len(valid))
	for _, k := range valid {
		set[k] = struct{}{}
	}
	out := []string{}
	for _, k := range cited {
		if _, ok := set[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
