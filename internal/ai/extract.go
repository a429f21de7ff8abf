package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Urgency levels an answer can carry.
const (
	UrgencyLow    = "Low"
	UrgencyMedium = "Medium"
	UrgencyHigh   = "High"
)

const maxSuggestedActions = 5

// parsed is the provider-agnostic shape extracted from raw model output.
type parsed struct {
	Answer           string   `json:"answer"`
	Citations        []string `json:"citations"`
	SuggestedActions []string `json:"suggested_actions"`
	Urgency          string   `json:"urgency"`
}

var (
	codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	bulletRe    = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
	urgencyRe   = regexp.MustCompile(`(?i)urgency\W*(high|medium|low)`)
	// urgencyLineRe matches lines that are nothing but an urgency marker, so
	// a leading "Urgency: High" is never mistaken for the answer.
	urgencyLineRe = regexp.MustCompile(`(?i)^urgency\s*[:\-]?\s*(high|medium|low)\W*$`)
)

// extract turns raw model output into a parsed result. It tries strict JSON
// first (tolerating markdown code fences), then falls back to line
// heuristics. It always produces a usable answer when raw is non-empty.
func extract(raw string) parsed {
	raw = strings.TrimSpace(raw)

	if p, ok := tryJSON(raw); ok {
		return p
	}
	if m := codeFenceRe.FindStringSubmatch(raw); m != nil {
		if p, ok := tryJSON(strings.TrimSpace(m[1])); ok {
			return p
		}
	}
	return heuristic(raw)
}

func tryJSON(s string) (parsed, bool) {
	if !strings.HasPrefix(s, "{") {
		return parsed{}, false
	}
	var p parsed
	if err := json.Unmarshal([]byte(s), &p); err != nil || p.Answer == "" {
		return parsed{}, false
	}
	p.Urgency = normalizeUrgency(p.Urgency)
	if len(p.SuggestedActions) > maxSuggestedActions {
		p.SuggestedActions = p.SuggestedActions[:maxSuggestedActions]
	}
	return p, true
}

// heuristic: first non-empty non-bullet line is the answer, bullet or
// numbered lines are suggested actions, urgency comes from an
// "urgency: <level>" mention anywhere in the text.
func heuristic(raw string) parsed {
	p := parsed{Urgency: UrgencyLow}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := urgencyLineRe.FindStringSubmatch(line); m != nil {
			p.Urgency = normalizeUrgency(m[1])
			continue
		}
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			if len(p.SuggestedActions) < maxSuggestedActions {
				p.SuggestedActions = append(p.SuggestedActions, strings.TrimSpace(m[1]))
			}
			continue
		}
		if p.Answer == "" {
			p.Answer = line
		}
	}
	if p.Answer == "" {
		p.Answer = strings.TrimSpace(raw)
	}
	if m := urgencyRe.FindStringSubmatch(raw); m != nil {
		p.Urgency = normalizeUrgency(m[1])
	}
	return p
}

func normalizeUrgency(s string) string {
	switch {
	case strings.EqualFold(s, UrgencyHigh):
		return UrgencyHigh
	case strings.EqualFold(s, UrgencyMedium):
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
