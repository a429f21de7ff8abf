// Package audit defines the core record types shared across subsystems.
package audit

import "time"

// Request is a validated audit submission.
type Request struct {
	URL       string `json:"url"`
	ClientKey string `json:"-"`
}

// FetchResult captures one HTTP fetch against the target.
// Body is populated only for text-like content types; HasBody distinguishes
// "empty body" from "body not read".
type FetchResult struct {
	OK         bool              `json:"ok"`
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	FinalURL   string            `json:"final_url"`
	Body       string            `json:"-"`
	HasBody    bool              `json:"has_body"`
	ElapsedMs  int64             `json:"elapsed_ms"`
}

// Finding is one human-actionable issue reported by an analyzer.
type Finding struct {
	Title  string `json:"title"`
	Action string `json:"action"`
}

// Section is one analyzer's self-contained output. Findings is never nil.
type Section struct {
	Score    float64        `json:"score"`
	Findings []Finding      `json:"findings"`
	Raw      map[string]any `json:"raw,omitempty"`
}

// NewSection returns an empty Section honoring the non-nil Findings invariant.
func NewSection() Section {
	return Section{Findings: []Finding{}}
}

// Normalize repairs a Section so downstream consumers never null-check.
func (s *Section) Normalize() {
	if s.Findings == nil {
		s.Findings = []Finding{}
	}
}

// Meta identifies the audited site and when the audit ran.
type Meta struct {
	URL         string    `json:"url"`
	GeneratedAt time.Time `json:"generated_at"`
	SiteID      string    `json:"site_id"`
}

// Summary is the AI-generated (or deterministically synthesized) narrative.
type Summary struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

// Audit is the top-level persisted record. ID is assigned once, at
// persistence time, and is the durable primary key.
type Audit struct {
	ID          string         `json:"id"`
	Meta        Meta           `json:"meta"`
	SEO         Section        `json:"seo"`
	Performance Section        `json:"performance"`
	Security    Section        `json:"security"`
	AISummary   Summary        `json:"ai_summary"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// Normalize enforces the section invariants on a freshly built or decoded record.
func (a *Audit) Normalize() {
	a.SEO.Normalize()
	a.Performance.Normalize()
	a.Security.Normalize()
	if a.AISummary.Recommendations == nil {
		a.AISummary.Recommendations = []string{}
	}
}
