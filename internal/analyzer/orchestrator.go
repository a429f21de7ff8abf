package analyzer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/metrics"
)

// Orchestrator runs the analyzers against one target with isolated failure
// domains: a failing analyzer degrades to an empty zero-score section and
// never aborts the audit.
type Orchestrator struct {
	content *ContentAnalyzer
	perf    *PerformanceAnalyzer
	clock   audit.Clock
	logger  *zap.Logger
}

// NewOrchestrator builds an Orchestrator.
func NewOrchestrator(content *ContentAnalyzer, perf *PerformanceAnalyzer, clock audit.Clock, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{content: content, perf: perf, clock: clock, logger: logger}
}

// Run produces a pre-persistence Audit. It always returns a record: every
// analyzer is guarded, so the worst case is all sections defaulted.
//
// Ordering: the external scoring calls run concurrently with the content
// analysis; the security analyzer runs after content, consuming its fetch
// output rather than re-fetching the target.
func (o *Orchestrator) Run(ctx context.Context, rawURL string) audit.Audit {
	siteID, err := audit.SiteID(rawURL)
	if err != nil {
		// Callers validate first; an unparsable URL here still yields a record.
		o.logger.Warn("site id derivation failed", zap.String("url", rawURL), zap.Error(err))
	}
	a := audit.Audit{
		Meta: audit.Meta{URL: rawURL, GeneratedAt: o.clock.Now(), SiteID: siteID},
	}

	perfCh := make(chan audit.Section, 1)
	go func() {
		perfCh <- o.guard("performance", func() (audit.Section, error) {
			return o.perf.Analyze(ctx, rawURL)
		})
	}()

	var content ContentResult
	a.SEO = o.guard("content", func() (audit.Section, error) {
		res, contentErr := o.content.Analyze(ctx, rawURL)
		if contentErr != nil {
			return audit.Section{}, contentErr
		}
		content = res
		return res.Section, nil
	})

	// Security consumes the content analyzer's fetch; without one there is
	// nothing to inspect and the section stays defaulted.
	if content.Fetched {
		a.Security = o.guard("security", func() (audit.Section, error) {
			return AnalyzeSecurity(content.Fetch), nil
		})
	} else {
		a.Security = audit.NewSection()
	}

	a.Performance = <-perfCh
	if content.Fetched {
		AddLatencyProxy(&a.Performance, content.Fetch.ElapsedMs)
		metrics.ObserveFetch("page", time.Duration(content.Fetch.ElapsedMs)*time.Millisecond)
		a.Raw = map[string]any{
			"status_code": content.Fetch.StatusCode,
			"final_url":   content.Fetch.FinalURL,
			"elapsed_ms":  content.Fetch.ElapsedMs,
		}
	}

	a.Normalize()
	return a
}

// guard isolates one analyzer: panics and errors both collapse to the
// defaulted section with the suppressed cause logged.
func (o *Orchestrator) guard(name string, fn func() (audit.Section, error)) (section audit.Section) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("analyzer panicked",
				zap.String("analyzer", name), zap.Any("panic", r))
			section = audit.NewSection()
		}
	}()
	s, err := fn()
	if err != nil {
		o.logger.Warn("analyzer failed, section defaulted",
			zap.String("analyzer", name), zap.Error(err))
		return audit.NewSection()
	}
	s.Normalize()
	return s
}
