package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/metrics"
)

// PageSpeedConfig configures the external speed-scoring client.
type PageSpeedConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// PageSpeedClient queries the speed-scoring service for one device strategy.
type PageSpeedClient struct {
	cfg    PageSpeedConfig
	client *http.Client
}

// NewPageSpeedClient builds the client. httpClient may be nil.
func NewPageSpeedClient(cfg PageSpeedConfig, httpClient *http.Client) *PageSpeedClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &PageSpeedClient{cfg: cfg, client: httpClient}
}

// Enabled reports whether a service key is configured.
func (p *PageSpeedClient) Enabled() bool {
	return p.cfg.APIKey != ""
}

type pagespeedResponse struct {
	LighthouseResult struct {
		Categories struct {
			Performance struct {
				Score float64 `json:"score"`
			} `json:"performance"`
		} `json:"categories"`
	} `json:"lighthouseResult"`
}

// Score fetches the 0-100 performance score for one strategy
// ("mobile" or "desktop").
func (p *PageSpeedClient) Score(ctx context.Context, target, strategy string) (float64, error) {
	if !p.Enabled() {
		return 0, fmt.Errorf("scoring service key not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("url", target)
	q.Set("strategy", strategy)
	q.Set("category", "performance")
	q.Set("key", p.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build scoring request: %w", err)
	}
	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scoring call (%s): %w", strategy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.ObserveFetch("pagespeed", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scoring service returned %d for %s", resp.StatusCode, strategy)
	}
	var payload pagespeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode scoring response: %w", err)
	}
	return payload.LighthouseResult.Categories.Performance.Score * 100, nil
}

// PerformanceAnalyzer combines the local fetch latency proxy with the
// external scoring service's mobile and desktop profiles.
type PerformanceAnalyzer struct {
	pagespeed *PageSpeedClient
	logger    *zap.Logger
}

// NewPerformanceAnalyzer builds a PerformanceAnalyzer.
func NewPerformanceAnalyzer(pagespeed *PageSpeedClient, logger *zap.Logger) *PerformanceAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceAnalyzer{pagespeed: pagespeed, logger: logger}
}

// Analyze queries both device profiles concurrently. A failed or disabled
// scoring call degrades to findings; it never errors the section. The
// section score averages the device scores that are present, else zero.
func (a *PerformanceAnalyzer) Analyze(ctx context.Context, target string) (audit.Section, error) {
	section := audit.NewSection()
	raw := map[string]any{}

	var mobile, desktop float64
	var mobileOK, desktopOK bool

	if a.pagespeed != nil && a.pagespeed.Enabled() {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			score, err := a.pagespeed.Score(gctx, target, "mobile")
			if err != nil {
				a.logger.Warn("mobile scoring failed", zap.Error(err))
				return nil
			}
			mobile, mobileOK = score, true
			return nil
		})
		g.Go(func() error {
			score, err := a.pagespeed.Score(gctx, target, "desktop")
			if err != nil {
				a.logger.Warn("desktop scoring failed", zap.Error(err))
				return nil
			}
			desktop, desktopOK = score, true
			return nil
		})
		_ = g.Wait()
	} else {
		section.Findings = append(section.Findings, audit.Finding{
			Title:  "Speed scoring service not configured",
			Action: "Set a scoring service API key for lab performance scores",
		})
	}

	switch {
	case mobileOK && desktopOK:
		section.Score = (mobile + desktop) / 2
		raw["mobile_score"] = mobile
		raw["desktop_score"] = desktop
	case mobileOK:
		section.Score = mobile
		raw["mobile_score"] = mobile
	case desktopOK:
		section.Score = desktop
		raw["desktop_score"] = desktop
	default:
		section.Score = 0
	}

	if mobileOK && mobile < 50 {
		section.Findings = append(section.Findings, audit.Finding{
			Title:  fmt.Sprintf("Poor mobile performance score (%.0f)", mobile),
			Action: "Reduce render-blocking resources and image weight on mobile",
		})
	}
	if desktopOK && desktop < 50 {
		section.Findings = append(section.Findings, audit.Finding{
			Title:  fmt.Sprintf("Poor desktop performance score (%.0f)", desktop),
			Action: "Audit large scripts and third-party tags on desktop",
		})
	}

	section.Raw = raw
	return section, nil
}

// AddLatencyProxy folds the orchestrator's own fetch latency into the
// section after the page fetch completes.
func AddLatencyProxy(section *audit.Section, elapsedMs int64) {
	if section.Raw == nil {
		section.Raw = map[string]any{}
	}
	section.Raw["fetch_latency_ms"] = elapsedMs
	if elapsedMs > 3000 {
		section.Findings = append(section.Findings, audit.Finding{
			Title:  fmt.Sprintf("Slow server response (%dms to first byte)", elapsedMs),
			Action: "Investigate server-side latency; responses above 3s lose visitors",
		})
	}
}
