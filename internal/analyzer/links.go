package analyzer

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// SweepConfig bounds the link health check.
type SweepConfig struct {
	MaxLinks    int
	Parallelism int
	Timeout     time.Duration
	UserAgent   string
	// Transport lets the sweep share the fetcher's pooled transport.
	Transport http.RoundTripper
}

// BrokenLink is one internal link that failed its health check.
type BrokenLink struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Reason     string `json:"reason"`
}

// LinkReport summarizes a sweep.
type LinkReport struct {
	Checked int
	Broken  []BrokenLink
}

// LinkSweep checks internal links with a parallelism-capped colly collector.
// Links are probed with HEAD first; targets answering 405/501 are retried
// with GET.
type LinkSweep struct {
	cfg    SweepConfig
	logger *zap.Logger
}

// NewLinkSweep builds a LinkSweep.
func NewLinkSweep(cfg SweepConfig, logger *zap.Logger) *LinkSweep {
	if cfg.MaxLinks == 0 {
		cfg.MaxLinks = 20
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = 4
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkSweep{cfg: cfg, logger: logger}
}

// Check probes at most MaxLinks of the given links and reports the broken
// ones. A canceled context skips the sweep entirely.
func (s *LinkSweep) Check(ctx context.Context, links []string) LinkReport {
	if len(links) == 0 || ctx.Err() != nil {
		return LinkReport{}
	}
	if len(links) > s.cfg.MaxLinks {
		links = links[:s.cfg.MaxLinks]
	}

	c := colly.NewCollector(
		colly.Async(true),
		colly.AllowURLRevisit(),
	)
	// All statuses flow through OnResponse; OnError is transport-only.
	c.ParseHTTPErrorResponse = true
	// The sweep stays on the audited site, robots consultation would double
	// the request count for no signal.
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(s.cfg.Timeout)
	if s.cfg.UserAgent != "" {
		c.UserAgent = s.cfg.UserAgent
	}
	if s.cfg.Transport != nil {
		c.WithTransport(s.cfg.Transport)
	}
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: s.cfg.Parallelism}); err != nil {
		s.logger.Warn("sweep limit rule rejected", zap.Error(err))
	}

	var mu sync.Mutex
	broken := make(map[string]BrokenLink)
	retried := make(map[string]bool)

	c.OnResponse(func(r *colly.Response) {
		link := r.Request.URL.String()
		if r.StatusCode < 400 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if r.Request.Method == http.MethodHead &&
			(r.StatusCode == http.StatusMethodNotAllowed || r.StatusCode == http.StatusNotImplemented) &&
			!retried[link] {
			retried[link] = true
			mu.Unlock()
			// Fallback to the heavier method for servers that refuse HEAD.
			err := c.Visit(link)
			mu.Lock()
			if err != nil {
				broken[link] = BrokenLink{URL: link, StatusCode: r.StatusCode, Reason: "HEAD refused, GET retry failed"}
			}
			return
		}
		broken[link] = BrokenLink{URL: link, StatusCode: r.StatusCode, Reason: http.StatusText(r.StatusCode)}
	})

	c.OnError(func(r *colly.Response, err error) {
		link := r.Request.URL.String()
		mu.Lock()
		defer mu.Unlock()
		broken[link] = BrokenLink{URL: link, Reason: err.Error()}
	})

	for _, link := range links {
		if err := c.Head(link); err != nil {
			mu.Lock()
			broken[link] = BrokenLink{URL: link, Reason: err.Error()}
			mu.Unlock()
		}
	}
	c.Wait()

	report := LinkReport{Checked: len(links)}
	mu.Lock()
	for _, link := range links {
		if b, bad := broken[link]; bad {
			report.Broken = append(report.Broken, b)
		}
	}
	mu.Unlock()
	return report
}
