// Package analyzer implements the audit analyzers and their orchestration.
package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/fetch"
)

// ContentResult bundles the SEO section with the underlying fetch, which the
// security analyzer consumes instead of re-fetching the target.
type ContentResult struct {
	Section audit.Section
	Fetch   audit.FetchResult
	Fetched bool
}

// ContentAnalyzer inspects the page markup: head metadata, heading
// structure, image alts, robots/sitemap presence, and internal link health.
type ContentAnalyzer struct {
	fetcher *fetch.Fetcher
	sweep   *LinkSweep
	logger  *zap.Logger
}

// NewContentAnalyzer builds a ContentAnalyzer. sweep may be nil to disable
// the link health check.
func NewContentAnalyzer(fetcher *fetch.Fetcher, sweep *LinkSweep, logger *zap.Logger) *ContentAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentAnalyzer{fetcher: fetcher, sweep: sweep, logger: logger}
}

// Analyze fetches the page and produces the SEO section.
func (a *ContentAnalyzer) Analyze(ctx context.Context, rawURL string) (ContentResult, error) {
	res, err := a.fetcher.Fetch(ctx, rawURL, fetch.Options{})
	if err != nil {
		return ContentResult{}, fmt.Errorf("fetch page: %w", err)
	}
	out := ContentResult{Fetch: res, Fetched: true, Section: audit.NewSection()}
	if !res.OK {
		out.Section.Findings = append(out.Section.Findings, audit.Finding{
			Title:  fmt.Sprintf("Page returned HTTP %d", res.StatusCode),
			Action: "Make the audited URL respond with a successful status",
		})
		out.Section.Raw = map[string]any{"status_code": res.StatusCode}
		return out, nil
	}
	if !res.HasBody {
		out.Section.Findings = append(out.Section.Findings, audit.Finding{
			Title:  "Page is not an HTML document",
			Action: "Point the audit at an HTML page",
		})
		return out, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
	if err != nil {
		return out, fmt.Errorf("parse html: %w", err)
	}

	page := inspectMarkup(doc)
	findings := page.findings()
	score := page.score()

	robots, sitemap := a.probeWellKnown(ctx, rawURL)
	if !robots {
		findings = append(findings, audit.Finding{
			Title:  "robots.txt not found",
			Action: "Serve a robots.txt so crawlers know what to index",
		})
		score -= 5
	}
	if !sitemap {
		findings = append(findings, audit.Finding{
			Title:  "sitemap.xml not found",
			Action: "Publish a sitemap.xml and reference it from robots.txt",
		})
		score -= 5
	}

	raw := page.raw()
	raw["robots_txt"] = robots
	raw["sitemap_xml"] = sitemap

	if a.sweep != nil {
		links := internalLinks(doc, res.FinalURL)
		report := a.sweep.Check(ctx, links)
		raw["links_checked"] = report.Checked
		raw["links_broken"] = len(report.Broken)
		for _, b := range report.Broken {
			findings = append(findings, audit.Finding{
				Title:  fmt.Sprintf("Broken internal link: %s (%s)", b.URL, b.Reason),
				Action: "Fix or remove the broken link",
			})
		}
		if len(report.Broken) > 0 {
			score -= 5 * len(report.Broken)
		}
	}

	if score < 0 {
		score = 0
	}
	out.Section = audit.Section{Score: float64(score), Findings: findings, Raw: raw}
	out.Section.Normalize()
	return out, nil
}

// probeWellKnown checks robots.txt and sitemap.xml existence with HEAD
// requests against the site root.
func (a *ContentAnalyzer) probeWellKnown(ctx context.Context, rawURL string) (robots, sitemap bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false, false
	}
	base := u.Scheme + "://" + u.Host
	robots = a.exists(ctx, base+"/robots.txt")
	sitemap = a.exists(ctx, base+"/sitemap.xml")
	return robots, sitemap
}

func (a *ContentAnalyzer) exists(ctx context.Context, probeURL string) bool {
	res, err := a.fetcher.Fetch(ctx, probeURL, fetch.Options{Method: http.MethodHead})
	if err != nil {
		a.logger.Debug("well-known probe failed", zap.String("url", probeURL), zap.Error(err))
		return false
	}
	return res.OK
}

// pageFacts is what the markup inspection extracts before scoring.
type pageFacts struct {
	title           string
	metaDescription string
	canonical       string
	h1Count         int
	h2Count         int
	h3Count         int
	h1Texts         []string
	images          int
	imagesWithAlt   int
	wordCount       int
}

func inspectMarkup(doc *goquery.Document) pageFacts {
	var f pageFacts
	f.title = strings.TrimSpace(doc.Find("head title").First().Text())
	if desc, ok := doc.Find(`head meta[name="description"]`).First().Attr("content"); ok {
		f.metaDescription = strings.TrimSpace(desc)
	}
	if canon, ok := doc.Find(`head link[rel="canonical"]`).First().Attr("href"); ok {
		f.canonical = strings.TrimSpace(canon)
	}
	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		f.h1Count++
		if t := strings.TrimSpace(s.Text()); t != "" && len(f.h1Texts) < 5 {
			f.h1Texts = append(f.h1Texts, t)
		}
	})
	f.h2Count = doc.Find("h2").Length()
	f.h3Count = doc.Find("h3").Length()
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		f.images++
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			f.imagesWithAlt++
		}
	})
	f.wordCount = len(strings.Fields(doc.Find("body").Text()))
	return f
}

func (f pageFacts) findings() []audit.Finding {
	findings := []audit.Finding{}
	if f.title == "" {
		findings = append(findings, audit.Finding{
			Title:  "Missing page title",
			Action: "Add a descriptive <title> under 60 characters",
		})
	} else if len(f.title) > 60 {
		findings = append(findings, audit.Finding{
			Title:  "Page title is too long",
			Action: "Shorten the <title> to 60 characters or fewer",
		})
	}
	if f.metaDescription == "" {
		findings = append(findings, audit.Finding{
			Title:  "Missing meta description",
			Action: "Add a meta description under 160 characters",
		})
	} else if len(f.metaDescription) > 160 {
		findings = append(findings, audit.Finding{
			Title:  "Meta description is too long",
			Action: "Shorten the meta description to 160 characters or fewer",
		})
	}
	switch {
	case f.h1Count == 0:
		findings = append(findings, audit.Finding{
			Title:  "No H1 heading",
			Action: "Add exactly one H1 describing the page",
		})
	case f.h1Count > 1:
		findings = append(findings, audit.Finding{
			Title:  fmt.Sprintf("%d H1 headings found", f.h1Count),
			Action: "Keep a single H1 per page",
		})
	}
	if f.canonical == "" {
		findings = append(findings, audit.Finding{
			Title:  "Missing canonical link",
			Action: `Add <link rel="canonical"> to avoid duplicate-content penalties`,
		})
	}
	if f.images > 0 && f.imagesWithAlt < f.images {
		findings = append(findings, audit.Finding{
			Title:  fmt.Sprintf("%d of %d images missing alt text", f.images-f.imagesWithAlt, f.images),
			Action: "Add alt attributes to all meaningful images",
		})
	}
	if f.wordCount < 150 {
		findings = append(findings, audit.Finding{
			Title:  "Thin content",
			Action: "Add substantive copy; pages under ~150 words rank poorly",
		})
	}
	return findings
}

// score is the content analyzer's own SEO estimate; the orchestrator adopts
// it unchanged.
func (f pageFacts) score() int {
	score := 100
	if f.title == "" {
		score -= 15
	} else if len(f.title) > 60 {
		score -= 5
	}
	if f.metaDescription == "" {
		score -= 15
	} else if len(f.metaDescription) > 160 {
		score -= 5
	}
	if f.h1Count != 1 {
		score -= 10
	}
	if f.canonical == "" {
		score -= 5
	}
	if f.images > 0 && f.imagesWithAlt < f.images {
		score -= 5
	}
	if f.wordCount < 150 {
		score -= 10
	}
	return score
}

func (f pageFacts) raw() map[string]any {
	return map[string]any{
		"title":            f.title,
		"meta_description": f.metaDescription,
		"canonical":        f.canonical,
		"h1_count":         f.h1Count,
		"h2_count":         f.h2Count,
		"h3_count":         f.h3Count,
		"h1_texts":         f.h1Texts,
		"images":           f.images,
		"images_with_alt":  f.imagesWithAlt,
		"word_count":       f.wordCount,
	}
}

// internalLinks collects unique same-host absolute links from the document.
func internalLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Host != base.Host || (abs.Scheme != "http" && abs.Scheme != "https") {
			return
		}
		abs.Fragment = ""
		key := abs.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, key)
	})
	return links
}
