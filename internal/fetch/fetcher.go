// Package fetch implements the timeout-bounded HTTP probe that sits between
// validated user input and the network.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
)

// ErrTimeout marks a fetch aborted by its deadline.
var ErrTimeout = errors.New("fetch timed out")

// Config controls fetcher behavior.
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	// Transport overrides the default pooled transport, mainly for tests.
	Transport http.RoundTripper
}

// Fetcher performs single timeout-bounded HTTP requests. HTTP error statuses
// (4xx/5xx) are valid results; only network failures and timeouts error.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	timeout      time.Duration
	maxBodyBytes int64
}

// Options tunes one fetch call.
type Options struct {
	Method  string
	Headers map[string]string
	// Timeout overrides the configured default for this call.
	Timeout time.Duration
}

// New builds a Fetcher with a pooled transport.
func New(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody == 0 {
		maxBody = 2 << 20
	}
	transport := cfg.Transport
	if transport == nil {
		transport = NewTransport()
	}
	return &Fetcher{
		client:       &http.Client{Transport: transport},
		userAgent:    cfg.UserAgent,
		timeout:      timeout,
		maxBodyBytes: maxBody,
	}
}

// NewTransport builds the pooled transport shared by the fetcher and the
// link sweep collector.
func NewTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 64
	t.MaxIdleConnsPerHost = 8
	t.IdleConnTimeout = 30 * time.Second
	t.TLSHandshakeTimeout = 10 * time.Second
	return t
}

// Client exposes the underlying HTTP client for collaborators that need the
// same pooling (the performance analyzer's scoring calls).
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch issues one request. The request runs under the sooner of the
// caller's deadline and the configured timeout: a tight caller deadline
// wins, a loose one (a whole-request middleware deadline) still leaves the
// per-fetch bound armed. ElapsedMs covers request start to response headers
// received.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts Options) (audit.FetchResult, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.timeout
	}
	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return audit.FetchResult{}, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return audit.FetchResult{}, fmt.Errorf("%w after %dms: %s", ErrTimeout, elapsed, rawURL)
		}
		return audit.FetchResult{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	result := audit.FetchResult{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 400,
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		FinalURL:   resp.Request.URL.String(),
		ElapsedMs:  elapsed,
	}

	if method != http.MethodHead && isTextLike(resp.Header.Get("Content-Type")) {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
		if readErr != nil {
			if errors.Is(readErr, context.DeadlineExceeded) {
				return audit.FetchResult{}, fmt.Errorf("%w reading body: %s", ErrTimeout, rawURL)
			}
			return audit.FetchResult{}, fmt.Errorf("read body %s: %w", rawURL, readErr)
		}
		result.Body = string(body)
		result.HasBody = true
	}

	return result, nil
}

// isTextLike gates body reads so arbitrary binary responses never land in
// memory as report material.
func isTextLike(contentType string) bool {
	ct := strings.ToLower(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)
	switch {
	case strings.HasPrefix(ct, "text/"):
		return true
	case ct == "application/json", ct == "application/xml":
		return true
	case strings.HasSuffix(ct, "+json"), strings.HasSuffix(ct, "+xml"):
		return true
	case ct == "application/xhtml+xml":
		return true
	}
	return false
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		if len(vals) > 0 {
			out[strings.ToLower(k)] = strings.Join(vals, ", ")
		}
	}
	return out
}
