// Package safeurl guards outbound fetches against SSRF: it resolves a
// user-supplied URL and rejects targets that land on internal address space.
package safeurl

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// LookupFunc resolves a hostname to all its known addresses, both families.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// Config controls resolver policy.
type Config struct {
	// FailClosed treats DNS resolution failure as Disallowed. The default
	// fails open with a logged warning: a transient NXDOMAIN on a public
	// name must not become a denial-of-service vector.
	FailClosed bool
}

// Resolver validates URLs and classifies their resolved addresses.
type Resolver struct {
	lookup     LookupFunc
	failClosed bool
	logger     *zap.Logger
}

// Verdict is the outcome of a safety check. It is never persisted.
type Verdict struct {
	URL        string
	Hostname   string
	Addresses  []netip.Addr
	Disallowed bool
	// Reason names the first disallowed address when Disallowed is true.
	Reason string
}

// New builds a Resolver backed by the system DNS resolver.
func New(cfg Config, logger *zap.Logger) *Resolver {
	return NewWithLookup(cfg, logger, func(ctx context.Context, host string) ([]netip.Addr, error) {
		addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", host, err)
		}
		return addrs, nil
	})
}

// NewWithLookup builds a Resolver with an injected lookup, for tests.
func NewWithLookup(cfg Config, logger *zap.Logger, lookup LookupFunc) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{lookup: lookup, failClosed: cfg.FailClosed, logger: logger}
}

// Check parses rawURL, resolves its hostname, and classifies every resolved
// address. If any address is disallowed the whole verdict is Disallowed:
// a DNS answer mixing a public decoy with a private address must not pass.
func (r *Resolver) Check(ctx context.Context, rawURL string) (Verdict, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Verdict{}, fmt.Errorf("parse url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return Verdict{}, fmt.Errorf("no hostname in %q", rawURL)
	}
	v := Verdict{URL: rawURL, Hostname: host}

	// Literal IP hosts classify directly, no DNS round trip.
	if addr, parseErr := netip.ParseAddr(strings.Trim(host, "[]")); parseErr == nil {
		v.Addresses = []netip.Addr{addr}
		r.classify(&v)
		return v, nil
	}

	addrs, err := r.lookup(ctx, host)
	if err != nil {
		if r.failClosed {
			v.Disallowed = true
			v.Reason = fmt.Sprintf("resolution failed (fail-closed): %v", err)
			return v, nil
		}
		// Fail-open: resolution failure is not proof of safety, but the
		// fetch that follows will fail on the same lookup anyway.
		r.logger.Warn("hostname resolution failed, failing open",
			zap.String("host", host), zap.Error(err))
		return v, nil
	}
	v.Addresses = addrs
	r.classify(&v)
	return v, nil
}

func (r *Resolver) classify(v *Verdict) {
	for _, addr := range v.Addresses {
		if bad, why := isDisallowed(addr); bad {
			v.Disallowed = true
			v.Reason = fmt.Sprintf("%s is %s", addr, why)
			return
		}
	}
}

// cgnat is the shared address space of RFC 6598 (carrier-grade NAT).
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

// isDisallowed classifies one resolved address. IPv4-mapped IPv6 addresses
// are unwrapped so ::ffff:10.0.0.5 is judged as 10.0.0.5.
func isDisallowed(addr netip.Addr) (bool, string) {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid():
		return true, "invalid"
	case addr.IsUnspecified():
		return true, "unspecified"
	case addr.IsLoopback():
		return true, "loopback"
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return true, "link-local"
	case addr.IsPrivate():
		// Covers RFC1918 for IPv4 and unique-local fc00::/7 for IPv6.
		return true, "private"
	case addr.Is4() && cgnat.Contains(addr):
		return true, "shared address space"
	}
	return false, ""
}
