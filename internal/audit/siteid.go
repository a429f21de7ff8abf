package audit

import (
	"fmt"
	"net/url"
	"strings"
)

// SiteID derives the site identifier for an audited URL: the host with the
// scheme stripped, lowercased, default ports removed. It is not unique;
// multiple audits of the same site share a SiteID.
func SiteID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		// Bare "example.com/path" parses with an empty Host.
		host = strings.ToLower(strings.SplitN(u.Path, "/", 2)[0])
	}
	switch u.Scheme {
	case "http":
		host = strings.TrimSuffix(host, ":80")
	case "https":
		host = strings.TrimSuffix(host, ":443")
	}
	if host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return host, nil
}

// Hostname returns the port-free host of a URL, lowercased. Used by the
// store's layered lookup for host-level matching.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
