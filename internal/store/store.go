// Package store defines the audit persistence contract.
package store

import (
	"context"
	"errors"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
)

// ErrNotFound wraps backend-internal misses. The public contract returns
// (nil, nil) for a clean miss; ErrNotFound is for callers that need to
// distinguish "missing" from "broken" inside a backend.
var ErrNotFound = errors.New("audit not found")

// Store persists finished audits and supports layered retrieval.
type Store interface {
	// Save assigns a fresh identifier, writes the full record, and returns
	// the identifier. The write must be atomic: a reader never observes a
	// partially written record.
	Save(ctx context.Context, a *audit.Audit) (string, error)

	// Get returns the audit with the exact identifier, or (nil, nil).
	Get(ctx context.Context, id string) (*audit.Audit, error)

	// FindByIDOrSite resolves an identifier through layered lookup: exact id,
	// then siteID/URL equality, then hostname match, then URL substring.
	// Returns (nil, nil) when nothing matches; it never errors on a miss.
	FindByIDOrSite(ctx context.Context, identifier string) (*audit.Audit, error)
}
