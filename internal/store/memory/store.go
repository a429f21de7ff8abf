// Package memory provides an in-memory audit store for development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
)

// Store keeps audit records in a mutex-guarded map.
type Store struct {
	mu      sync.RWMutex
	records map[string]audit.Audit
	idGen   audit.IDGenerator
}

// New constructs a Store.
func New(idGen audit.IDGenerator) *Store {
	return &Store{
		records: make(map[string]audit.Audit),
		idGen:   idGen,
	}
}

// Save assigns a fresh identifier and stores a copy of the record.
func (s *Store) Save(_ context.Context, a *audit.Audit) (string, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate audit id: %w", err)
	}
	a.ID = id
	a.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = *a
	return id, nil
}

// Get returns the audit with the exact identifier, or (nil, nil).
func (s *Store) Get(_ context.Context, id string) (*audit.Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.records[id]; ok {
		cp := a
		return &cp, nil
	}
	return nil, nil
}

// FindByIDOrSite mirrors the file store's layered lookup over map iteration
// order, which is unspecified by design.
func (s *Store) FindByIDOrSite(ctx context.Context, identifier string) (*audit.Audit, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}
	if a, err := s.Get(ctx, identifier); err != nil || a != nil {
		return a, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	wantHost := audit.Hostname(identifier)
	var hostMatch, substringMatch *audit.Audit
	for _, a := range s.records {
		if a.Meta.SiteID == identifier || a.Meta.URL == identifier {
			cp := a
			return &cp, nil
		}
		if hostMatch == nil {
			host := audit.Hostname(a.Meta.URL)
			if host != "" && (host == identifier || (wantHost != "" && host == wantHost)) {
				cp := a
				hostMatch = &cp
			}
		}
		if substringMatch == nil && strings.Contains(a.Meta.URL, identifier) {
			cp := a
			substringMatch = &cp
		}
	}
	if hostMatch != nil {
		return hostMatch, nil
	}
	return substringMatch, nil
}
