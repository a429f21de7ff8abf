// Package file implements the audit store on the local filesystem with
// atomic temp-then-rename writes.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
)

const (
	auditsDir = "audits"
	// reportsDir is the secondary per-record location: external collaborators
	// (the report renderer) deposit full records here keyed by identifier,
	// and lookup falls through to it when the primary tree has no match.
	reportsDir = "reports"
)

// Config captures the parameters for the file store.
type Config struct {
	// Dir is the root directory for audit records.
	Dir string
}

// Store writes one JSON file per audit under Dir/audits.
type Store struct {
	dir   string
	idGen audit.IDGenerator
}

// New validates the base directory and creates the store layout.
func New(cfg Config, idGen audit.IDGenerator) (*Store, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	for _, sub := range []string{auditsDir, reportsDir} {
		if err := os.MkdirAll(filepath.Join(cfg.Dir, sub), 0o750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	probe := filepath.Join(cfg.Dir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("store directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}
	return &Store{dir: cfg.Dir, idGen: idGen}, nil
}

// Save assigns a fresh identifier and writes the record atomically. Each
// write targets a uniquely named temp file before rename, so no locking is
// needed across concurrent saves.
func (s *Store) Save(_ context.Context, a *audit.Audit) (string, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate audit id: %w", err)
	}
	a.ID = id
	a.Normalize()

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode audit: %w", err)
	}

	final, err := s.recordPath(auditsDir, id)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Join(s.dir, auditsDir), ".tmp-"+id+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("publish record: %w", err)
	}
	return id, nil
}

// Get returns the audit with the exact identifier, or (nil, nil).
func (s *Store) Get(_ context.Context, id string) (*audit.Audit, error) {
	return s.read(auditsDir, id)
}

// FindByIDOrSite implements the layered lookup. Scan order within a tier is
// directory order, which is unspecified: a siteID shared by several audits
// yields "a" match, not "the latest".
func (s *Store) FindByIDOrSite(ctx context.Context, identifier string) (*audit.Audit, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}

	if a, err := s.Get(ctx, identifier); err != nil {
		return nil, err
	} else if a != nil {
		return a, nil
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, auditsDir))
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}

	wantHost := audit.Hostname(identifier)
	var hostMatch, substringMatch *audit.Audit
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		a, readErr := s.read(auditsDir, strings.TrimSuffix(name, ".json"))
		if readErr != nil || a == nil {
			// Unreadable records are skipped, not fatal for the scan.
			continue
		}
		if a.Meta.SiteID == identifier || a.Meta.URL == identifier {
			return a, nil
		}
		if hostMatch == nil {
			host := audit.Hostname(a.Meta.URL)
			if host != "" && (host == identifier || (wantHost != "" && host == wantHost)) {
				hostMatch = a
			}
		}
		if substringMatch == nil && strings.Contains(a.Meta.URL, identifier) {
			substringMatch = a
		}
	}
	if hostMatch != nil {
		return hostMatch, nil
	}
	if substringMatch != nil {
		return substringMatch, nil
	}

	// Secondary per-record location, keyed by identifier.
	return s.read(reportsDir, identifier)
}

func (s *Store) read(sub, id string) (*audit.Audit, error) {
	path, err := s.recordPath(sub, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read record: %w", err)
	}
	var a audit.Audit
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	a.Normalize()
	return &a, nil
}

// recordPath joins and verifies a record path stays inside the store root.
func (s *Store) recordPath(sub, id string) (string, error) {
	full := filepath.Join(s.dir, sub, id+".json")
	base := filepath.Clean(filepath.Join(s.dir, sub))
	if !strings.HasPrefix(filepath.Clean(full), base+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected for id %q", id)
	}
	return full, nil
}
