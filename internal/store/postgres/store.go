// Package postgres provides a Postgres-backed audit store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool for audit rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists audits as JSONB rows. The full record lives in one column;
// id, site_id, host, and url are indexed lookup keys beside it.
type Store struct {
	pool  pgxPool
	table string
	idGen audit.IDGenerator
}

// New creates a Store backed by a fresh pgx pool.
func New(ctx context.Context, cfg Config, idGen audit.IDGenerator) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithPool(pool, cfg.Table, idGen)
}

// NewWithPool constructs a Store from an existing pool, primarily for tests.
func NewWithPool(pool pgxPool, table string, idGen audit.IDGenerator) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "audits"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table, idGen: idGen}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Save assigns a fresh identifier and inserts the full record. A single
// INSERT is atomic; readers never observe a partial row.
func (s *Store) Save(ctx context.Context, a *audit.Audit) (string, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate audit id: %w", err)
	}
	a.ID = id
	a.Normalize()

	record, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode audit: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, site_id, host, url, generated_at, record)
VALUES ($1,$2,$3,$4,$5,$6)`, s.table)
	_, err = s.pool.Exec(ctx, query,
		id,
		a.Meta.SiteID,
		audit.Hostname(a.Meta.URL),
		a.Meta.URL,
		a.Meta.GeneratedAt,
		record,
	)
	if err != nil {
		return "", fmt.Errorf("insert audit: %w", err)
	}
	return id, nil
}

// Get returns the audit with the exact identifier, or (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*audit.Audit, error) {
	query := fmt.Sprintf(`SELECT record FROM %s WHERE id = $1`, s.table)
	return s.queryOne(ctx, query, id)
}

// FindByIDOrSite implements the layered lookup in SQL, one tier per query.
// The table is the only record location, so there is no secondary fallback.
func (s *Store) FindByIDOrSite(ctx context.Context, identifier string) (*audit.Audit, error) {
	if identifier == "" {
		return nil, nil
	}
	if a, err := s.Get(ctx, identifier); err != nil || a != nil {
		return a, err
	}

	equality := fmt.Sprintf(`SELECT record FROM %s WHERE site_id = $1 OR url = $1 LIMIT 1`, s.table)
	if a, err := s.queryOne(ctx, equality, identifier); err != nil || a != nil {
		return a, err
	}

	host := audit.Hostname(identifier)
	if host == "" {
		host = identifier
	}
	byHost := fmt.Sprintf(`SELECT record FROM %s WHERE host = $1 LIMIT 1`, s.table)
	if a, err := s.queryOne(ctx, byHost, host); err != nil || a != nil {
		return a, err
	}

	substring := fmt.Sprintf(`SELECT record FROM %s WHERE url LIKE '%%' || $1 || '%%' LIMIT 1`, s.table)
	return s.queryOne(ctx, substring, identifier)
}

func (s *Store) queryOne(ctx context.Context, query string, args ...any) (*audit.Audit, error) {
	var record []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query audit: %w", err)
	}
	var a audit.Audit
	if err := json.Unmarshal(record, &a); err != nil {
		return nil, fmt.Errorf("decode audit record: %w", err)
	}
	a.Normalize()
	return &a, nil
}
