package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sites (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	profile    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS evaluations (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	site_id      TEXT NOT NULL,
	protocol_id  TEXT NOT NULL DEFAULT '',
	what_if      BOOLEAN NOT NULL DEFAULT false,
	overall      INTEGER NOT NULL DEFAULT 0,
	disqualified BOOLEAN NOT NULL DEFAULT false,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_evaluations_site_id ON evaluations(site_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_protocol_id ON evaluations(protocol_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertSite(ctx context.Context, site model.SiteProfile) error {
	if site.ID == "" {
		return eris.Wrap(model.ErrMalformedInput, "postgres: upsert site: missing id")
	}
	if site.UpdatedAt.IsZero() {
		site.UpdatedAt = time.Now().UTC()
	}
	profileJSON, err := json.Marshal(site)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal site")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sites (id, name, profile, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, profile = EXCLUDED.profile, updated_at = EXCLUDED.updated_at`,
		site.ID, site.Name, profileJSON, site.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert site %s", site.ID)
}

func (s *PostgresStore) GetSite(ctx context.Context, siteID string) (*model.SiteProfile, error) {
	row := s.pool.QueryRow(ctx, `SELECT profile FROM sites WHERE id = $1`, siteID)
	site, err := scanSite(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get site %s", siteID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get site %s", siteID)
	}
	return site, nil
}

func (s *PostgresStore) ListSites(ctx context.Context) ([]model.SiteProfile, error) {
	rows, err := s.pool.Query(ctx, `SELECT profile FROM sites ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sites")
	}
	defer rows.Close()

	var sites []model.SiteProfile
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list sites")
		}
		sites = append(sites, *site)
	}
	return sites, eris.Wrap(rows.Err(), "postgres: list sites")
}

func (s *PostgresStore) SaveEvaluation(ctx context.Context, ev *model.Evaluation) error {
	stampEvaluation(ev)
	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evaluation")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO evaluations (id, site_id, protocol_id, what_if, overall, disqualified, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.SiteID, ev.ProtocolID, ev.WhatIf, ev.Score.Overall, ev.Score.Disqualified, payload, ev.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert evaluation %s", ev.ID)
}

func (s *PostgresStore) GetEvaluation(ctx context.Context, id string) (*model.Evaluation, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM evaluations WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get evaluation %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get evaluation %s", id)
	}

	var ev model.Evaluation
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal evaluation")
	}
	return &ev, nil
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]model.EvaluationSummary, error) {
	query := `SELECT id, site_id, protocol_id, overall, disqualified, what_if, created_at FROM evaluations WHERE 1=1`
	var args []any
	argN := 1

	if filter.SiteID != "" {
		query += fmt.Sprintf(` AND site_id = $%d`, argN)
		args = append(args, filter.SiteID)
		argN++
	}
	if filter.ProtocolID != "" {
		query += fmt.Sprintf(` AND protocol_id = $%d`, argN)
		args = append(args, filter.ProtocolID)
		argN++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, argN, argN+1)
	args = append(args, filter.limit(), filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evaluations")
	}
	defer rows.Close()

	var out []model.EvaluationSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan evaluation")
		}
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list evaluations")
}
