package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sites (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	profile    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS evaluations (
	id           TEXT PRIMARY KEY,
	site_id      TEXT NOT NULL,
	protocol_id  TEXT NOT NULL DEFAULT '',
	what_if      INTEGER NOT NULL DEFAULT 0,
	overall      INTEGER NOT NULL DEFAULT 0,
	disqualified INTEGER NOT NULL DEFAULT 0,
	payload      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_evaluations_site_id ON evaluations(site_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_protocol_id ON evaluations(protocol_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertSite(ctx context.Context, site model.SiteProfile) error {
	if site.ID == "" {
		return eris.Wrap(model.ErrMalformedInput, "sqlite: upsert site: missing id")
	}
	if site.UpdatedAt.IsZero() {
		site.UpdatedAt = time.Now().UTC()
	}
	profileJSON, err := json.Marshal(site)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal site")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sites (id, name, profile, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, profile = excluded.profile, updated_at = excluded.updated_at`,
		site.ID, site.Name, string(profileJSON), site.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert site %s", site.ID)
}

func (s *SQLiteStore) GetSite(ctx context.Context, siteID string) (*model.SiteProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT profile FROM sites WHERE id = ?`, siteID)
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get site %s", siteID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get site %s", siteID)
	}
	return site, nil
}

func (s *SQLiteStore) ListSites(ctx context.Context) ([]model.SiteProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT profile FROM sites ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sites")
	}
	defer rows.Close() //nolint:errcheck

	var sites []model.SiteProfile
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list sites")
		}
		sites = append(sites, *site)
	}
	return sites, eris.Wrap(rows.Err(), "sqlite: list sites")
}

func (s *SQLiteStore) SaveEvaluation(ctx context.Context, ev *model.Evaluation) error {
	stampEvaluation(ev)
	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evaluation")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, site_id, protocol_id, what_if, overall, disqualified, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SiteID, ev.ProtocolID, ev.WhatIf, ev.Score.Overall, ev.Score.Disqualified, string(payload), ev.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert evaluation %s", ev.ID)
}

func (s *SQLiteStore) GetEvaluation(ctx context.Context, id string) (*model.Evaluation, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM evaluations WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get evaluation %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get evaluation %s", id)
	}

	var ev model.Evaluation
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal evaluation")
	}
	return &ev, nil
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]model.EvaluationSummary, error) {
	query := `SELECT id, site_id, protocol_id, overall, disqualified, what_if, created_at FROM evaluations WHERE 1=1`
	var args []any

	if filter.SiteID != "" {
		query += ` AND site_id = ?`
		args = append(args, filter.SiteID)
	}
	if filter.ProtocolID != "" {
		query += ` AND protocol_id = ?`
		args = append(args, filter.ProtocolID)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, filter.limit(), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evaluations")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.EvaluationSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evaluation")
		}
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list evaluations")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanSite(row scannable) (*model.SiteProfile, error) {
	var profileJSON []byte
	if err := row.Scan(&profileJSON); err != nil {
		return nil, err
	}
	var site model.SiteProfile
	if err := json.Unmarshal(profileJSON, &site); err != nil {
		return nil, eris.Wrap(err, "unmarshal site")
	}
	return &site, nil
}

func scanSummary(row scannable) (model.EvaluationSummary, error) {
	var sum model.EvaluationSummary
	err := row.Scan(&sum.ID, &sum.SiteID, &sum.ProtocolID, &sum.Overall, &sum.Disqualified, &sum.WhatIf, &sum.CreatedAt)
	return sum, err
}

// stampEvaluation assigns an ID and creation time to records that lack them.
func stampEvaluation(ev *model.Evaluation) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
}
