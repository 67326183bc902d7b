// Package store persists site profiles and evaluation records in SQLite
// or Postgres.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// ErrNotFound is returned when a site or evaluation does not exist.
var ErrNotFound = eris.New("store: not found")

// EvaluationFilter specifies criteria for listing evaluations.
type EvaluationFilter struct {
	SiteID     string `json:"site_id,omitempty"`
	ProtocolID string `json:"protocol_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the feasibility engine.
type Store interface {
	// Sites
	UpsertSite(ctx context.Context, site model.SiteProfile) error
	GetSite(ctx context.Context, siteID string) (*model.SiteProfile, error)
	ListSites(ctx context.Context) ([]model.SiteProfile, error)

	// Evaluations
	SaveEvaluation(ctx context.Context, ev *model.Evaluation) error
	GetEvaluation(ctx context.Context, id string) (*model.Evaluation, error)
	ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]model.EvaluationSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 50

func (f EvaluationFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}
