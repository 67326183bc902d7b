package model

import "time"

// MappingStats summarizes autofill results for one evaluation.
type MappingStats struct {
	Total      int                    `json:"total"`
	Locked     int                    `json:"locked"`
	ByBand     map[ConfidenceBand]int `json:"by_band"`
	BySource   map[MappingSource]int  `json:"by_source"`
	Unresolved int                    `json:"unresolved"`
	Coverage   int                    `json:"coverage_pct"`
}

// Evaluation is the persisted record of one feasibility run of a protocol
// against a site.
type Evaluation struct {
	ID         string            `json:"id"`
	SiteID     string            `json:"site_id"`
	ProtocolID string            `json:"protocol_id"`
	WhatIf     bool              `json:"what_if"`
	Overrides  map[string]string `json:"overrides,omitempty"`
	Score      ScoreResult       `json:"score"`
	Verdicts   []Verdict         `json:"verdicts"`
	Gaps       []Gap             `json:"gaps"`
	Rejected   []Rejection       `json:"rejected,omitempty"`
	Answers    []MappingResult   `json:"answers"`
	Stats      MappingStats      `json:"stats"`
	Usage      TokenUsage        `json:"usage"`
	CreatedAt  time.Time         `json:"created_at"`
}

// EvaluationSummary is the list-view projection of an Evaluation.
type EvaluationSummary struct {
	ID           string    `json:"id"`
	SiteID       string    `json:"site_id"`
	ProtocolID   string    `json:"protocol_id"`
	Overall      int       `json:"overall"`
	Disqualified bool      `json:"disqualified"`
	WhatIf       bool      `json:"what_if"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary projects the evaluation to its list view.
func (e *Evaluation) Summary() EvaluationSummary {
	return EvaluationSummary{
		ID:           e.ID,
		SiteID:       e.SiteID,
		ProtocolID:   e.ProtocolID,
		Overall:      e.Score.Overall,
		Disqualified: e.Score.Disqualified,
		WhatIf:       e.WhatIf,
		CreatedAt:    e.CreatedAt,
	}
}
