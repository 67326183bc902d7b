//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/feasibility-cli/internal/model"
)

func TestFormatEvaluationsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	evals := []model.EvaluationSummary{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			SiteID:     "site-42",
			ProtocolID: "ONC-301",
			Overall:    87,
			CreatedAt:  now,
		},
		{
			ID:           "def12345-6789-0000-0000-000000000000",
			SiteID:       "site-7",
			ProtocolID:   "ONC-301",
			Overall:      40,
			Disqualified: true,
			WhatIf:       true,
			CreatedAt:    now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatEvaluationsList(&buf, evals)

	output := buf.String()
	assert.Contains(t, output, "SITE")
	assert.Contains(t, output, "PROTOCOL")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "site-42")
	assert.Contains(t, output, "87")
	assert.Contains(t, output, "disqualified (what-if)")
	assert.Contains(t, output, "2025-06-15 10:30")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
