//go:build !integration

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/feasibility-cli/internal/config"
	"github.com/sells-group/feasibility-cli/internal/model"
	"github.com/sells-group/feasibility-cli/internal/store"
)

const testRequirements = `
protocol_id: ONC-301
requirements:
  - id: r1
    key: equipment.ct_scanners
    operator: ">="
    value: 1
    weight: 3
    category: facilities
    type: objective
    criticality: critical
  - id: r2
    key: compliance.gcp_trained
    operator: eq
    value: true
    weight: 1
    category: compliance
    type: objective
    criticality: preferred
`

const testQuestions = `
questions:
  - id: q1
    text: What is the age range of patients you can enroll?
    is_objective: true
`

func testProfile(id string) string {
	return `
id: ` + id + `
name: Lakeside Oncology
population:
  age_min_years: 18
  age_max_years: 80
facilities:
  equipment:
    ct_scanners: 2
compliance:
  gcp_trained: true
`
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadTestConfig(t *testing.T) {
	t.Helper()
	c, err := config.Load()
	require.NoError(t, err)
	cfg = c
}

func TestReadEvaluateOptions_RequiresSite(t *testing.T) {
	_, err := readEvaluateOptions(&cobra.Command{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--site or --profile")
}

func TestBuildInputs_Profiles(t *testing.T) {
	dir := t.TempDir()
	opts := evaluateOptions{
		requirementsPath: writeTestFile(t, dir, "reqs.yaml", testRequirements),
		questionsPath:    writeTestFile(t, dir, "questions.yaml", testQuestions),
		profilePaths: []string{
			writeTestFile(t, dir, "a.yaml", testProfile("site-a")),
			writeTestFile(t, dir, "b.yaml", testProfile("site-b")),
		},
		overrides: map[string]string{"equipment.ct_scanners": "0"},
	}

	inputs, err := buildInputs(context.Background(), nil, opts)
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	assert.Equal(t, "site-a", inputs[0].Site.ID)
	assert.Equal(t, "site-b", inputs[1].Site.ID)
	for _, in := range inputs {
		assert.Equal(t, "ONC-301", in.ProtocolID)
		assert.Len(t, in.Requirements, 2)
		assert.Len(t, in.Questions, 1)
		assert.Equal(t, "0", in.Overrides["equipment.ct_scanners"])
	}
}

func TestBuildInputs_ProtocolFlagWins(t *testing.T) {
	dir := t.TempDir()
	opts := evaluateOptions{
		requirementsPath: writeTestFile(t, dir, "reqs.yaml", testRequirements),
		profilePaths:     []string{writeTestFile(t, dir, "a.yaml", testProfile("site-a"))},
		protocolID:       "ONC-302",
	}

	inputs, err := buildInputs(context.Background(), nil, opts)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "ONC-302", inputs[0].ProtocolID)
	assert.Empty(t, inputs[0].Questions)
}

func TestBuildInputs_StoredSiteNotFound(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewSQLite(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	_, err = buildInputs(context.Background(), st, evaluateOptions{
		requirementsPath: writeTestFile(t, dir, "reqs.yaml", testRequirements),
		siteIDs:          []string{"missing"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBuildInputs_MissingRequirementsFile(t *testing.T) {
	_, err := buildInputs(context.Background(), nil, evaluateOptions{
		requirementsPath: filepath.Join(t.TempDir(), "nope.yaml"),
	})
	require.Error(t, err)
}

func TestBuildEngine_JudgeNeedsKey(t *testing.T) {
	chdirTemp(t)
	loadTestConfig(t)
	cfg.Anthropic.Key = ""

	_, err := buildEngine(context.Background(), nil, nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")

	cfg.Judge.Enabled = false
	eng, err := buildEngine(context.Background(), nil, nil, true)
	require.NoError(t, err)
	assert.NotNil(t, eng)
}

func TestBuildEngine_BadSynonymsPath(t *testing.T) {
	chdirTemp(t)
	loadTestConfig(t)
	cfg.Judge.Enabled = false
	cfg.Mapper.SynonymsPath = "does-not-exist.yaml"

	_, err := buildEngine(context.Background(), nil, nil, true)
	require.Error(t, err)
}

func TestJudgeConfig_Providers(t *testing.T) {
	c := &config.Config{
		Judge: config.JudgeConfig{
			Provider:            "anthropic",
			MaxTokens:           256,
			RatePerSecond:       1.5,
			Burst:               3,
			BreakerThreshold:    4,
			BreakerCooldownSecs: 10,
			MemoTTLMins:         15,
		},
		Anthropic: config.AnthropicConfig{Key: "sk-ant", Model: "claude-haiku-4-5-20251001", CacheTTL: "1h"},
		OpenAI:    config.OpenAIConfig{Key: "sk-oai", Model: "gpt-4o-mini", BaseURL: "http://localhost:8080/v1"},
		Gemini:    config.GeminiConfig{Key: "g-key", Model: "gemini-2.5-flash"},
		Pricing: config.PricingConfig{
			OpenAI: map[string]config.ModelPricing{"gpt-4o-mini": {Input: 0.20, Output: 0.80}},
		},
	}

	jc := judgeConfig(c)
	assert.Nil(t, jc.Pricing.Anthropic)
	assert.InDelta(t, 0.80, jc.Pricing.OpenAI["gpt-4o-mini"].Output, 0.0001)
	assert.Equal(t, "sk-ant", jc.APIKey)
	assert.Equal(t, "claude-haiku-4-5-20251001", jc.Model)
	assert.Equal(t, "1h", jc.CacheTTL)
	assert.Equal(t, 256, jc.MaxTokens)
	assert.InDelta(t, 1.5, jc.RatePerSecond, 0.0001)
	assert.Equal(t, 3, jc.Burst)
	assert.Equal(t, 4, jc.BreakerThreshold)
	assert.Equal(t, 10*time.Second, jc.BreakerCooldown)
	assert.Equal(t, 15*time.Minute, jc.MemoTTL)

	c.Judge.Provider = "openai"
	jc = judgeConfig(c)
	assert.Equal(t, "sk-oai", jc.APIKey)
	assert.Equal(t, "gpt-4o-mini", jc.Model)
	assert.Equal(t, "http://localhost:8080/v1", jc.BaseURL)
	assert.Empty(t, jc.CacheTTL)

	c.Judge.Provider = "gemini"
	jc = judgeConfig(c)
	assert.Equal(t, "g-key", jc.APIKey)
	assert.Equal(t, "gemini-2.5-flash", jc.Model)
}

func TestFormatEvaluation(t *testing.T) {
	ev := &model.Evaluation{
		ID:         "abc12345-6789-0000-0000-000000000000",
		SiteID:     "site-42",
		ProtocolID: "ONC-301",
		WhatIf:     true,
		Overrides:  map[string]string{"equipment.ct_scanners": "0"},
		Score: model.ScoreResult{
			ByCategory: map[string]model.CategoryScore{
				"facilities": {Earned: 0, Possible: 3},
				"compliance": {Earned: 1, Possible: 1},
			},
			Overall:                     25,
			Disqualified:                true,
			DisqualifyingRequirementIDs: []string{"r1"},
			CoveragePct:                 100,
		},
		Gaps: []model.Gap{{
			RequirementID: "r1",
			Category:      "facilities",
			Criticality:   model.Critical,
			Outcome:       model.Fail,
			Explanation:   "requires equipment.ct_scanners >= 1; site has 0",
		}},
		Rejected: []model.Rejection{{RequirementID: "r9", Reason: "unknown operator"}},
		Answers: []model.MappingResult{{
			QuestionID:     "q1",
			Value:          "18-80 years",
			ConfidenceBand: model.BandMedium,
			Source:         model.SourceHeuristic,
		}},
		Stats: model.MappingStats{Total: 1, Coverage: 100},
		Usage: model.TokenUsage{Calls: 2, InputTokens: 1200, OutputTokens: 80, Cost: 0.0016},
	}

	var buf bytes.Buffer
	formatEvaluation(&buf, ev)
	out := buf.String()

	assert.Contains(t, out, "site-42")
	assert.Contains(t, out, "ONC-301")
	assert.Contains(t, out, "What-if:")
	assert.Contains(t, out, "25/100")
	assert.Contains(t, out, "DISQUALIFIED (r1)")
	assert.Contains(t, out, "compliance")
	assert.Contains(t, out, "0.0/3.0")
	assert.Contains(t, out, "site has 0")
	assert.Contains(t, out, "r9: unknown operator")
	assert.Contains(t, out, "18-80 years")
	assert.Contains(t, out, "heuristic")
	assert.Contains(t, out, "2 calls")

	// Categories are listed alphabetically.
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("compliance")), bytes.Index(buf.Bytes(), []byte("facilities")))
}

func TestFormatEvaluation_NoRequirements(t *testing.T) {
	var buf bytes.Buffer
	formatEvaluation(&buf, &model.Evaluation{
		ID:    "e1",
		Score: model.ScoreResult{NoRequirements: true},
	})
	out := buf.String()
	assert.Contains(t, out, "no requirements")
	assert.Contains(t, out, "qualified")
	assert.NotContains(t, out, "Gaps:")
	assert.NotContains(t, out, "AI usage")
}

func TestEvaluateCommand_EndToEnd(t *testing.T) {
	dir := chdirTemp(t)
	dbPath := filepath.Join(dir, "feasibility.db")
	writeTestFile(t, dir, "config.yaml", "store:\n  database_url: "+dbPath+"\nlog:\n  level: error\n")
	reqs := writeTestFile(t, dir, "reqs.yaml", testRequirements)
	qs := writeTestFile(t, dir, "questions.yaml", testQuestions)
	a := writeTestFile(t, dir, "a.yaml", testProfile("site-a"))
	b := writeTestFile(t, dir, "b.yaml", testProfile("site-b"))
	metricsPath := filepath.Join(dir, "feasibility.prom")

	rootCmd.SetArgs([]string{
		"evaluate",
		"-r", reqs,
		"-q", qs,
		"--profile", a,
		"--profile", b,
		"--no-judge",
		"--metrics-file", metricsPath,
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	evals, err := st.ListEvaluations(context.Background(), store.EvaluationFilter{ProtocolID: "ONC-301"})
	require.NoError(t, err)
	require.Len(t, evals, 2)
	for _, e := range evals {
		assert.Equal(t, 100, e.Overall)
		assert.False(t, e.Disqualified)
	}

	ev, err := st.GetEvaluation(context.Background(), evals[0].ID)
	require.NoError(t, err)
	require.Len(t, ev.Answers, 1)
	assert.Equal(t, "q1", ev.Answers[0].QuestionID)
	assert.Zero(t, ev.Usage.Calls)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "feasibility_evaluations_total")
}
