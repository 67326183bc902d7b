package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/feasibility-cli/internal/capability"
	"github.com/sells-group/feasibility-cli/internal/evaluate"
	"github.com/sells-group/feasibility-cli/internal/model"
)

func score(reqs []model.Requirement, facts ...model.CapabilityFact) model.ScoreResult {
	store := capability.FromFacts(facts...)
	return Aggregate(reqs, evaluate.EvaluateAll(reqs, store))
}

func TestAggregate_CriticalFailDisqualifies(t *testing.T) {
	t.Parallel()

	reqs := []model.Requirement{{
		ID: "r1", Key: "equipment.ct_scanners", Operator: model.OpGte, Value: model.NumberValue(1),
		Weight: 10, Category: "facilities", Criticality: model.Critical,
	}}
	res := score(reqs, model.CapabilityFact{Key: "equipment.ct_scanners", Value: model.NumberValue(0)})

	assert.Equal(t, model.CategoryScore{Earned: 0, Possible: 10}, res.ByCategory["facilities"])
	assert.Equal(t, 0, res.Overall)
	assert.True(t, res.Disqualified)
	assert.Equal(t, []string{"r1"}, res.DisqualifyingRequirementIDs)
}

func TestAggregate_InPass(t *testing.T) {
	t.Parallel()

	reqs := []model.Requirement{{
		ID: "r1", Key: "population.sex", Operator: model.OpIn, Value: model.StringList("all"),
		Weight: 5, Category: "population", Criticality: model.Preferred,
	}}
	res := score(reqs, model.CapabilityFact{Key: "population.sex", Value: model.StringValue("all")})

	assert.Equal(t, model.CategoryScore{Earned: 5, Possible: 5}, res.ByCategory["population"])
	assert.Equal(t, 100, res.Overall)
	assert.False(t, res.Disqualified)
}

func TestAggregate_OptionalUnknownDoesNotDisqualify(t *testing.T) {
	t.Parallel()

	reqs := []model.Requirement{
		{ID: "r1", Key: "history.retention_rate", Operator: model.OpGte, Value: model.NumberValue(80), Weight: 4, Category: "history", Criticality: model.Optional},
		{ID: "r2", Key: "equipment.mri", Operator: model.OpGte, Value: model.NumberValue(1), Weight: 4, Category: "facilities"},
	}
	res := score(reqs, model.CapabilityFact{Key: "equipment.mri", Value: model.NumberValue(1)})

	assert.Equal(t, 0.0, res.ByCategory["history"].Earned)
	assert.Equal(t, 50, res.Overall)
	assert.False(t, res.Disqualified)
	assert.Equal(t, 50, res.CoveragePct)
}

func TestAggregate_CriticalUnknownDisqualifiesHighScore(t *testing.T) {
	t.Parallel()

	reqs := []model.Requirement{
		{ID: "r1", Key: "equipment.mri", Operator: model.OpGte, Value: model.NumberValue(1), Weight: 99, Category: "facilities"},
		{ID: "r2", Key: "staffing.investigator_specialties", Operator: model.OpContains, Value: model.StringValue("hepatology"), Weight: 1, Category: "staffing", Criticality: model.Critical},
	}
	res := score(reqs, model.CapabilityFact{Key: "equipment.mri", Value: model.NumberValue(3)})

	assert.Equal(t, 99, res.Overall)
	assert.True(t, res.Disqualified)
	assert.Equal(t, []string{"r2"}, res.DisqualifyingRequirementIDs)
}

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()

	res := Aggregate(nil, nil)
	assert.Equal(t, 100, res.Overall)
	assert.True(t, res.NoRequirements)
	assert.False(t, res.Disqualified)
	assert.Empty(t, res.ByCategory)
}

func TestAggregate_PossibleEqualsWeightSum(t *testing.T) {
	t.Parallel()

	reqs := []model.Requirement{
		{ID: "a", Key: "k1", Operator: model.OpExists, Weight: 1.5, Category: "x"},
		{ID: "b", Key: "k2", Operator: model.OpExists, Weight: 2.5, Category: "y"},
		{ID: "c", Key: "k3", Operator: model.OpExists, Weight: 3, Category: "x"},
	}
	res := score(reqs, model.CapabilityFact{Key: "k1", Value: model.StringValue("yes")})

	var possible float64
	for _, cs := range res.ByCategory {
		possible += cs.Possible
	}
	assert.InDelta(t, 7.0, possible, 1e-9)
	assert.InDelta(t, 4.5, res.ByCategory["x"].Possible, 1e-9)
	assert.Equal(t, 21, res.Overall)
}

func TestAggregate_MissingVerdictCountsAsUnknown(t *testing.T) {
	t.Parallel()

	reqs := []model.Requirement{{ID: "r1", Key: "k", Operator: model.OpExists, Weight: 1, Category: "x", Criticality: model.Critical}}
	res := Aggregate(reqs, nil)
	assert.True(t, res.Disqualified)
	assert.Equal(t, 0, res.Overall)
}

func TestAggregate_Monotonic(t *testing.T) {
	t.Parallel()

	reqs := []model.Requirement{
		{ID: "r1", Key: "equipment.mri", Operator: model.OpGte, Value: model.NumberValue(1), Weight: 3, Category: "facilities"},
		{ID: "r2", Key: "staffing.coordinator_count", Operator: model.OpGte, Value: model.NumberValue(2), Weight: 2, Category: "staffing"},
	}
	before := score(reqs, model.CapabilityFact{Key: "equipment.mri", Value: model.NumberValue(1)})
	after := score(reqs,
		model.CapabilityFact{Key: "equipment.mri", Value: model.NumberValue(1)},
		model.CapabilityFact{Key: "staffing.coordinator_count", Value: model.NumberValue(2)},
	)
	assert.GreaterOrEqual(t, after.Overall, before.Overall)
}

func TestCoveragePct(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, CoveragePct(nil))
	assert.Equal(t, 67, CoveragePct([]model.Verdict{
		{Outcome: model.Pass}, {Outcome: model.Fail}, {Outcome: model.Unknown},
	}))
}

func TestRank(t *testing.T) {
	t.Parallel()

	evals := []*model.Evaluation{
		{ID: "dq", Score: model.ScoreResult{Overall: 95, Disqualified: true}},
		{ID: "low", Score: model.ScoreResult{Overall: 40}},
		{ID: "high", Score: model.ScoreResult{Overall: 80, CoveragePct: 50}},
		{ID: "high-covered", Score: model.ScoreResult{Overall: 80, CoveragePct: 90}},
	}
	Rank(evals)
	ids := make([]string, len(evals))
	for i, e := range evals {
		ids[i] = e.ID
	}
	require.Len(t, ids, 4)
	assert.Equal(t, []string{"high-covered", "high", "low", "dq"}, ids)
}
