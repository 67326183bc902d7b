package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseOperator(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OpGte, ParseOperator(">="))
	assert.Equal(t, OpLte, ParseOperator("<="))
	assert.Equal(t, OpEq, ParseOperator("=="))
	assert.Equal(t, OpNeq, ParseOperator("!="))
	assert.Equal(t, OpContains, ParseOperator(" CONTAINS "))
	assert.Equal(t, Operator("approx"), ParseOperator("approx"))
	assert.False(t, ParseOperator("approx").Valid())
}

func TestRequirementYAMLOperatorAlias(t *testing.T) {
	t.Parallel()

	var r Requirement
	src := "id: r1\nkey: equipment.ct_scanners\noperator: '>='\nvalue: 1\nweight: 5\ncategory: facilities\ncriticality: critical\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &r))
	assert.Equal(t, OpGte, r.Operator)
	assert.Equal(t, NumberValue(1), r.Value)
	assert.True(t, r.IsCritical())
	assert.NoError(t, r.Validate())
}

func TestRequirementValidate(t *testing.T) {
	t.Parallel()

	valid := Requirement{ID: "r1", Key: "staffing.coordinator_count", Operator: OpGte, Value: NumberValue(2), Weight: 3}

	tests := []struct {
		name   string
		mutate func(r *Requirement)
	}{
		{"empty key", func(r *Requirement) { r.Key = " " }},
		{"unknown operator", func(r *Requirement) { r.Operator = "approx" }},
		{"zero weight", func(r *Requirement) { r.Weight = 0 }},
		{"negative weight", func(r *Requirement) { r.Weight = -1 }},
		{"bad criticality", func(r *Requirement) { r.Criticality = "urgent" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := valid
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRequirement))
		})
	}

	assert.NoError(t, valid.Validate())
}

func TestOperatorSymbol(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "≥", OpGte.Symbol())
	assert.Equal(t, "≤", OpLte.Symbol())
	assert.Equal(t, "in", OpIn.Symbol())
}

func TestVerdictErr(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Verdict{Cause: CauseMissingCapability}.Err(), ErrMissingCapability)
	assert.ErrorIs(t, Verdict{Cause: CauseTypeMismatch}.Err(), ErrTypeMismatch)
	assert.NoError(t, Verdict{Outcome: Pass}.Err())
}
