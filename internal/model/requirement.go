package model

import (
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Operator is the closed set of comparison operators a requirement may use.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
	OpContains Operator = "contains"
	OpExists   Operator = "exists"
)

// Operators lists every valid operator in declaration order.
var Operators = []Operator{OpEq, OpNeq, OpGte, OpLte, OpIn, OpContains, OpExists}

// operatorAliases maps the symbolic forms emitted by protocol extractors.
var operatorAliases = map[string]Operator{
	"==": OpEq,
	"=":  OpEq,
	"!=": OpNeq,
	">=": OpGte,
	"<=": OpLte,
}

// ParseOperator resolves a canonical or symbolic operator name. Unknown
// names are returned as-is so validation can report them.
func ParseOperator(s string) Operator {
	s = strings.ToLower(strings.TrimSpace(s))
	if op, ok := operatorAliases[s]; ok {
		return op
	}
	return Operator(s)
}

// Valid reports whether op is one of the closed set.
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Symbol returns the comparison symbol used in explanations.
func (op Operator) Symbol() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "≠"
	case OpGte:
		return "≥"
	case OpLte:
		return "≤"
	default:
		return string(op)
	}
}

// UnmarshalYAML accepts canonical and symbolic operator names.
func (op *Operator) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*op = ParseOperator(s)
	return nil
}

// UnmarshalText accepts canonical and symbolic operator names.
func (op *Operator) UnmarshalText(text []byte) error {
	*op = ParseOperator(string(text))
	return nil
}

// Criticality controls whether a failed requirement disqualifies a site.
type Criticality string

const (
	Critical  Criticality = "critical"
	Preferred Criticality = "preferred"
	Optional  Criticality = "optional"
)

// RequirementType separates measurable requirements from judgment calls.
type RequirementType string

const (
	Objective  RequirementType = "objective"
	Subjective RequirementType = "subjective"
)

// Requirement is a single weighted rule extracted from a protocol.
type Requirement struct {
	ID          string          `json:"id" yaml:"id"`
	Key         string          `json:"key" yaml:"key"`
	Operator    Operator        `json:"operator" yaml:"operator"`
	Value       Value           `json:"value" yaml:"value"`
	Weight      float64         `json:"weight" yaml:"weight"`
	Category    string          `json:"category" yaml:"category"`
	Type        RequirementType `json:"type" yaml:"type"`
	Criticality Criticality     `json:"criticality" yaml:"criticality"`
	SourceText  string          `json:"source_text,omitempty" yaml:"source_text,omitempty"`
	Unit        string          `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// IsCritical reports whether failing this requirement disqualifies a site.
func (r Requirement) IsCritical() bool {
	return r.Criticality == Critical
}

// Validate checks the fields evaluation depends on. The returned error
// wraps ErrMalformedRequirement.
func (r Requirement) Validate() error {
	var problems []string
	if strings.TrimSpace(r.Key) == "" {
		problems = append(problems, "key is required")
	}
	if !r.Operator.Valid() {
		problems = append(problems, "invalid operator "+quote(string(r.Operator)))
	}
	if r.Weight <= 0 {
		problems = append(problems, "weight must be > 0")
	}
	switch r.Criticality {
	case "", Critical, Preferred, Optional:
	default:
		problems = append(problems, "invalid criticality "+quote(string(r.Criticality)))
	}
	switch r.Type {
	case "", Objective, Subjective:
	default:
		problems = append(problems, "invalid type "+quote(string(r.Type)))
	}
	if len(problems) == 0 {
		return nil
	}
	return eris.Wrapf(ErrMalformedRequirement, "requirement %s: %s", r.ID, strings.Join(problems, "; "))
}

func quote(s string) string {
	return `"` + s + `"`
}
