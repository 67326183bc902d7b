// Package evaluate checks protocol requirements against a site's
// capability facts and explains the gaps.
package evaluate

import (
	"fmt"
	"strings"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// Resolver looks up capability facts by key.
type Resolver interface {
	Resolve(key string) (model.CapabilityFact, bool)
}

// mismatch is returned by an operator when the observed value cannot be
// compared with the required one.
type mismatch struct{ reason string }

func (m *mismatch) Error() string { return m.reason }

func mismatchf(format string, args ...any) *mismatch {
	return &mismatch{reason: fmt.Sprintf(format, args...)}
}

type opFunc func(observed, required model.Value) (bool, *mismatch)

var operators = map[model.Operator]opFunc{
	model.OpEq:       opEq,
	model.OpNeq:      opNeq,
	model.OpGte:      opGte,
	model.OpLte:      opLte,
	model.OpIn:       opIn,
	model.OpContains: opContains,
	model.OpExists:   opExists,
}

// Evaluate resolves the requirement's key and applies its operator. It
// never fails: missing facts and incomparable values yield unknown.
func Evaluate(req model.Requirement, store Resolver) model.Verdict {
	v := model.Verdict{RequirementID: req.ID}

	fact, ok := store.Resolve(req.Key)
	if !ok {
		v.Outcome = model.Unknown
		v.Cause = model.CauseMissingCapability
		v.Reason = fmt.Sprintf("no capability data for key %s", req.Key)
		return v
	}
	observed := fact.Value
	v.ObservedValue = &observed

	fn, ok := operators[req.Operator]
	if !ok {
		v.Outcome = model.Unknown
		v.Cause = model.CauseTypeMismatch
		v.Reason = fmt.Sprintf("type mismatch: unsupported operator %q", req.Operator)
		return v
	}

	if req.Unit != "" && fact.Unit != "" && !strings.EqualFold(req.Unit, fact.Unit) {
		v.Outcome = model.Unknown
		v.Cause = model.CauseTypeMismatch
		v.Reason = fmt.Sprintf("type mismatch: unit %s does not match required unit %s", fact.Unit, req.Unit)
		return v
	}

	pass, mm := fn(observed, req.Value)
	switch {
	case mm != nil:
		v.Outcome = model.Unknown
		v.Cause = model.CauseTypeMismatch
		v.Reason = "type mismatch: " + mm.Error()
	case pass:
		v.Outcome = model.Pass
	default:
		v.Outcome = model.Fail
		v.Reason = fmt.Sprintf("observed %s, required %s %s", observed.String(), req.Operator, req.Value.String())
	}
	return v
}

// EvaluateAll evaluates each requirement, preserving input order.
func EvaluateAll(reqs []model.Requirement, store Resolver) []model.Verdict {
	out := make([]model.Verdict, len(reqs))
	for i, r := range reqs {
		out[i] = Evaluate(r, store)
	}
	return out
}

func opEq(observed, required model.Value) (bool, *mismatch) {
	if (observed.Kind == model.KindList) != (required.Kind == model.KindList) {
		return false, mismatchf("cannot compare %s with %s", observed.Kind, required.Kind)
	}
	return observed.Equal(required), nil
}

func opNeq(observed, required model.Value) (bool, *mismatch) {
	eq, mm := opEq(observed, required)
	if mm != nil {
		return false, mm
	}
	return !eq, nil
}

func numbers(observed, required model.Value) (float64, float64, *mismatch) {
	a, ok := observed.AsNumber()
	if !ok {
		return 0, 0, mismatchf("observed %s %q is not numeric", observed.Kind, observed.String())
	}
	b, ok := required.AsNumber()
	if !ok {
		return 0, 0, mismatchf("required %s %q is not numeric", required.Kind, required.String())
	}
	return a, b, nil
}

func opGte(observed, required model.Value) (bool, *mismatch) {
	a, b, mm := numbers(observed, required)
	if mm != nil {
		return false, mm
	}
	return a >= b, nil
}

func opLte(observed, required model.Value) (bool, *mismatch) {
	a, b, mm := numbers(observed, required)
	if mm != nil {
		return false, mm
	}
	return a <= b, nil
}

// members returns the items of a list, or the scalar as a single item.
func members(v model.Value) []model.Value {
	if v.Kind == model.KindList {
		return v.List
	}
	return []model.Value{v}
}

func opIn(observed, required model.Value) (bool, *mismatch) {
	if observed.Kind == model.KindList {
		return false, mismatchf("observed list cannot be a member of a set")
	}
	for _, item := range members(required) {
		if observed.Equal(item) {
			return true, nil
		}
	}
	return false, nil
}

func opContains(observed, required model.Value) (bool, *mismatch) {
	want := members(required)
	switch observed.Kind {
	case model.KindList:
		for _, w := range want {
			found := false
			for _, item := range observed.List {
				if item.Equal(w) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		}
		return true, nil
	case model.KindString, "":
		hay := strings.ToLower(observed.Str)
		for _, w := range want {
			if !strings.Contains(hay, strings.ToLower(strings.TrimSpace(w.String()))) {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, mismatchf("observed %s cannot contain values", observed.Kind)
	}
}

func opExists(observed, _ model.Value) (bool, *mismatch) {
	return !observed.IsEmpty(), nil
}
