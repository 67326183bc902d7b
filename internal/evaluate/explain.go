package evaluate

import (
	"fmt"
	"strings"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// Explain renders a deterministic, human-readable gap for a non-passing
// verdict. Passing verdicts explain to "".
func Explain(v model.Verdict, req model.Requirement) string {
	if v.Outcome == model.Pass {
		return ""
	}
	label := keyLabel(req.Key)
	want := withUnit(req.Value.String(), req.Unit)

	switch v.Cause {
	case model.CauseMissingCapability:
		return fmt.Sprintf("no %s fact on file", label)
	case model.CauseTypeMismatch:
		obs := "unknown"
		if v.ObservedValue != nil {
			obs = v.ObservedValue.String()
		}
		return fmt.Sprintf("%s value %s cannot be compared with %s %s: %s", label, obs, req.Operator, want, strings.TrimPrefix(v.Reason, "type mismatch: "))
	}

	obs := ""
	if v.ObservedValue != nil {
		obs = v.ObservedValue.String()
	}
	switch req.Operator {
	case model.OpGte, model.OpLte:
		return fmt.Sprintf("observed %s %s, protocol requires %s%s", obs, label, req.Operator.Symbol(), want)
	case model.OpEq:
		return fmt.Sprintf("observed %s %s, protocol requires %s", label, obs, want)
	case model.OpNeq:
		return fmt.Sprintf("observed %s %s, protocol requires any value other than %s", label, obs, want)
	case model.OpIn:
		return fmt.Sprintf("observed %s %s, protocol requires one of [%s]", label, obs, req.Value.String())
	case model.OpContains:
		return fmt.Sprintf("observed %s [%s], protocol requires it to include %s", label, obs, req.Value.String())
	case model.OpExists:
		return fmt.Sprintf("%s is empty, protocol requires it to be present", label)
	default:
		return fmt.Sprintf("%s does not satisfy %s %s", label, req.Operator, want)
	}
}

// ExplainAll returns one Gap per non-passing verdict, in requirement order.
// Verdicts are matched to requirements by ID.
func ExplainAll(reqs []model.Requirement, verdicts []model.Verdict) []model.Gap {
	byID := make(map[string]model.Verdict, len(verdicts))
	for _, v := range verdicts {
		byID[v.RequirementID] = v
	}
	var gaps []model.Gap
	for _, r := range reqs {
		v, ok := byID[r.ID]
		if !ok || v.Outcome == model.Pass {
			continue
		}
		gaps = append(gaps, model.Gap{
			RequirementID: r.ID,
			Category:      r.Category,
			Criticality:   r.Criticality,
			Outcome:       v.Outcome,
			Explanation:   Explain(v, r),
		})
	}
	return gaps
}

// keyLabel returns the last dotted segment of a capability key.
func keyLabel(key string) string {
	key = strings.TrimSpace(key)
	if i := strings.LastIndex(key, "."); i >= 0 && i < len(key)-1 {
		return key[i+1:]
	}
	return key
}

func withUnit(s, unit string) string {
	if unit == "" {
		return s
	}
	return s + " " + unit
}
