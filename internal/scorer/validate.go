// Package scorer aggregates requirement verdicts into weighted category
// scores with critical-requirement disqualification.
package scorer

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// ValidateRequirements splits reqs into valid and rejected requirements.
// A malformed requirement is logged and rejected without affecting the
// others. Structural problems with the list as a whole (duplicate or blank
// IDs) return an error wrapping model.ErrMalformedInput, and nothing should
// be evaluated.
func ValidateRequirements(reqs []model.Requirement) ([]model.Requirement, []model.Rejection, error) {
	seen := make(map[string]struct{}, len(reqs))
	var dupes []string
	for i, r := range reqs {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, nil, eris.Wrapf(model.ErrMalformedInput, "scorer: requirement at index %d has no id", i)
		}
		if _, ok := seen[id]; ok {
			dupes = append(dupes, id)
			continue
		}
		seen[id] = struct{}{}
	}
	if len(dupes) > 0 {
		return nil, nil, eris.Wrapf(model.ErrMalformedInput, "scorer: duplicate requirement ids: %s", strings.Join(dupes, ", "))
	}

	valid := make([]model.Requirement, 0, len(reqs))
	var rejected []model.Rejection
	for _, r := range reqs {
		if err := r.Validate(); err != nil {
			zap.L().Warn("scorer: rejecting malformed requirement",
				zap.String("requirement", r.ID),
				zap.Error(err),
			)
			rejected = append(rejected, model.Rejection{RequirementID: r.ID, Reason: err.Error()})
			continue
		}
		valid = append(valid, r)
	}
	return valid, rejected, nil
}
