package scorer

import (
	"math"
	"sort"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// Aggregate combines verdicts into per-category and overall scores.
// Verdicts are matched to requirements by ID; a requirement without a
// verdict counts as unknown. Disqualification is reported alongside the
// score and never replaces it.
func Aggregate(reqs []model.Requirement, verdicts []model.Verdict) model.ScoreResult {
	outcomes := make(map[string]model.Outcome, len(verdicts))
	for _, v := range verdicts {
		outcomes[v.RequirementID] = v.Outcome
	}

	res := model.ScoreResult{ByCategory: make(map[string]model.CategoryScore)}
	var earned, possible float64
	withData := 0

	for _, r := range reqs {
		outcome, ok := outcomes[r.ID]
		if !ok {
			outcome = model.Unknown
		}

		cs := res.ByCategory[r.Category]
		cs.Possible += r.Weight
		possible += r.Weight
		if outcome == model.Pass {
			cs.Earned += r.Weight
			earned += r.Weight
		}
		res.ByCategory[r.Category] = cs

		if outcome != model.Unknown {
			withData++
		}

		if r.IsCritical() && outcome != model.Pass {
			res.Disqualified = true
			res.DisqualifyingRequirementIDs = append(res.DisqualifyingRequirementIDs, r.ID)
		}
	}

	if possible == 0 {
		res.Overall = 100
		res.NoRequirements = true
		res.CoveragePct = 100
		return res
	}
	res.Overall = int(math.Round(100 * earned / possible))
	res.CoveragePct = int(math.Round(100 * float64(withData) / float64(len(reqs))))
	return res
}

// CoveragePct returns the share of verdicts backed by site data, 0-100.
// An empty list is fully covered.
func CoveragePct(verdicts []model.Verdict) int {
	if len(verdicts) == 0 {
		return 100
	}
	n := 0
	for _, v := range verdicts {
		if v.Outcome != model.Unknown {
			n++
		}
	}
	return int(math.Round(100 * float64(n) / float64(len(verdicts))))
}

// Rank orders evaluations for comparison across sites: qualified sites
// first, then by overall score descending, then by coverage.
func Rank(evals []*model.Evaluation) {
	sort.SliceStable(evals, func(i, j int) bool {
		a, b := evals[i].Score, evals[j].Score
		if a.Disqualified != b.Disqualified {
			return !a.Disqualified
		}
		if a.Overall != b.Overall {
			return a.Overall > b.Overall
		}
		return a.CoveragePct > b.CoveragePct
	})
}
