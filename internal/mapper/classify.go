package mapper

import (
	"math"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// Classification is the review decision for one answer.
type Classification struct {
	Locked bool
}

// Classify locks high-confidence answers; everything else needs human
// confirmation.
func Classify(r model.MappingResult) Classification {
	return Classification{Locked: r.ConfidenceBand == model.BandHigh}
}

// Finalize applies Classify to each result so Locked always agrees with
// the band.
func Finalize(results []model.MappingResult) []model.MappingResult {
	for i := range results {
		results[i].Locked = Classify(results[i]).Locked
	}
	return results
}

// Summarize counts results by band and source. Coverage is the share of
// questions with any answer, 0-100; no questions is full coverage.
func Summarize(results []model.MappingResult) model.MappingStats {
	s := model.MappingStats{
		Total:    len(results),
		ByBand:   make(map[model.ConfidenceBand]int),
		BySource: make(map[model.MappingSource]int),
	}
	for _, r := range results {
		s.ByBand[r.ConfidenceBand]++
		s.BySource[r.Source]++
		if Classify(r).Locked {
			s.Locked++
		}
		if r.Source == model.SourceUnresolved {
			s.Unresolved++
		}
	}
	if s.Total == 0 {
		s.Coverage = 100
		return s
	}
	s.Coverage = int(math.Round(100 * float64(s.Total-s.Unresolved) / float64(s.Total)))
	return s
}
