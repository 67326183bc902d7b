// Package capability flattens a site profile into a keyed fact store.
package capability

import (
	"sort"
	"strings"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// Store is an immutable, case-insensitive map of capability facts. It is
// safe for concurrent readers.
type Store struct {
	facts map[string]model.CapabilityFact
}

// Build flattens the typed profile sections, overlays the flat fact table
// and finally applies what-if overrides. Later layers win on key collision.
func Build(profile model.SiteProfile, overrides map[string]string) *Store {
	s := &Store{facts: make(map[string]model.CapabilityFact)}

	flattenProfile(profile, func(key string, v model.Value, unit string) {
		s.put(model.CapabilityFact{Key: key, Value: v, Unit: unit, Source: model.SourceProfile})
	})

	for _, row := range profile.Facts {
		if strings.TrimSpace(row.Key) == "" {
			continue
		}
		s.put(model.CapabilityFact{
			Key:              strings.TrimSpace(row.Key),
			Value:            model.ParseValue(row.Value),
			Unit:             row.Unit,
			EvidenceRequired: row.EvidenceRequired,
			Source:           model.SourceFactTable,
		})
	}

	for key, raw := range overrides {
		if strings.TrimSpace(key) == "" {
			continue
		}
		f := model.CapabilityFact{Key: strings.TrimSpace(key), Value: model.ParseValue(raw), Source: model.SourceOverride}
		if prev, ok := s.facts[normKey(key)]; ok {
			f.Unit = prev.Unit
		}
		s.put(f)
	}

	return s
}

// FromFacts builds a store directly from facts, mostly for tests and
// callers that already hold resolved facts.
func FromFacts(facts ...model.CapabilityFact) *Store {
	s := &Store{facts: make(map[string]model.CapabilityFact, len(facts))}
	for _, f := range facts {
		s.put(f)
	}
	return s
}

func (s *Store) put(f model.CapabilityFact) {
	s.facts[normKey(f.Key)] = f
}

// Resolve returns the fact for key. Absence is reported through ok, never
// as an error.
func (s *Store) Resolve(key string) (model.CapabilityFact, bool) {
	if s == nil {
		return model.CapabilityFact{}, false
	}
	f, ok := s.facts[normKey(key)]
	return f, ok
}

// Facts returns all facts sorted by key.
func (s *Store) Facts() []model.CapabilityFact {
	if s == nil {
		return nil
	}
	out := make([]model.CapabilityFact, 0, len(s.facts))
	for _, f := range s.facts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return normKey(out[i].Key) < normKey(out[j].Key) })
	return out
}

// Keys returns all fact keys sorted.
func (s *Store) Keys() []string {
	facts := s.Facts()
	keys := make([]string, len(facts))
	for i, f := range facts {
		keys[i] = f.Key
	}
	return keys
}

// Len returns the number of facts.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.facts)
}

func normKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
