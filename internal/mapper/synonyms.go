package mapper

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// SynonymTable maps canonical question phrases to capability keys.
// Phrases are stored normalized and matched longest first.
type SynonymTable struct {
	entries []synonym
}

type synonym struct {
	phrase string
	key    string
}

// synonymFile is the on-disk YAML shape: capability key -> phrases.
type synonymFile struct {
	Synonyms map[string][]string `yaml:"synonyms"`
}

// NewSynonymTable builds a table from key -> phrases.
func NewSynonymTable(byKey map[string][]string) *SynonymTable {
	t := &SynonymTable{}
	for key, phrases := range byKey {
		t.Add(key, phrases...)
	}
	return t
}

// Add registers phrases for key. Empty phrases are ignored.
func (t *SynonymTable) Add(key string, phrases ...string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	for _, p := range phrases {
		n := Normalize(p)
		if n == "" {
			continue
		}
		t.entries = append(t.entries, synonym{phrase: n, key: key})
	}
	sort.SliceStable(t.entries, func(i, j int) bool {
		li, lj := len(t.entries[i].phrase), len(t.entries[j].phrase)
		if li != lj {
			return li > lj
		}
		return t.entries[i].phrase < t.entries[j].phrase
	})
}

// Len returns the number of phrases.
func (t *SynonymTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Lookup returns the capability keys whose phrase occurs in the normalized
// question, longest phrase first.
func (t *SynonymTable) Lookup(normalized string) []string {
	if t == nil {
		return nil
	}
	var keys []string
	seen := make(map[string]bool)
	for _, e := range t.entries {
		if seen[e.key] {
			continue
		}
		if normalized == e.phrase || containsPhrase(normalized, e.phrase) {
			keys = append(keys, e.key)
			seen[e.key] = true
		}
	}
	return keys
}

// LoadSynonyms reads a YAML synonym file and merges it over the defaults.
func LoadSynonyms(path string) (*SynonymTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mapper: read synonyms %s", path)
	}
	var f synonymFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "mapper: parse synonyms %s", path)
	}
	t := DefaultSynonyms()
	for key, phrases := range f.Synonyms {
		t.Add(key, phrases...)
	}
	return t, nil
}

// DefaultSynonyms returns the built-in phrase table for common
// feasibility questionnaire items.
func DefaultSynonyms() *SynonymTable {
	return NewSynonymTable(map[string][]string{
		"equipment.ct_scanners":                    {"ct scanner count", "number of ct scanners", "how many ct scanners"},
		"equipment.mri":                            {"mri count", "number of mri machines", "how many mri machines", "how many mri scanners"},
		"equipment.pet_scanners":                   {"number of pet scanners", "how many pet scanners"},
		"staffing.investigator_count":              {"number of investigators", "how many investigators", "investigator count"},
		"staffing.coordinator_count":               {"number of study coordinators", "number of coordinators", "coordinator count", "how many study coordinators"},
		"staffing.research_nurses":                 {"number of research nurses", "how many research nurses"},
		"staffing.pi_name":                         {"principal investigator name", "name of the principal investigator", "pi name"},
		"staffing.investigator_specialties":        {"investigator specialties", "specialties of investigators"},
		"operations.ehr":                           {"electronic health record system", "ehr system", "which ehr"},
		"operations.edc_systems":                   {"edc systems", "electronic data capture systems"},
		"population.annual_eligible_patients":      {"annual eligible patients", "eligible patients per year"},
		"population.enrollment_capacity_per_month": {"enrollment capacity per month", "monthly enrollment capacity"},
		"population.indications":                   {"indications treated", "therapeutic indications"},
		"population.languages":                     {"languages spoken", "patient languages"},
		"history.studies_last_5_years":             {"studies in the last 5 years", "number of studies in the past 5 years"},
		"history.phase_experience":                 {"phase experience", "trial phases conducted"},
		"history.therapeutic_areas":                {"therapeutic areas", "therapeutic area experience"},
		"history.retention_rate":                   {"retention rate", "patient retention rate"},
		"compliance.irb_type":                      {"irb type", "type of irb", "central or local irb"},
		"compliance.gcp_trained":                   {"gcp training", "gcp trained staff"},
		"compliance.iata_certified":                {"iata certification", "iata certified"},
		"facilities.freezer_minus80":               {"minus 80 freezer", "80 freezer", "80c freezer", "80 c freezer"},
		"facilities.clia_certified":                {"clia certified lab", "clia certification"},
		"operations.investigational_pharmacy":      {"investigational pharmacy", "research pharmacy"},
	})
}
