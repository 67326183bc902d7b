package mapper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// Intent is the kind of answer a question is asking for.
type Intent string

const (
	IntentNone              Intent = ""
	IntentAgeRange          Intent = "age-range"
	IntentEnrollmentVolume  Intent = "enrollment-volume"
	IntentEquipmentPresence Intent = "equipment-presence"
	IntentStaffCount        Intent = "staff-count"
	IntentPopulationSize    Intent = "population-size"
)

// Resolver looks up capability facts by key.
type Resolver interface {
	Resolve(key string) (model.CapabilityFact, bool)
}

// FactLister is a Resolver that can also enumerate its facts.
type FactLister interface {
	Resolver
	Facts() []model.CapabilityFact
}

// shapes constrain the answer each intent may return.
var shapes = map[Intent]*regexp.Regexp{
	IntentAgeRange:          regexp.MustCompile(`^(\d+(\.\d+)?(-\d+(\.\d+)?|\+)|up to \d+(\.\d+)?) years$`),
	IntentEnrollmentVolume:  regexp.MustCompile(`^\d+(\.\d+)? patients/(month|year)$`),
	IntentPopulationSize:    regexp.MustCompile(`^\d+(\.\d+)? patients/year$`),
	IntentStaffCount:        regexp.MustCompile(`^\d+$`),
	IntentEquipmentPresence: regexp.MustCompile(`(?i)^(yes|no)\b`),
}

// FitsIntent reports whether value has the shape intent requires. Values
// for questions without an intent always fit.
func FitsIntent(intent Intent, value string) bool {
	re, ok := shapes[intent]
	if !ok {
		return true
	}
	return re.MatchString(strings.TrimSpace(value))
}

var presenceLead = []string{"do you have", "does the site have", "is there", "are there", "do you own", "access to", "have access", "on site", "onsite"}

var enrollWords = []string{"enrol", "recruit", "randomiz", "randomis"}

var populationWords = []string{"patients do you see", "patient volume", "eligible patients", "patient population", "patients per year", "patients annually", "patients seen"}

var staffRoles = map[string]string{
	"coordinator":      "staffing.coordinator_count",
	"coordinators":     "staffing.coordinator_count",
	"crc":              "staffing.coordinator_count",
	"crcs":             "staffing.coordinator_count",
	"investigator":     "staffing.investigator_count",
	"investigators":    "staffing.investigator_count",
	"subinvestigators": "staffing.investigator_count",
	"nurse":            "staffing.research_nurses",
	"nurses":           "staffing.research_nurses",
}

var genericEquipmentWords = map[string]bool{
	"scanner": true, "scanners": true, "machine": true, "machines": true,
	"unit": true, "units": true, "system": true, "systems": true,
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(text, p) {
			return true
		}
	}
	return false
}

func hasWordPrefix(text string, prefixes []string) bool {
	for _, w := range words(text) {
		for _, p := range prefixes {
			if strings.HasPrefix(w, p) {
				return true
			}
		}
	}
	return false
}

// DetectIntent classifies a normalized question.
func DetectIntent(normalized string) Intent {
	switch {
	case containsPhrase(normalized, "age") || containsPhrase(normalized, "ages"):
		return IntentAgeRange
	case containsAny(normalized, presenceLead) && !containsPhrase(normalized, "how many"):
		return IntentEquipmentPresence
	case containsPhrase(normalized, "how many") && staffRole(normalized) != "":
		return IntentStaffCount
	case hasWordPrefix(normalized, enrollWords):
		return IntentEnrollmentVolume
	case containsAny(normalized, populationWords):
		return IntentPopulationSize
	default:
		return IntentNone
	}
}

func staffRole(normalized string) string {
	for _, w := range words(normalized) {
		if key, ok := staffRoles[w]; ok {
			return key
		}
	}
	return ""
}

// heuristic answers a question of a known intent from the store. ok is
// false when the store has no data that fits.
func heuristic(intent Intent, normalized string, store FactLister) (value, key string, ok bool) {
	switch intent {
	case IntentAgeRange:
		return ageRange(store)
	case IntentEnrollmentVolume:
		return enrollmentVolume(normalized, store)
	case IntentPopulationSize:
		for _, k := range []string{"population.annual_eligible_patients", "population.annual_patient_volume"} {
			if n, ok := number(store, k); ok {
				return formatNum(n) + " patients/year", k, true
			}
		}
	case IntentStaffCount:
		k := staffRole(normalized)
		if n, ok := number(store, k); ok && n >= 0 && n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10), k, true
		}
	case IntentEquipmentPresence:
		return equipmentPresence(normalized, store)
	}
	return "", "", false
}

func number(store Resolver, key string) (float64, bool) {
	if key == "" {
		return 0, false
	}
	f, ok := store.Resolve(key)
	if !ok {
		return 0, false
	}
	return f.Value.AsNumber()
}

func formatNum(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func ageRange(store Resolver) (string, string, bool) {
	lo, hasLo := number(store, "population.age_min_years")
	hi, hasHi := number(store, "population.age_max_years")
	switch {
	case hasLo && hasHi:
		return fmt.Sprintf("%s-%s years", formatNum(lo), formatNum(hi)), "population.age_min_years", true
	case hasLo:
		return fmt.Sprintf("%s+ years", formatNum(lo)), "population.age_min_years", true
	case hasHi:
		return fmt.Sprintf("up to %s years", formatNum(hi)), "population.age_max_years", true
	}
	return "", "", false
}

func enrollmentVolume(normalized string, store Resolver) (string, string, bool) {
	const monthly = "population.enrollment_capacity_per_month"
	n, ok := number(store, monthly)
	if !ok {
		return "", "", false
	}
	if asksAnnual(normalized) {
		return formatNum(n*12) + " patients/year", monthly, true
	}
	return formatNum(n) + " patients/month", monthly, true
}

func asksAnnual(normalized string) bool {
	return containsAny(normalized, []string{"per year", "annually", "annual", "a year", "each year"})
}

// equipmentPresence matches the question against equipment.* keys by their
// distinctive label words, then falls back to the imaging modality list.
func equipmentPresence(normalized string, store FactLister) (string, string, bool) {
	for _, f := range store.Facts() {
		key := strings.ToLower(f.Key)
		if !strings.HasPrefix(key, "equipment.") {
			continue
		}
		label := strings.TrimPrefix(key, "equipment.")
		var distinctive []string
		for _, w := range strings.Split(label, "_") {
			if w != "" && !genericEquipmentWords[w] {
				distinctive = append(distinctive, w)
			}
		}
		if len(distinctive) == 0 || !containsPhrase(normalized, strings.Join(distinctive, " ")) {
			continue
		}
		if n, ok := f.Value.AsNumber(); ok {
			return yesNo(n > 0), f.Key, true
		}
		if f.Value.Kind == model.KindBool {
			return yesNo(f.Value.Bool), f.Key, true
		}
	}

	if f, ok := store.Resolve("facilities.imaging"); ok {
		for _, m := range f.Value.Strings() {
			if n := Normalize(m); n != "" && containsPhrase(normalized, n) {
				return "Yes", f.Key, true
			}
		}
	}
	return "", "", false
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
