package model

import (
	"encoding/json"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FactSource records which layer of the capability store produced a fact.
type FactSource string

const (
	SourceFactTable FactSource = "fact-table"
	SourceProfile   FactSource = "profile"
	SourceOverride  FactSource = "override"
)

// CapabilityFact is one keyed, typed fact about a site.
type CapabilityFact struct {
	Key              string     `json:"key"`
	Value            Value      `json:"value"`
	Unit             string     `json:"unit,omitempty"`
	EvidenceRequired bool       `json:"evidence_required,omitempty"`
	Source           FactSource `json:"source"`
}

// FactRow is a row of the flat fact table. Values are stored as text and
// parsed with ParseValue. Decoding accepts typed scalars and sequences.
type FactRow struct {
	Key              string `json:"key" yaml:"key"`
	Value            string `json:"value" yaml:"value"`
	Unit             string `json:"unit,omitempty" yaml:"unit,omitempty"`
	EvidenceRequired bool   `json:"evidence_required,omitempty" yaml:"evidence_required,omitempty"`
}

type typedFactRow struct {
	Key              string `json:"key" yaml:"key"`
	Value            Value  `json:"value" yaml:"value"`
	Unit             string `json:"unit" yaml:"unit"`
	EvidenceRequired bool   `json:"evidence_required" yaml:"evidence_required"`
}

func (t typedFactRow) row() FactRow {
	return FactRow{
		Key:              t.Key,
		Value:            FactText(t.Value),
		Unit:             t.Unit,
		EvidenceRequired: t.EvidenceRequired,
	}
}

// FactText renders v in the fact table's text form, which ParseValue reads
// back: lists are bracketed, scalars are plain.
func FactText(v Value) string {
	if v.Kind != KindList {
		return v.String()
	}
	return "[" + strings.Join(v.Strings(), ", ") + "]"
}

// UnmarshalYAML decodes a fact row whose value may be a scalar or sequence.
func (r *FactRow) UnmarshalYAML(node *yaml.Node) error {
	var t typedFactRow
	if err := node.Decode(&t); err != nil {
		return err
	}
	*r = t.row()
	return nil
}

// UnmarshalJSON decodes a fact row whose value may be a scalar or array.
func (r *FactRow) UnmarshalJSON(data []byte) error {
	var t typedFactRow
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	*r = t.row()
	return nil
}

// SiteProfile is the structured capability profile of one research site.
// Nil pointers and empty slices mean "no data".
type SiteProfile struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Population Population `json:"population" yaml:"population"`
	Staffing   Staffing   `json:"staffing" yaml:"staffing"`
	Facilities Facilities `json:"facilities" yaml:"facilities"`
	Operations Operations `json:"operations" yaml:"operations"`
	History    History    `json:"history" yaml:"history"`
	Compliance Compliance `json:"compliance" yaml:"compliance"`
	Facts      []FactRow  `json:"facts,omitempty" yaml:"facts,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Population describes the patients a site can reach.
type Population struct {
	AgeMinYears                *float64 `json:"age_min_years,omitempty" yaml:"age_min_years,omitempty"`
	AgeMaxYears                *float64 `json:"age_max_years,omitempty" yaml:"age_max_years,omitempty"`
	Sex                        *string  `json:"sex,omitempty" yaml:"sex,omitempty"`
	AnnualEligiblePatients     *float64 `json:"annual_eligible_patients,omitempty" yaml:"annual_eligible_patients,omitempty"`
	AnnualPatientVolume        *float64 `json:"annual_patient_volume,omitempty" yaml:"annual_patient_volume,omitempty"`
	EnrollmentCapacityPerMonth *float64 `json:"enrollment_capacity_per_month,omitempty" yaml:"enrollment_capacity_per_month,omitempty"`
	Indications                []string `json:"indications,omitempty" yaml:"indications,omitempty"`
	AgeGroups                  []string `json:"age_groups,omitempty" yaml:"age_groups,omitempty"`
	Languages                  []string `json:"languages,omitempty" yaml:"languages,omitempty"`
}

// Staffing describes the research team.
type Staffing struct {
	InvestigatorCount       *float64 `json:"investigator_count,omitempty" yaml:"investigator_count,omitempty"`
	CoordinatorCount        *float64 `json:"coordinator_count,omitempty" yaml:"coordinator_count,omitempty"`
	CoordinatorsFTE         *float64 `json:"coordinators_fte,omitempty" yaml:"coordinators_fte,omitempty"`
	ResearchNurses          *float64 `json:"research_nurses,omitempty" yaml:"research_nurses,omitempty"`
	PIName                  *string  `json:"pi_name,omitempty" yaml:"pi_name,omitempty"`
	WeekendCoverage         *bool    `json:"weekend_coverage,omitempty" yaml:"weekend_coverage,omitempty"`
	InvestigatorSpecialties []string `json:"investigator_specialties,omitempty" yaml:"investigator_specialties,omitempty"`
	Certifications          []string `json:"certifications,omitempty" yaml:"certifications,omitempty"`
}

// Facilities describes physical capabilities. Equipment counts are keyed
// by equipment name and flatten to "equipment.<name>".
type Facilities struct {
	Equipment      map[string]float64 `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	Imaging        []string           `json:"imaging,omitempty" yaml:"imaging,omitempty"`
	OnsiteLab      *bool              `json:"onsite_lab,omitempty" yaml:"onsite_lab,omitempty"`
	CLIACertified  *bool              `json:"clia_certified,omitempty" yaml:"clia_certified,omitempty"`
	FreezerMinus80 *bool              `json:"freezer_minus80,omitempty" yaml:"freezer_minus80,omitempty"`
	ProcedureRooms *float64           `json:"procedure_rooms,omitempty" yaml:"procedure_rooms,omitempty"`
	InfusionChairs *float64           `json:"infusion_chairs,omitempty" yaml:"infusion_chairs,omitempty"`
}

// Operations describes how the site runs studies.
type Operations struct {
	InpatientSupport        *bool    `json:"inpatient_support,omitempty" yaml:"inpatient_support,omitempty"`
	InvestigationalPharmacy *bool    `json:"investigational_pharmacy,omitempty" yaml:"investigational_pharmacy,omitempty"`
	EHR                     *string  `json:"ehr,omitempty" yaml:"ehr,omitempty"`
	EDCSystems              []string `json:"edc_systems,omitempty" yaml:"edc_systems,omitempty"`
	Departments             []string `json:"departments,omitempty" yaml:"departments,omitempty"`
}

// History describes the site's research track record.
type History struct {
	StudiesLast5Years     *float64 `json:"studies_last_5_years,omitempty" yaml:"studies_last_5_years,omitempty"`
	ActiveStudies         *float64 `json:"active_studies,omitempty" yaml:"active_studies,omitempty"`
	EnrollmentSuccessRate *float64 `json:"enrollment_success_rate,omitempty" yaml:"enrollment_success_rate,omitempty"`
	RetentionRate         *float64 `json:"retention_rate,omitempty" yaml:"retention_rate,omitempty"`
	PhaseExperience       []string `json:"phase_experience,omitempty" yaml:"phase_experience,omitempty"`
	TherapeuticAreas      []string `json:"therapeutic_areas,omitempty" yaml:"therapeutic_areas,omitempty"`
}

// Compliance describes regulatory readiness.
type Compliance struct {
	GCPTrained    *bool    `json:"gcp_trained,omitempty" yaml:"gcp_trained,omitempty"`
	IATACertified *bool    `json:"iata_certified,omitempty" yaml:"iata_certified,omitempty"`
	IRBType       *string  `json:"irb_type,omitempty" yaml:"irb_type,omitempty"`
	LastAuditYear *float64 `json:"last_audit_year,omitempty" yaml:"last_audit_year,omitempty"`
	AuditFindings *float64 `json:"audit_findings,omitempty" yaml:"audit_findings,omitempty"`
}
