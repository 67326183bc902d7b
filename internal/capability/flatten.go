package capability

import (
	"strings"

	"github.com/sells-group/feasibility-cli/internal/model"
)

type emitFunc func(key string, v model.Value, unit string)

// flattenProfile emits one fact per populated profile field. Nil pointers
// and empty lists are skipped so that absence stays distinguishable from
// zero.
func flattenProfile(p model.SiteProfile, emit emitFunc) {
	pop := p.Population
	num(emit, "population.age_min_years", pop.AgeMinYears, "years")
	num(emit, "population.age_max_years", pop.AgeMaxYears, "years")
	str(emit, "population.sex", pop.Sex)
	num(emit, "population.annual_eligible_patients", pop.AnnualEligiblePatients, "patients/year")
	num(emit, "population.annual_patient_volume", pop.AnnualPatientVolume, "patients/year")
	num(emit, "population.enrollment_capacity_per_month", pop.EnrollmentCapacityPerMonth, "patients/month")
	list(emit, "population.indications", pop.Indications)
	list(emit, "population.age_groups", pop.AgeGroups)
	list(emit, "population.languages", pop.Languages)

	st := p.Staffing
	num(emit, "staffing.investigator_count", st.InvestigatorCount, "")
	num(emit, "staffing.coordinator_count", st.CoordinatorCount, "")
	num(emit, "staffing.coordinators_fte", st.CoordinatorsFTE, "fte")
	num(emit, "staffing.research_nurses", st.ResearchNurses, "")
	str(emit, "staffing.pi_name", st.PIName)
	flag(emit, "staffing.weekend_coverage", st.WeekendCoverage)
	list(emit, "staffing.investigator_specialties", st.InvestigatorSpecialties)
	list(emit, "staffing.certifications", st.Certifications)

	fac := p.Facilities
	for name, count := range fac.Equipment {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		emit("equipment."+name, model.NumberValue(count), "")
	}
	list(emit, "facilities.imaging", fac.Imaging)
	flag(emit, "facilities.onsite_lab", fac.OnsiteLab)
	flag(emit, "facilities.clia_certified", fac.CLIACertified)
	flag(emit, "facilities.freezer_minus80", fac.FreezerMinus80)
	num(emit, "facilities.procedure_rooms", fac.ProcedureRooms, "")
	num(emit, "facilities.infusion_chairs", fac.InfusionChairs, "")

	ops := p.Operations
	flag(emit, "operations.inpatient_support", ops.InpatientSupport)
	flag(emit, "operations.investigational_pharmacy", ops.InvestigationalPharmacy)
	str(emit, "operations.ehr", ops.EHR)
	list(emit, "operations.edc_systems", ops.EDCSystems)
	list(emit, "operations.departments", ops.Departments)

	h := p.History
	num(emit, "history.studies_last_5_years", h.StudiesLast5Years, "")
	num(emit, "history.active_studies", h.ActiveStudies, "")
	num(emit, "history.enrollment_success_rate", h.EnrollmentSuccessRate, "percent")
	num(emit, "history.retention_rate", h.RetentionRate, "percent")
	list(emit, "history.phase_experience", h.PhaseExperience)
	list(emit, "history.therapeutic_areas", h.TherapeuticAreas)

	c := p.Compliance
	flag(emit, "compliance.gcp_trained", c.GCPTrained)
	flag(emit, "compliance.iata_certified", c.IATACertified)
	str(emit, "compliance.irb_type", c.IRBType)
	num(emit, "compliance.last_audit_year", c.LastAuditYear, "")
	num(emit, "compliance.audit_findings", c.AuditFindings, "")
}

func num(emit emitFunc, key string, v *float64, unit string) {
	if v != nil {
		emit(key, model.NumberValue(*v), unit)
	}
}

func str(emit emitFunc, key string, v *string) {
	if v != nil {
		emit(key, model.StringValue(*v), "")
	}
}

func flag(emit emitFunc, key string, v *bool) {
	if v != nil {
		emit(key, model.BoolValue(*v), "")
	}
}

func list(emit emitFunc, key string, v []string) {
	if len(v) > 0 {
		emit(key, model.StringList(v...), "")
	}
}
