package model

// Outcome is the three-valued result of evaluating one requirement.
type Outcome string

const (
	Pass    Outcome = "pass"
	Fail    Outcome = "fail"
	Unknown Outcome = "unknown"
)

// Cause explains an unknown outcome.
type Cause string

const (
	CauseNone              Cause = ""
	CauseMissingCapability Cause = "missing-capability"
	CauseTypeMismatch      Cause = "type-mismatch"
)

// Verdict is the evaluation result for a single requirement.
type Verdict struct {
	RequirementID string  `json:"requirement_id"`
	Outcome       Outcome `json:"outcome"`
	ObservedValue *Value  `json:"observed_value,omitempty"`
	Cause         Cause   `json:"cause,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

// Err returns the contained error kind behind an unknown verdict, or nil.
func (v Verdict) Err() error {
	switch v.Cause {
	case CauseMissingCapability:
		return ErrMissingCapability
	case CauseTypeMismatch:
		return ErrTypeMismatch
	default:
		return nil
	}
}

// CategoryScore holds the earned and possible weight of one category.
type CategoryScore struct {
	Earned   float64 `json:"earned"`
	Possible float64 `json:"possible"`
}

// ScoreResult is the weighted aggregate over all verdicts.
type ScoreResult struct {
	ByCategory                  map[string]CategoryScore `json:"by_category"`
	Overall                     int                      `json:"overall"`
	Disqualified                bool                     `json:"disqualified"`
	DisqualifyingRequirementIDs []string                 `json:"disqualifying_requirement_ids,omitempty"`
	NoRequirements              bool                     `json:"no_requirements,omitempty"`
	CoveragePct                 int                      `json:"coverage_pct"`
}

// Gap is the human-readable explanation of one non-passing requirement.
type Gap struct {
	RequirementID string      `json:"requirement_id"`
	Category      string      `json:"category"`
	Criticality   Criticality `json:"criticality"`
	Outcome       Outcome     `json:"outcome"`
	Explanation   string      `json:"explanation"`
}

// Rejection records a requirement excluded from scoring as malformed.
type Rejection struct {
	RequirementID string `json:"requirement_id"`
	Reason        string `json:"reason"`
}
