package model

// Question is a free-text feasibility questionnaire item.
type Question struct {
	ID          string `json:"id" yaml:"id"`
	Text        string `json:"text" yaml:"text"`
	IsObjective bool   `json:"is_objective" yaml:"is_objective"`
	Section     string `json:"section,omitempty" yaml:"section,omitempty"`
}

// ConfidenceBand grades how trustworthy an autofilled answer is.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

// MappingSource is the resolution tier that produced an answer.
type MappingSource string

const (
	SourceExactKey   MappingSource = "exact-key"
	SourceHeuristic  MappingSource = "heuristic"
	SourceAIJudgment MappingSource = "ai-judgment"
	SourceUnresolved MappingSource = "unresolved"
)

// MappingResult is the autofill answer for one question. Locked is true
// exactly when the band is high.
type MappingResult struct {
	QuestionID     string         `json:"question_id"`
	Value          string         `json:"value"`
	ConfidenceBand ConfidenceBand `json:"confidence_band"`
	Source         MappingSource  `json:"source"`
	Locked         bool           `json:"locked"`
	Rationale      string         `json:"rationale,omitempty"`
	FieldKey       string         `json:"field_key,omitempty"`
	Intent         string         `json:"intent,omitempty"`
}

// Unresolved returns the low-confidence result used when no tier answers.
func Unresolved(questionID, rationale string) MappingResult {
	return MappingResult{
		QuestionID:     questionID,
		ConfidenceBand: BandLow,
		Source:         SourceUnresolved,
		Rationale:      rationale,
	}
}

// TokenUsage tracks token consumption of the AI tier.
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Calls        int     `json:"calls"`
	Cost         float64 `json:"cost"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.Calls += other.Calls
	t.Cost += other.Cost
}
