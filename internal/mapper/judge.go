package mapper

import (
	"context"
	"sort"
	"strings"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// JudgeRequest is the context given to the AI tier for one question.
type JudgeRequest struct {
	Question     model.Question
	Facts        []model.CapabilityFact
	Requirements []model.Requirement
}

// Judgment is a decisive answer from the AI tier. FactKeys lists the
// capability keys the answer relies on.
type Judgment struct {
	Answer    string
	Rationale string
	FactKeys  []string
	Usage     model.TokenUsage
}

// Judge answers questions the deterministic tiers could not. A Judge must
// honor ctx cancellation; any error degrades the question to unresolved.
type Judge interface {
	Judge(ctx context.Context, req JudgeRequest) (*Judgment, error)
}

// JudgeFunc adapts a function to the Judge interface.
type JudgeFunc func(ctx context.Context, req JudgeRequest) (*Judgment, error)

// Judge calls f.
func (f JudgeFunc) Judge(ctx context.Context, req JudgeRequest) (*Judgment, error) {
	return f(ctx, req)
}

var hedges = []string{
	"unclear", "cannot determine", "can't determine", "cannot be determined",
	"insufficient information", "not enough information", "unable to determine",
	"it depends", "depends on", "possibly", "perhaps", "might", "may or may not",
	"unknown", "not sure", "n a",
}

// IsDecisive reports whether an answer commits to a verdict instead of
// restating or hedging.
func IsDecisive(answer string) bool {
	n := Normalize(answer)
	if n == "" {
		return false
	}
	return !containsAny(n, hedges)
}

var evaluativeWords = []string{"adequate", "sufficient", "qualified", "appropriate", "enough", "suitable", "capable", "experienced"}

// isEvaluative reports whether a question asks for a judgment rather than
// a fact.
func isEvaluative(q model.Question, normalized string) bool {
	if !q.IsObjective {
		return true
	}
	return hasWordPrefix(normalized, evaluativeWords)
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "does": true, "site": true, "you": true,
	"your": true, "have": true, "what": true, "with": true, "this": true, "that": true,
	"are": true, "how": true, "many": true, "any": true, "there": true, "protocol": true,
	"study": true, "our": true, "is": true, "of": true, "to": true, "in": true,
}

func tokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range words(Normalize(s)) {
		if len(w) < 3 || stopwords[w] {
			continue
		}
		out[w] = true
		if strings.HasSuffix(w, "s") && len(w) > 3 {
			out[strings.TrimSuffix(w, "s")] = true
		}
	}
	return out
}

func overlap(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}

type scored[T any] struct {
	item  T
	score int
}

func topByScore[T any](items []scored[T], limit int) []T {
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })
	var out []T
	for _, s := range items {
		if s.score == 0 || len(out) == limit {
			break
		}
		out = append(out, s.item)
	}
	return out
}

// relevantFacts returns the facts whose keys or values share words with the
// question, best first.
func relevantFacts(question string, facts []model.CapabilityFact, limit int) []model.CapabilityFact {
	q := tokens(question)
	items := make([]scored[model.CapabilityFact], 0, len(facts))
	for _, f := range facts {
		t := tokens(f.Key)
		for w := range tokens(f.Value.String()) {
			t[w] = true
		}
		items = append(items, scored[model.CapabilityFact]{item: f, score: overlap(q, t)})
	}
	return topByScore(items, limit)
}

// relevantRequirements returns requirements that share words with the
// question through their key, category or source text.
func relevantRequirements(question string, reqs []model.Requirement, limit int) []model.Requirement {
	q := tokens(question)
	items := make([]scored[model.Requirement], 0, len(reqs))
	for _, r := range reqs {
		t := tokens(r.Key + " " + r.Category + " " + r.SourceText)
		items = append(items, scored[model.Requirement]{item: r, score: overlap(q, t)})
	}
	return topByScore(items, limit)
}

// verifiable reports whether a judgment references a fact that is on file:
// either a cited key that resolves, or a relevant fact value quoted in the
// answer.
func verifiable(j *Judgment, store Resolver, facts []model.CapabilityFact) bool {
	for _, k := range j.FactKeys {
		if _, ok := store.Resolve(k); ok {
			return true
		}
	}
	answer := " " + Normalize(j.Answer+" "+j.Rationale) + " "
	for _, f := range facts {
		for _, v := range f.Value.Strings() {
			n := Normalize(v)
			if len(n) < 2 || n == "true" || n == "false" {
				continue
			}
			if strings.Contains(answer, " "+n+" ") {
				return true
			}
		}
	}
	return false
}
