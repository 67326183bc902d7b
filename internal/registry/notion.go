package registry

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/feasibility-cli/internal/model"
	"github.com/sells-group/feasibility-cli/pkg/notion"
)

// LoadQuestionRegistry reads every Active question from a Notion
// questionnaire database. Expected properties: Text (title), Key (rich
// text, optional stable ID), Section (select), Objective (checkbox,
// default true) and Status. Malformed or duplicate pages are skipped.
func LoadQuestionRegistry(ctx context.Context, client notion.Client, dbID string) ([]model.Question, error) {
	pages, err := notion.QueryByStatus(ctx, client, dbID, "Active")
	if err != nil {
		return nil, eris.Wrap(err, "registry: load question registry")
	}

	questions := make([]model.Question, 0, len(pages))
	seen := make(map[string]bool, len(pages))
	for _, p := range pages {
		q, err := parseQuestionPage(p)
		if err != nil {
			zap.L().Warn("registry: skipping malformed question page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		if seen[q.ID] {
			zap.L().Warn("registry: skipping duplicate question", zap.String("question", q.ID))
			continue
		}
		seen[q.ID] = true
		questions = append(questions, q)
	}

	zap.L().Info("registry: loaded question registry",
		zap.String("database", dbID),
		zap.Int("questions", len(questions)),
	)
	return questions, nil
}

func parseQuestionPage(p notionapi.Page) (model.Question, error) {
	q := model.Question{
		ID:          strings.TrimSpace(notion.TextProperty(p, "Key")),
		Text:        strings.TrimSpace(notion.TextProperty(p, "Text")),
		Section:     notion.TextProperty(p, "Section"),
		IsObjective: true,
	}
	if q.ID == "" {
		q.ID = string(p.ID)
	}
	if v, ok := notion.CheckboxProperty(p, "Objective"); ok {
		q.IsObjective = v
	}
	if q.Text == "" {
		return q, eris.New("missing Text property")
	}
	return q, nil
}
