package main

import (
	"errors"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/feasibility-cli/internal/config"
	"github.com/sells-group/feasibility-cli/internal/model"
	"github.com/sells-group/feasibility-cli/internal/registry"
	"github.com/sells-group/feasibility-cli/pkg/notion"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Manage feasibility questionnaires",
}

// -- questions pull --

var questionsPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Export the Notion question registry to a questionnaire file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeQuestions); err != nil {
			return err
		}

		client := notion.NewClient(cfg.Notion.Token,
			notion.WithRateLimit(cfg.Notion.RateLimit),
			notion.WithRetries(cfg.Notion.Retries),
		)
		qs, err := registry.LoadQuestionRegistry(ctx, client, cfg.Notion.QuestionDB)
		if errors.Is(err, notion.ErrAccessDenied) {
			return eris.Wrap(err, "questions pull: share the question database with the integration")
		}
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" || out == "-" {
			return writeQuestions(os.Stdout, qs)
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "questions pull: create %s", out)
		}
		defer f.Close() //nolint:errcheck
		if err := writeQuestions(f, qs); err != nil {
			return err
		}
		zap.L().Info("questions: wrote questionnaire",
			zap.String("path", out),
			zap.Int("questions", len(qs)),
		)
		return nil
	},
}

func init() {
	questionsPullCmd.Flags().StringP("out", "o", "", "output file (default stdout)")

	questionsCmd.AddCommand(questionsPullCmd)
	rootCmd.AddCommand(questionsCmd)
}

// writeQuestions encodes qs in the questionnaire file format read by
// registry.LoadQuestions.
func writeQuestions(w io.Writer, qs []model.Question) error {
	if qs == nil {
		qs = []model.Question{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(struct {
		Questions []model.Question `yaml:"questions"`
	}{qs}); err != nil {
		return eris.Wrap(err, "questions: encode")
	}
	return eris.Wrap(enc.Close(), "questions: encode")
}
