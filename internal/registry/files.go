// Package registry loads protocol requirements, questionnaires and site
// profiles from YAML/JSON files and from a Notion question database.
package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// RequirementSet is a protocol's requirement list as stored on disk.
type RequirementSet struct {
	ProtocolID   string              `json:"protocol_id" yaml:"protocol_id"`
	Requirements []model.Requirement `json:"requirements" yaml:"requirements"`
}

type questionFile struct {
	Questions []model.Question `yaml:"questions"`
}

// LoadRequirements reads a requirement file. Structural problems wrap
// model.ErrMalformedInput; individual requirements are not validated here.
func LoadRequirements(path string) (*RequirementSet, error) {
	var set RequirementSet
	if err := loadChecked(path, requirementsSchema, "requirements", &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// LoadQuestions reads a questionnaire file. Duplicate question IDs are a
// structural error.
func LoadQuestions(path string) ([]model.Question, error) {
	var f questionFile
	if err := loadChecked(path, questionsSchema, "questions", &f); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(f.Questions))
	for _, q := range f.Questions {
		if seen[q.ID] {
			return nil, eris.Wrapf(model.ErrMalformedInput, "registry: duplicate question id %q in %s", q.ID, path)
		}
		seen[q.ID] = true
	}
	return f.Questions, nil
}

// LoadProfile reads a site profile file.
func LoadProfile(path string) (*model.SiteProfile, error) {
	var p model.SiteProfile
	if err := loadChecked(path, profileSchema, "profile", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// loadChecked decodes path twice: once untyped for schema validation,
// then into out.
func loadChecked(path string, schema *gojsonschema.Schema, what string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "registry: read %s", path)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return eris.Wrapf(model.ErrMalformedInput, "registry: parse %s: %v", path, err)
	}
	if err := validate(schema, doc, what+" "+path); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return eris.Wrapf(model.ErrMalformedInput, "registry: decode %s: %v", path, err)
	}
	return nil
}
