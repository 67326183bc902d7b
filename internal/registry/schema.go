package registry

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// Structural schemas. They check document shape only; per-requirement
// semantics (operator names, weight > 0) are left to model.Requirement.Validate
// so one bad row is rejected instead of failing the whole file.
const requirementsSchemaJSON = `{
  "type": "object",
  "required": ["requirements"],
  "properties": {
    "protocol_id": {"type": "string"},
    "requirements": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "key", "operator", "weight"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "key": {"type": "string"},
          "operator": {"type": "string"},
          "value": {"type": ["string", "number", "boolean", "array", "null"]},
          "weight": {"type": "number"},
          "category": {"type": "string"},
          "type": {"type": "string"},
          "criticality": {"type": "string"},
          "source_text": {"type": "string"},
          "unit": {"type": "string"}
        }
      }
    }
  }
}`

const questionsSchemaJSON = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "text"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "text": {"type": "string", "minLength": 1},
          "is_objective": {"type": "boolean"},
          "section": {"type": "string"}
        }
      }
    }
  }
}`

const profileSchemaJSON = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "population": {"type": "object"},
    "staffing": {"type": "object"},
    "facilities": {
      "type": "object",
      "properties": {
        "equipment": {"type": "object", "additionalProperties": {"type": "number"}}
      }
    },
    "operations": {"type": "object"},
    "history": {"type": "object"},
    "compliance": {"type": "object"},
    "facts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["key", "value"],
        "properties": {
          "key": {"type": "string"},
          "value": {
            "type": ["string", "number", "boolean", "array"],
            "items": {"type": ["string", "number", "boolean"]}
          },
          "unit": {"type": "string"},
          "evidence_required": {"type": "boolean"}
        }
      }
    }
  }
}`

var (
	requirementsSchema = mustSchema(requirementsSchemaJSON)
	questionsSchema    = mustSchema(questionsSchemaJSON)
	profileSchema      = mustSchema(profileSchemaJSON)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return schema
}

// validate checks a decoded document against schema. Violations wrap
// model.ErrMalformedInput and list every failing field.
func validate(schema *gojsonschema.Schema, doc any, what string) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return eris.Wrapf(model.ErrMalformedInput, "registry: validate %s: %v", what, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		msgs[i] = desc.String()
	}
	return eris.Wrapf(model.ErrMalformedInput, "registry: invalid %s: %s", what, strings.Join(msgs, "; "))
}
