package generate

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"examgen-server/internal/model"
)

// draftSchema is the structural contract a repaired question draft must
// meet before it counts toward a task's quota.
const draftSchema = `{
	"type": "object",
	"required": ["question", "correct_answer"],
	"properties": {
		"question": {"type": "string", "minLength": 1},
		"question_type": {"type": "string"},
		"options": {"type": "array", "items": {"type": "string"}},
		"correct_answer": {"type": "string", "minLength": 1},
		"explanation": {"type": "string"},
		"marks": {"type": "integer", "minimum": 0},
		"bloom_level": {"type": "string"},
		"course_outcome": {"type": "string"}
	}
}`

var (
	compileDraftSchema sync.Once
	compiledDraft      *jsonschema.Schema
	compileErr         error
)

func draftValidator() (*jsonschema.Schema, error) {
	compileDraftSchema.Do(func() {
		var parsed any
		if err := json.Unmarshal([]byte(draftSchema), &parsed); err != nil {
			compileErr = fmt.Errorf("parse draft schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://question-draft.json", parsed); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledDraft, compileErr = c.Compile("schema://question-draft.json")
	})
	return compiledDraft, compileErr
}

// ValidDrafts filters out drafts that fail schema validation. Repair is
// permissive by design; this is the strict gate behind it.
func ValidDrafts(drafts []model.QuestionDraft) []model.QuestionDraft {
	schema, err := draftValidator()
	if err != nil {
		// A broken built-in schema is a programming error; fail open so
		// generation still works.
		return drafts
	}

	var out []model.QuestionDraft
	for _, d := range drafts {
		raw, err := json.Marshal(d)
		if err != nil {
			continue
		}
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			continue
		}
		if err := schema.Validate(parsed); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}
