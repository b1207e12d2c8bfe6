package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Model output must conform exactly; anything else is a hard pipeline
// failure, never coerced.
const rolesSchemaJSON = `{
	"type": "object",
	"required": ["summary", "roles"],
	"properties": {
		"summary": {"type": "string", "minLength": 1},
		"roles": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title", "description", "projects", "skills"],
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"projects": {"type": "array", "items": {"type": "string"}},
					"skills": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`

const summarySchemaJSON = `{
	"type": "object",
	"required": ["summary"],
	"properties": {
		"summary": {"type": "string", "minLength": 1}
	}
}`

var (
	rolesSchema   = jsonschema.MustCompileString("roles.json", rolesSchemaJSON)
	summarySchema = jsonschema.MustCompileString("summary.json", summarySchemaJSON)
)

// StripFences removes a Markdown code-fence wrapper, which models add around
// JSON output despite instructions not to.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	} else {
		return s
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Parse validates raw model output against the schema for mode and decodes it
// into a Result. A parse or schema failure is returned as an error carrying
// enough detail to diagnose; callers must not use a partially decoded value.
func Parse(raw string, mode Mode) (*Result, error) {
	cleaned := StripFences(raw)

	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}

	schema := rolesSchema
	if mode == ModeSummarize {
		schema = summarySchema
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("model output failed schema validation: %w", err)
	}

	var res Result
	if err := json.Unmarshal([]byte(cleaned), &res); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	return &res, nil
}
