package catalog

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// payloadSchema pairs a schema name with its JSON Schema definition.
type payloadSchema struct {
	Name       string
	Definition map[string]any
}

// subjectsSchema validates the /v1/subjects response envelope.
var subjectsSchema = &payloadSchema{
	Name: "catalog-subjects",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subjects": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"slug":           map[string]any{"type": "string", "minLength": 1},
						"name":           map[string]any{"type": "string", "minLength": 1},
						"description":    map[string]any{"type": "string"},
						"question_count": map[string]any{"type": "integer", "minimum": 0},
					},
					"required": []any{"slug", "name"},
				},
			},
		},
		"required": []any{"subjects"},
	},
}

// examTypesSchema validates the /v1/exam-types response envelope.
var examTypesSchema = &payloadSchema{
	Name: "catalog-exam-types",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"exam_types": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"slug": map[string]any{"type": "string", "minLength": 1},
						"name": map[string]any{"type": "string", "minLength": 1},
						"subjects": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required": []any{"slug", "name"},
				},
			},
		},
		"required": []any{"exam_types"},
	},
}

// questionsSchema validates the questions response envelope.
var questionsSchema = &payloadSchema{
	Name: "catalog-questions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":      map[string]any{"type": "string", "minLength": 1},
						"subject": map[string]any{"type": "string", "minLength": 1},
						"prompt":  map[string]any{"type": "string", "minLength": 1},
						"choices": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"key":  map[string]any{"type": "string", "minLength": 1},
									"text": map[string]any{"type": "string"},
								},
								"required": []any{"key", "text"},
							},
							"minItems": 2,
						},
						"answer":      map[string]any{"type": "string", "minLength": 1},
						"explanation": map[string]any{"type": "string"},
						"difficulty":  map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
					},
					"required": []any{"id", "subject", "prompt", "choices", "answer"},
				},
			},
		},
		"required": []any{"questions"},
	},
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// validatePayload validates raw JSON against the given payload schema.
// Returns *ErrInvalidPayload on malformed JSON or schema violation.
func validatePayload(schema *payloadSchema, endpoint string, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ErrInvalidPayload{
			Endpoint: endpoint,
			Err:      fmt.Errorf("invalid JSON: %w", err),
		}
	}

	compiled, err := compiledSchema(schema)
	if err != nil {
		return &ErrInvalidPayload{
			Endpoint: endpoint,
			Err:      fmt.Errorf("compile schema %q: %w", schema.Name, err),
		}
	}

	if err := compiled.Validate(parsed); err != nil {
		return &ErrInvalidPayload{
			Endpoint: endpoint,
			Err:      fmt.Errorf("schema validation failed: %w", err),
		}
	}

	return nil
}

// compiledSchema returns a cached compiled schema or compiles and caches it.
func compiledSchema(schema *payloadSchema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a parsed JSON value, not raw bytes; round-trip the
	// definition through encoding/json to get one.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
