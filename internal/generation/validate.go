package generation

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Canonical shapes of normalized output. These are static, unlike the
// structured-output schemas sent to the provider.
var (
	canonicalFlashcard = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"front": map[string]any{"type": "string", "minLength": 1},
			"back":  map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []string{"front", "back"},
		"additionalProperties": false,
	}

	canonicalFlashcards = Schema{
		Name: "canonical-flashcards",
		Definition: map[string]any{
			"type":  "array",
			"items": canonicalFlashcard,
		},
	}

	canonicalDeck = Schema{
		Name: "canonical-deck",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":       map[string]any{"type": "string", "minLength": 1},
				"description": map[string]any{"type": "string"},
				"cards": map[string]any{
					"type":     "array",
					"minItems": 1,
					"items":    canonicalFlashcard,
				},
			},
			"required": []string{"title", "description", "cards"},
		},
	}

	canonicalDistractors = Schema{
		Name: "canonical-distractors",
		Definition: map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
				"oneOf": []any{
					map[string]any{"maxItems": 0},
					map[string]any{"minItems": 3, "maxItems": 3},
				},
			},
		},
	}
)

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateOutput checks a normalized value against a canonical schema.
// Failures wrap ErrInvalidResponse.
func validateOutput(schema Schema, value any) error {
	compiled, err := compiledSchema(schema)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", schema.Name, err)
	}

	// The validator expects generic JSON values, not Go structs.
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: marshal normalized output: %v", ErrInvalidResponse, err)
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return fmt.Errorf("%w: reparse normalized output: %v", ErrInvalidResponse, err)
	}

	if err := compiled.Validate(generic); err != nil {
		return fmt.Errorf("%w: schema validation failed: %v", ErrInvalidResponse, err)
	}
	return nil
}

// compiledSchema returns a cached compiled schema or compiles and caches it.
func compiledSchema(schema Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	defBytes, err := schema.JSON()
	if err != nil {
		return nil, err
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
