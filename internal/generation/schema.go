package generation

import (
	"encoding/json"
	"fmt"

	"github.com/phrazzld/scry-gateway/internal/domain"
)

// Schema is a structured-output constraint handed to the provider. Definition
// is a plain JSON Schema document; provider adapters translate it as needed.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// JSON returns the definition encoded as JSON.
func (s Schema) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", s.Name, err)
	}
	return b, nil
}

func flashcardItem() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"front": map[string]any{
				"type":        "string",
				"description": "The question or front side of the flashcard",
			},
			"back": map[string]any{
				"type":        "string",
				"description": "The answer or back side of the flashcard",
			},
		},
		"required": []string{"front", "back"},
	}
}

func flashcardArray() map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       flashcardItem(),
		"description": "Array of flashcards",
	}
}

// ForFlashcardArray returns the schema for a bare list of flashcards.
func ForFlashcardArray() Schema {
	return Schema{
		Name:        "flashcards",
		Description: "Array of flashcards",
		Definition:  flashcardArray(),
	}
}

// ForDeck returns the schema for a titled deck of flashcards.
func ForDeck() Schema {
	return Schema{
		Name:        "deck",
		Description: "A titled flashcard deck",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Title of the flashcard deck",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Brief description of the topic",
				},
				"cards": flashcardArray(),
			},
			"required": []string{"title", "description", "cards"},
		},
	}
}

// ForDistractors builds a schema with one required property per card id,
// each an array of exactly domain.DistractorsPerCard strings. The shape
// depends on the cards, so it is rebuilt for every request.
func ForDistractors(cards []domain.CardRef) Schema {
	properties := make(map[string]any, len(cards))
	required := make([]string, 0, len(cards))

	for _, card := range cards {
		properties[card.ID] = map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"minItems":    domain.DistractorsPerCard,
			"maxItems":    domain.DistractorsPerCard,
			"description": fmt.Sprintf("%d distractors for card: %s", domain.DistractorsPerCard, card.Front),
		}
		required = append(required, card.ID)
	}

	return Schema{
		Name:        "distractors",
		Description: "Wrong answer choices keyed by card id",
		Definition: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

// ObjectDefinition returns the definition with an object at the root. Array
// schemas are wrapped in a single required property named after the schema,
// for providers whose structured output only accepts object roots.
func (s Schema) ObjectDefinition() map[string]any {
	if t, _ := s.Definition["type"].(string); t == "object" || s.Definition == nil {
		return s.Definition
	}
	key := s.Name
	if key == "" {
		key = "items"
	}
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{key: s.Definition},
		"required":   []string{key},
	}
}
