package domain

import (
	"fmt"
	"strings"
)

// Action names one of the operations the gateway dispatches.
type Action string

// Supported actions. The string values are the wire names used by callers.
const (
	ActionDeckFromTopic       Action = "generateDeck"
	ActionCardsFromText       Action = "generateFromText"
	ActionCardsFromDocument   Action = "generateFromPDF"
	ActionDistractorsForCards Action = "generateDistractors"
)

// Card count bounds for a single generation.
const (
	MinCount     = 1
	MaxCount     = 50
	DefaultCount = 10
)

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionDeckFromTopic, ActionCardsFromText, ActionCardsFromDocument, ActionDistractorsForCards:
		return true
	default:
		return false
	}
}

// GenerationRequest is the tagged union of the four actions. Only the fields
// relevant to Action are read; the others are ignored.
type GenerationRequest struct {
	Action   Action
	Topic    string
	Text     string
	Document []byte
	Cards    []CardRef
	Count    int
}

// Validate checks the count bounds and the fields required by the action.
// Every returned error wraps ErrValidation.
func (r *GenerationRequest) Validate() error {
	if !r.Action.IsValid() {
		return fmt.Errorf("%w: %w: %s", ErrValidation, ErrUnknownAction, r.Action)
	}

	// The count bound applies to every action, distractors included.
	if r.Count < MinCount || r.Count > MaxCount {
		return fmt.Errorf("%w: %w", ErrValidation, ErrCountOutOfRange)
	}

	switch r.Action {
	case ActionDeckFromTopic:
		if strings.TrimSpace(r.Topic) == "" {
			return fmt.Errorf("%w: %w", ErrValidation, ErrTopicRequired)
		}
	case ActionCardsFromText:
		if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("%w: %w", ErrValidation, ErrTextRequired)
		}
	case ActionCardsFromDocument:
		if len(r.Document) == 0 {
			return fmt.Errorf("%w: %w", ErrValidation, ErrDocumentRequired)
		}
	case ActionDistractorsForCards:
		if err := ValidateCardRefs(r.Cards); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	return nil
}
