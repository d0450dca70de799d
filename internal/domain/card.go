package domain

import (
	"fmt"
	"strings"
)

// Flashcard is a single question/answer pair produced by a generation.
// Identifiers are assigned by callers; the gateway never sets one.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// IsEmpty reports whether either side of the card is blank after trimming.
func (f Flashcard) IsEmpty() bool {
	return strings.TrimSpace(f.Front) == "" || strings.TrimSpace(f.Back) == ""
}

// Deck is a titled collection of flashcards generated from a topic.
type Deck struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Cards       []Flashcard `json:"cards"`
}

// Validate checks that the deck carries at least one card.
func (d *Deck) Validate() error {
	if len(d.Cards) == 0 {
		return ErrNoContent
	}
	return nil
}

// CardRef identifies an existing flashcard for distractor generation.
type CardRef struct {
	ID    string `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

// ValidateCardRefs checks that refs is non-empty and that every id is present and unique.
func ValidateCardRefs(refs []CardRef) error {
	if len(refs) == 0 {
		return ErrCardsRequired
	}

	seen := make(map[string]struct{}, len(refs))
	for i, ref := range refs {
		if strings.TrimSpace(ref.ID) == "" {
			return fmt.Errorf("%w: card %d", ErrCardIDEmpty, i)
		}
		if _, ok := seen[ref.ID]; ok {
			return fmt.Errorf("%w: %q appears more than once", ErrDuplicateCardID, ref.ID)
		}
		seen[ref.ID] = struct{}{}
	}
	return nil
}

// CardIDs returns the identifiers of refs in order.
func CardIDs(refs []CardRef) []string {
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}
	return ids
}
