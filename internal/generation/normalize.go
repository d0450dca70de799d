package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-gateway/internal/domain"
)

// Alternate field names accepted for each side of a card, in priority order.
var (
	frontFields = []string{"front", "question", "q"}
	backFields  = []string{"back", "answer", "a"}
)

// stripCodeFence removes a surrounding Markdown code fence such as ```json ... ```.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the language tag on the opening line.
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeRaw parses provider text into a generic JSON value.
func decodeRaw(raw string) (any, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, ErrEmptyResponse
	}

	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, fmt.Errorf("%w: failed to parse AI response as JSON: %v", ErrInvalidResponse, err)
	}
	return v, nil
}

// firstString returns the first non-empty string value among keys.
func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// cardList finds the list of raw card entries in v: a bare array, or an
// object with a cards or flashcards array.
func cardList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case map[string]any:
		if list, ok := t["cards"].([]any); ok {
			return list, true
		}
		if list, ok := t["flashcards"].([]any); ok {
			return list, true
		}
	}
	return nil, false
}

// toFlashcards maps raw entries onto the canonical shape, dropping entries
// whose front or back is empty after trimming.
func toFlashcards(list []any) []domain.Flashcard {
	cards := make([]domain.Flashcard, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		card := domain.Flashcard{
			Front: firstString(obj, frontFields),
			Back:  firstString(obj, backFields),
		}
		if card.IsEmpty() {
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

// NormalizeFlashcards converts a provider response into canonical flashcards.
// It accepts a bare array, an object with a cards or flashcards array, and the
// question/answer and q/a field aliases.
func NormalizeFlashcards(raw string) ([]domain.Flashcard, error) {
	v, err := decodeRaw(raw)
	if err != nil {
		return nil, err
	}

	list, ok := cardList(v)
	if !ok {
		return nil, fmt.Errorf("%w: expected array of flashcards", ErrInvalidResponse)
	}

	cards := toFlashcards(list)
	if err := validateOutput(canonicalFlashcards, cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// NormalizeDeck converts a provider response into a deck. A bare array of
// cards is wrapped in a deck titled fallbackTopic. A missing title or
// description falls back to the topic as well.
func NormalizeDeck(raw, fallbackTopic string) (*domain.Deck, error) {
	v, err := decodeRaw(raw)
	if err != nil {
		return nil, err
	}

	deck := &domain.Deck{}
	switch t := v.(type) {
	case []any:
		deck.Cards = toFlashcards(t)
	case map[string]any:
		list, ok := cardList(t)
		if !ok {
			return nil, fmt.Errorf("%w: deck has no cards array", ErrInvalidResponse)
		}
		deck.Title, _ = t["title"].(string)
		deck.Description, _ = t["description"].(string)
		deck.Cards = toFlashcards(list)
	default:
		return nil, fmt.Errorf("%w: expected deck object or array of flashcards", ErrInvalidResponse)
	}

	if strings.TrimSpace(deck.Title) == "" {
		deck.Title = fallbackTopic
	}
	if strings.TrimSpace(deck.Description) == "" {
		deck.Description = defaultDescription(fallbackTopic)
	}

	if err := deck.Validate(); err != nil {
		return nil, err
	}
	if err := validateOutput(canonicalDeck, deck); err != nil {
		return nil, err
	}
	return deck, nil
}

func defaultDescription(topic string) string {
	return "Flashcards about " + topic
}

// NormalizeDistractors builds a DistractorSet with a key for every id. An id
// whose value holds at least domain.DistractorsPerCard strings keeps the first
// ones; any other value, or a missing id, maps to an empty list. A payload
// that is valid JSON but not an object yields empty lists for every id.
func NormalizeDistractors(raw string, ids []string) (domain.DistractorSet, error) {
	v, err := decodeRaw(raw)
	if err != nil {
		return nil, err
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return domain.EmptyDistractors(ids), nil
	}
	obj = unwrapDistractors(obj, ids)

	set := make(domain.DistractorSet, len(ids))
	for _, id := range ids {
		set[id] = pickDistractors(obj[id])
	}

	if err := validateOutput(canonicalDistractors, set); err != nil {
		return nil, err
	}
	return set, nil
}

// unwrapDistractors handles a response nested one level under a
// "distractors" key when none of the ids appear at the top level.
func unwrapDistractors(obj map[string]any, ids []string) map[string]any {
	for _, id := range ids {
		if _, ok := obj[id]; ok {
			return obj
		}
	}
	if inner, ok := obj["distractors"].(map[string]any); ok {
		return inner
	}
	return obj
}

func pickDistractors(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}

	out := make([]string, 0, domain.DistractorsPerCard)
	for _, item := range list {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
		if len(out) == domain.DistractorsPerCard {
			return out
		}
	}
	return []string{}
}
