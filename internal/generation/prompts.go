package generation

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/phrazzld/scry-gateway/internal/domain"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// promptData is the data passed to the prompt templates.
type promptData struct {
	Count     int
	Topic     string
	Text      string
	CardsJSON string
}

// distractorCard is how a card is presented to the model.
type distractorCard struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func renderPrompt(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}

func deckPrompt(topic string, count int) (string, error) {
	return renderPrompt("deck.tmpl", promptData{Topic: topic, Count: count})
}

func textPrompt(text string, count int) (string, error) {
	return renderPrompt("text.tmpl", promptData{Text: text, Count: count})
}

func documentPrompt(count int) (string, error) {
	return renderPrompt("document.tmpl", promptData{Count: count})
}

func distractorPrompt(cards []domain.CardRef) (string, error) {
	list := make([]distractorCard, len(cards))
	for i, c := range cards {
		list[i] = distractorCard{ID: c.ID, Question: c.Front, Answer: c.Back}
	}

	b, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal cards for prompt: %w", err)
	}
	return renderPrompt("distractors.tmpl", promptData{CardsJSON: string(b)})
}
