package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-gateway/internal/client"
)

func newDistractorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distractors <cards.json>",
		Short: "Generate three wrong answers for each card in a JSON file",
		Long: "Reads a JSON array of {id, front, back} cards, or a deck with a cards array, " +
			"and prints a map from card id to distractors. Cards without an id get one.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read cards: %w", err)
			}

			cards, err := parseCards(data)
			if err != nil {
				return err
			}

			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			set, err := c.GenerateDistractors(cmd.Context(), cards)
			if err != nil {
				return fmt.Errorf("generate distractors: %w", err)
			}
			return printJSON(cmd, set)
		},
	}
}

// parseCards accepts a bare card array or a deck object.
func parseCards(data []byte) ([]client.Card, error) {
	var cards []client.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		var deck client.Deck
		if deckErr := json.Unmarshal(data, &deck); deckErr != nil {
			return nil, fmt.Errorf("parse cards: %w", err)
		}
		cards = deck.Cards
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("parse cards: no cards found")
	}

	for i := range cards {
		if cards[i].ID == "" {
			cards[i].ID = uuid.NewString()
		}
	}
	return cards, nil
}
