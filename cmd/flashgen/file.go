package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-gateway/internal/client"
	"github.com/phrazzld/scry-gateway/internal/extract"
)

func newFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Generate cards from a text, markdown, CSV, JSON or PDF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			var cards []client.Card
			if extract.IsPDF(data) {
				cards, err = c.GenerateFromDocument(cmd.Context(), data, count)
			} else {
				var text string
				text, err = extract.PlainText{}.Extract(args[0], data)
				if err != nil {
					return fmt.Errorf("extract %s: %w", args[0], err)
				}
				cards, err = c.GenerateFromText(cmd.Context(), text, count)
			}
			if err != nil {
				return fmt.Errorf("generate cards: %w", err)
			}
			return printJSON(cmd, cards)
		},
	}
	cmd.Flags().IntP("count", "n", 10, "Number of cards (1-50)")
	return cmd
}
