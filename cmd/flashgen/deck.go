package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDeckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deck <topic>",
		Short: "Generate a titled deck about a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")

			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			deck, err := c.GenerateDeck(cmd.Context(), strings.Join(args, " "), count)
			if err != nil {
				return fmt.Errorf("generate deck: %w", err)
			}
			return printJSON(cmd, deck)
		},
	}
	cmd.Flags().IntP("count", "n", 10, "Number of cards (1-50)")
	return cmd
}
