package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-gateway/internal/client"
)

const (
	defaultGatewayURL = "http://localhost:8080/api/generate"
	gatewayEnv        = "SCRY_GATEWAY_URL"
)

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "flashgen",
		Short:        "Generate flashcards through the scry gateway",
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.PersistentFlags().String("gateway", "", "Gateway endpoint URL (overrides "+gatewayEnv+")")
	root.PersistentFlags().Bool("verbose", false, "Log retries to stderr")

	root.AddCommand(newDeckCmd())
	root.AddCommand(newFileCmd())
	root.AddCommand(newDistractorsCmd())
	return root
}

// newClient resolves the endpoint from --gateway, then SCRY_GATEWAY_URL,
// then the local default.
func newClient(cmd *cobra.Command) (*client.Client, error) {
	endpoint, _ := cmd.Flags().GetString("gateway")
	if endpoint == "" {
		endpoint = os.Getenv(gatewayEnv)
	}
	if endpoint == "" {
		endpoint = defaultGatewayURL
	}

	level := slog.LevelError
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	c, err := client.New(endpoint, client.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return c, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
