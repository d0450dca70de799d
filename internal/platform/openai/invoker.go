// Package openai provides a generation.Invoker backed by the OpenAI chat
// completions API or any compatible endpoint reachable through base_url.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/phrazzld/scry-gateway/internal/config"
	"github.com/phrazzld/scry-gateway/internal/generation"
)

// ProviderName is reported in logs, metrics and provider errors.
const ProviderName = "openai"

// Invoker implements generation.Invoker with go-openai. A client is built per
// call because the credential changes between attempts and construction is cheap.
type Invoker struct {
	logger     *slog.Logger
	model      string
	baseURL    string
	httpClient *http.Client
}

var _ generation.Invoker = (*Invoker)(nil)

// NewInvoker creates an OpenAI invoker for cfg.ModelName.
func NewInvoker(logger *slog.Logger, cfg config.LLMConfig, httpClient *http.Client) (*Invoker, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Invoker{
		logger:     logger.With("provider", ProviderName),
		model:      cfg.ModelName,
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
	}, nil
}

// Name returns the provider name.
func (i *Invoker) Name() string {
	return ProviderName
}

// Invoke sends one chat completion request. Attachments are rejected with
// generation.ErrAttachmentUnsupported before any network traffic.
func (i *Invoker) Invoke(
	ctx context.Context,
	cred generation.Credential,
	prompt string,
	schema generation.Schema,
	attachment *generation.Attachment,
) (string, error) {
	if attachment != nil {
		return "", fmt.Errorf("%w: %s", generation.ErrAttachmentUnsupported, ProviderName)
	}
	if cred.Secret == "" {
		return "", fmt.Errorf("%w: credential %s has no secret", generation.ErrInvalidConfig, cred.Name)
	}

	clientConfig := openai.DefaultConfig(cred.Secret)
	if i.baseURL != "" {
		clientConfig.BaseURL = i.baseURL
	}
	clientConfig.HTTPClient = i.httpClient
	client := openai.NewClientWithConfig(clientConfig)

	req := openai.ChatCompletionRequest{
		Model: i.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	if schema.Definition != nil {
		schemaBytes, err := json.Marshal(schema.ObjectDefinition())
		if err != nil {
			return "", fmt.Errorf("marshal schema: %w", err)
		}
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        schema.Name,
				Description: schema.Description,
				Schema:      json.RawMessage(schemaBytes),
			},
		}
	}

	i.logger.DebugContext(ctx, "calling OpenAI",
		"model", i.model,
		"credential", cred.Name,
		"schema", schema.Name,
		"prompt_length", len(prompt))

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", mapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", generation.ErrEmptyResponse
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, choice.FinishReason)
	}
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("%w: %s", generation.ErrContentBlocked, choice.Message.Refusal)
	}

	content := choice.Message.Content
	if strings.TrimSpace(content) == "" {
		return "", generation.ErrEmptyResponse
	}
	return content, nil
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &generation.ProviderError{
			Provider:   ProviderName,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &generation.ProviderError{
			Provider:   ProviderName,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    http.StatusText(reqErr.HTTPStatusCode),
			Err:        err,
		}
	}
	return &generation.ProviderError{Provider: ProviderName, Message: err.Error(), Err: err}
}
