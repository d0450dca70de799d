// Package anthropic provides a generation.Invoker backed by the Anthropic
// Messages API. PDF attachments are sent as base64 document blocks.
package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/phrazzld/scry-gateway/internal/config"
	"github.com/phrazzld/scry-gateway/internal/generation"
)

const (
	// ProviderName is reported in logs, metrics and provider errors.
	ProviderName = "anthropic"

	maxTokens = 8192
	pdfMIME   = "application/pdf"
)

// Invoker implements generation.Invoker with the Anthropic SDK.
type Invoker struct {
	logger     *slog.Logger
	model      string
	baseURL    string
	httpClient *http.Client
}

var _ generation.Invoker = (*Invoker)(nil)

// NewInvoker creates an Anthropic invoker for cfg.ModelName.
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

// Invoke sends one Messages request. SDK retries are disabled; the
// orchestrator owns the retry budget.
func (i *Invoker) Invoke(
	ctx context.Context,
	cred generation.Credential,
	prompt string,
	schema generation.Schema,
	attachment *generation.Attachment,
) (string, error) {
	if cred.Secret == "" {
		return "", fmt.Errorf("%w: credential %s has no secret", generation.ErrInvalidConfig, cred.Name)
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, 2)
	if attachment != nil {
		if attachment.MIMEType != pdfMIME {
			return "", fmt.Errorf("%w: %s accepts only %s", generation.ErrAttachmentUnsupported, ProviderName, pdfMIME)
		}
		blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
			Data: base64.StdEncoding.EncodeToString(attachment.Data),
		}))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(i.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			{Role: anthropic.MessageParamRoleUser, Content: blocks},
		},
	}
	if schema.Definition != nil {
		params.OutputConfig = anthropic.OutputConfigParam{
			Format: anthropic.JSONOutputFormatParam{
				Schema: schema.ObjectDefinition(),
			},
		}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cred.Secret),
		option.WithHTTPClient(i.httpClient),
		option.WithMaxRetries(0),
	}
	if i.baseURL != "" {
		opts = append(opts, option.WithBaseURL(i.baseURL))
	}
	client := anthropic.NewClient(opts...)

	i.logger.DebugContext(ctx, "calling Anthropic",
		"model", i.model,
		"credential", cred.Name,
		"schema", schema.Name,
		"prompt_length", len(prompt),
		"has_attachment", attachment != nil)

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}

	if msg.StopReason == "refusal" {
		return "", fmt.Errorf("%w: stop reason %s", generation.ErrContentBlocked, msg.StopReason)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", generation.ErrEmptyResponse
}

func mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &generation.ProviderError{
			Provider:   ProviderName,
			StatusCode: apiErr.StatusCode,
			Message:    http.StatusText(apiErr.StatusCode),
			Err:        err,
		}
	}
	return &generation.ProviderError{Provider: ProviderName, Message: err.Error(), Err: err}
}
