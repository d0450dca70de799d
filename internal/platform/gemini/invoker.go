package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/phrazzld/scry-gateway/internal/config"
	"github.com/phrazzld/scry-gateway/internal/generation"
)

// ProviderName is reported in logs, metrics and provider errors.
const ProviderName = "gemini"

// Invoker implements the generation.Invoker interface using Google's Gemini API.
type Invoker struct {
	// logger is used for structured logging
	logger *slog.Logger

	// model is the name of the Gemini model to use
	model string

	// baseURL overrides the API endpoint when set
	baseURL string

	// httpClient is shared by every per-credential client
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*genai.Client
}

var _ generation.Invoker = (*Invoker)(nil)

// NewInvoker creates a new Gemini invoker.
//
// Parameters:
//   - logger: A structured logger for operation logging
//   - cfg: LLM configuration; ModelName is required and BaseURL is optional
//   - httpClient: The HTTP client used for API calls; nil uses http.DefaultClient
//
// Returns:
//   - A properly initialized Invoker or an error if the configuration is invalid
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
		clients:    make(map[string]*genai.Client),
	}, nil
}

// Name returns the provider name.
func (i *Invoker) Name() string {
	return ProviderName
}

// Invoke sends one GenerateContent request authenticated with cred and
// returns the response text.
func (i *Invoker) Invoke(
	ctx context.Context,
	cred generation.Credential,
	prompt string,
	schema generation.Schema,
	attachment *generation.Attachment,
) (string, error) {
	client, err := i.client(ctx, cred)
	if err != nil {
		return "", err
	}

	parts := make([]*genai.Part, 0, 2)
	if attachment != nil {
		parts = append(parts, genai.NewPartFromBytes(attachment.Data, attachment.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if schema.Definition != nil {
		genConfig.ResponseSchema = buildSchema(schema.Definition)
	}

	i.logger.DebugContext(ctx, "calling Gemini",
		"model", i.model,
		"credential", cred.Name,
		"schema", schema.Name,
		"prompt_length", len(prompt),
		"has_attachment", attachment != nil)

	result, err := client.Models.GenerateContent(ctx, i.model, contents, genConfig)
	if err != nil {
		return "", mapError(err)
	}

	if err := blocked(result); err != nil {
		return "", err
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", generation.ErrEmptyResponse
	}
	return text, nil
}

// client returns the cached client for cred, creating it on first use.
func (i *Invoker) client(ctx context.Context, cred generation.Credential) (*genai.Client, error) {
	if cred.Secret == "" {
		return nil, fmt.Errorf("%w: credential %s has no secret", generation.ErrInvalidConfig, cred.Name)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	key := cred.Name + "\x00" + cred.Secret
	if c, ok := i.clients[key]; ok {
		return c, nil
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cred.Secret,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  i.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: i.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	i.clients[key] = c
	return c, nil
}

// blocked reports prompt- or candidate-level safety blocks.
func blocked(result *genai.GenerateContentResponse) error {
	if result == nil {
		return generation.ErrEmptyResponse
	}
	if fb := result.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return fmt.Errorf("%w: %s", generation.ErrContentBlocked, fb.BlockReason)
	}
	if len(result.Candidates) > 0 && result.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, genai.FinishReasonSafety)
	}
	return nil
}

// mapError converts genai failures into provider errors carrying the HTTP status.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &generation.ProviderError{Provider: ProviderName, Message: err.Error(), Err: err}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &generation.ProviderError{
			Provider:   ProviderName,
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &generation.ProviderError{
			Provider:   ProviderName,
			StatusCode: apiErrPtr.Code,
			Message:    apiErrPtr.Message,
			Err:        err,
		}
	}

	return &generation.ProviderError{Provider: ProviderName, Message: err.Error(), Err: err}
}
