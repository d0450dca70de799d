package generation

import "context"

// Attachment is binary content passed to the provider alongside the prompt.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Invoker defines the boundary between the gateway and an external completion
// provider, following the hexagonal architecture pattern.
type Invoker interface {
	// Invoke issues exactly one provider call and returns the raw response text.
	//
	// Parameters:
	//   - ctx: Context for the call, used for cancellation and deadlines
	//   - cred: The credential to authenticate with
	//   - prompt: The rendered prompt
	//   - schema: The structured-output constraint for the response
	//   - attachment: Optional binary document; nil when absent
	//
	// Returns:
	//   - The raw response text
	//   - A *ProviderError for failed calls, or ErrEmptyResponse for an empty body.
	//     Implementations never retry.
	Invoke(ctx context.Context, cred Credential, prompt string, schema Schema, attachment *Attachment) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}
