package generation

import (
	"errors"
	"fmt"
)

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when a generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate content")

	// ErrInvalidResponse is returned when the provider response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response format")

	// ErrEmptyResponse is returned when the provider answers with an empty body
	ErrEmptyResponse = errors.New("empty response from AI model")

	// ErrContentBlocked is returned when the provider blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrNoCredentials is returned when a credential pool is built with no credentials
	ErrNoCredentials = errors.New("no provider credentials configured")

	// ErrAttachmentUnsupported is returned by providers that cannot accept binary attachments
	ErrAttachmentUnsupported = errors.New("provider does not support document attachments")
)

// User-facing messages used when every credential has been tried.
const (
	busyMessage        = "service busy, retry later"
	rateLimitedMessage = "rate limited, retry later"
)

// ProviderError is a failed provider call. StatusCode is zero when the
// failure happened before an HTTP response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned by the orchestrator when every credential in the
// pool has been marked failed. Its message is safe to show to callers.
type ExhaustedError struct {
	// Class is the classification of the last failure.
	Class Class
	// Failed lists the credential names in the order they failed.
	Failed []string
	// Last is the final underlying error.
	Last error
}

func (e *ExhaustedError) Error() string {
	switch e.Class {
	case ClassRetryable:
		return busyMessage
	case ClassQuota:
		return rateLimitedMessage
	default:
		if e.Last != nil {
			return e.Last.Error()
		}
		return ErrGenerationFailed.Error()
	}
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
