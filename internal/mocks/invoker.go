package mocks

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/phrazzld/scry-gateway/internal/generation"
)

// InvokeCall records the arguments of one Invoke call.
type InvokeCall struct {
	Credential string
	Prompt     string
	Schema     generation.Schema
	Attachment *generation.Attachment
}

// MockInvoker implements generation.Invoker for testing
type MockInvoker struct {
	// InvokeFn allows test cases to mock the Invoke behavior
	InvokeFn func(ctx context.Context, cred generation.Credential, prompt string, schema generation.Schema, attachment *generation.Attachment) (string, error)

	// ByCredential maps a credential name to a scripted sequence of responses.
	// Each call consumes the next entry; the last entry repeats.
	ByCredential map[string][]Response

	// Default response values
	Raw string
	Err error

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// mu protects the call tracking state for concurrent test cases
	mu       sync.Mutex
	calls    []InvokeCall
	consumed map[string]int
}

// Response is one scripted Invoke result.
type Response struct {
	Raw string
	Err error
}

// Invoke implements the generation.Invoker interface
func (m *MockInvoker) Invoke(
	ctx context.Context,
	cred generation.Credential,
	prompt string,
	schema generation.Schema,
	attachment *generation.Attachment,
) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, InvokeCall{
		Credential: cred.Name,
		Prompt:     prompt,
		Schema:     schema,
		Attachment: attachment,
	})
	scripted, ok := m.next(cred.Name)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Use custom function if provided
	if m.InvokeFn != nil {
		return m.InvokeFn(ctx, cred, prompt, schema, attachment)
	}
	if ok {
		return scripted.Raw, scripted.Err
	}

	// Return default values
	return m.Raw, m.Err
}

// next returns the scripted response for name. Callers hold m.mu.
func (m *MockInvoker) next(name string) (Response, bool) {
	script := m.ByCredential[name]
	if len(script) == 0 {
		return Response{}, false
	}
	if m.consumed == nil {
		m.consumed = make(map[string]int)
	}
	i := m.consumed[name]
	if i >= len(script) {
		i = len(script) - 1
	}
	m.consumed[name]++
	return script[i], true
}

// Name implements the generation.Invoker interface
func (m *MockInvoker) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Calls returns a copy of every recorded call.
func (m *MockInvoker) Calls() []InvokeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]InvokeCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Invoke calls.
func (m *MockInvoker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsFor returns the number of Invoke calls made with the named credential.
func (m *MockInvoker) CallsFor(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Credential == name {
			n++
		}
	}
	return n
}

// Reset resets the call tracking state
func (m *MockInvoker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.consumed = nil
}

// NewMockInvokerWithResponse creates a MockInvoker that always returns raw
func NewMockInvokerWithResponse(raw string) *MockInvoker {
	return &MockInvoker{Raw: raw}
}

// NewMockInvokerWithError creates a MockInvoker that always returns err
func NewMockInvokerWithError(err error) *MockInvoker {
	return &MockInvoker{Err: err}
}

// StatusError builds a provider error with the given HTTP status.
func StatusError(status int) error {
	return &generation.ProviderError{
		Provider:   "mock",
		StatusCode: status,
		Message:    http.StatusText(status),
	}
}

// QuotaError simulates a throttled credential.
func QuotaError() error {
	return StatusError(http.StatusTooManyRequests)
}

// OverloadedError simulates a transient provider failure.
func OverloadedError() error {
	return StatusError(http.StatusServiceUnavailable)
}

// FatalError simulates a non-retryable provider failure.
func FatalError(msg string) error {
	return &generation.ProviderError{
		Provider:   "mock",
		StatusCode: http.StatusBadRequest,
		Message:    fmt.Sprintf("invalid argument: %s", msg),
	}
}

// DeckJSON is a canned deck response with n cards.
func DeckJSON(title string, n int) string {
	cards := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			cards += ","
		}
		cards += fmt.Sprintf(`{"front":"Question %d","back":"Answer %d"}`, i, i)
	}
	return fmt.Sprintf(`{"title":%q,"description":"A generated deck","cards":[%s]}`, title, cards)
}
