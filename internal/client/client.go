// Package client is a Go client for the generation gateway's HTTP contract.
//
// Deck generation is wrapped in a bounded retry that mirrors the gateway's
// own backoff schedule: up to three attempts, retried only when the gateway's
// error message names a transient failure. Returned cards and decks carry
// identifiers assigned here; the gateway never sets them.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/phrazzld/scry-gateway/internal/domain"
	"github.com/phrazzld/scry-gateway/internal/generation"
)

// DefaultTimeout bounds one HTTP round trip to the gateway.
const DefaultTimeout = 2 * time.Minute

// ErrEmptyData is returned when a success envelope carries no data.
var ErrEmptyData = errors.New("gateway returned no data")

// GatewayError is an {error} envelope, or a non-200 response without one.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return e.Message
}

// Card is a flashcard with a caller-assigned identifier.
type Card struct {
	ID    string `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Deck is a generated deck with caller-assigned identifiers.
type Deck struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cards       []Card `json:"cards"`
}

// Client calls a gateway endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	policy     generation.Policy
	logger     *slog.Logger
	newID      func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPolicy replaces the deck retry schedule.
func WithPolicy(p generation.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client that posts to endpoint, the full URL of the
// generation endpoint (for example http://localhost:8080/api/generate).
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway endpoint %q", endpoint)
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		policy:     generation.DefaultPolicy(),
		logger:     slog.Default(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxRetries < 1 {
		c.policy.MaxRetries = 1
	}
	return c, nil
}

type request struct {
	Action       domain.Action    `json:"action"`
	Topic        string           `json:"topic,omitempty"`
	NumQuestions *int             `json:"numQuestions,omitempty"`
	Cards        []domain.CardRef `json:"cards,omitempty"`
	Text         string           `json:"text,omitempty"`
	PDFBase64    string           `json:"pdfBase64,omitempty"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// countPtr leaves numQuestions unset for count <= 0 so the gateway default applies.
func countPtr(count int) *int {
	if count <= 0 {
		return nil
	}
	return &count
}

// GenerateDeck asks for a deck of count cards about topic, retrying
// transient failures.
func (c *Client) GenerateDeck(ctx context.Context, topic string, count int) (*Deck, error) {
	req := request{Action: domain.ActionDeckFromTopic, Topic: topic, NumQuestions: countPtr(count)}

	var deck domain.Deck
	attempt := 0
	op := func() error {
		attempt++
		err := c.do(ctx, req, &deck)
		if err == nil {
			return nil
		}
		if !generation.IsRetryableMessage(err.Error()) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.WarnContext(ctx, "deck generation failed, retrying",
			"attempt", attempt,
			"max_attempts", c.policy.MaxRetries,
			"wait", wait,
			"error", err)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(c.policy.BackOff(), ctx), notify); err != nil {
		return nil, err
	}

	out := &Deck{
		ID:          c.newID(),
		Title:       deck.Title,
		Description: deck.Description,
		Cards:       c.withIDs(deck.Cards),
	}
	return out, nil
}

// GenerateFromText asks for count cards drawn from text.
func (c *Client) GenerateFromText(ctx context.Context, text string, count int) ([]Card, error) {
	var cards []domain.Flashcard
	err := c.do(ctx, request{Action: domain.ActionCardsFromText, Text: text, NumQuestions: countPtr(count)}, &cards)
	if err != nil {
		return nil, err
	}
	return c.withIDs(cards), nil
}

// GenerateFromDocument asks for count cards drawn from a PDF document.
func (c *Client) GenerateFromDocument(ctx context.Context, pdf []byte, count int) ([]Card, error) {
	var cards []domain.Flashcard
	err := c.do(ctx, request{
		Action:       domain.ActionCardsFromDocument,
		PDFBase64:    base64.StdEncoding.EncodeToString(pdf),
		NumQuestions: countPtr(count),
	}, &cards)
	if err != nil {
		return nil, err
	}
	return c.withIDs(cards), nil
}

// GenerateDistractors asks for three wrong answers per card. A card with an
// empty list needs a caller-side fallback.
func (c *Client) GenerateDistractors(ctx context.Context, cards []Card) (domain.DistractorSet, error) {
	refs := make([]domain.CardRef, len(cards))
	for i, card := range cards {
		refs[i] = domain.CardRef{ID: card.ID, Front: card.Front, Back: card.Back}
	}

	var set domain.DistractorSet
	if err := c.do(ctx, request{Action: domain.ActionDistractorsForCards, Cards: refs}, &set); err != nil {
		return nil, err
	}
	return set, nil
}

func (c *Client) withIDs(cards []domain.Flashcard) []Card {
	out := make([]Card, len(cards))
	for i, card := range cards {
		out[i] = Card{ID: c.newID(), Front: card.Front, Back: card.Back}
	}
	return out
}

// do posts req and decodes the data half of the envelope into out. The error
// half is checked first; data is never trusted alongside an error.
func (c *Client) do(ctx context.Context, req request, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("network error reading response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &GatewayError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("gateway returned %d", resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if env.Error != "" {
		return &GatewayError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return &GatewayError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("gateway returned %d", resp.StatusCode)}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return ErrEmptyData
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
