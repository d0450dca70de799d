package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/scry-gateway/internal/domain"
	"github.com/phrazzld/scry-gateway/internal/platform/metrics"
)

// PDFMIMEType is the only document type accepted by GenerateFromDocument.
const PDFMIMEType = "application/pdf"

// DefaultMaxConcurrentChunks bounds the distractor fan-out.
const DefaultMaxConcurrentChunks = 4

// ServiceOptions tunes the dispatcher.
type ServiceOptions struct {
	// ChunkSize is the number of cards per distractor call.
	ChunkSize int
	// MaxConcurrentChunks bounds how many chunks run at once.
	MaxConcurrentChunks int
	// RequestTimeout bounds one dispatched action. Zero means no extra deadline.
	RequestTimeout time.Duration
}

// Service validates generation requests, routes them to the orchestrator and
// normalizes the results. It holds no per-request state: every call builds
// its own credential pool.
type Service struct {
	orchestrator *Orchestrator
	credentials  []Credential
	opts         ServiceOptions
	logger       *slog.Logger
}

// NewService creates a Service. It fails with ErrNoCredentials when creds is empty.
func NewService(orchestrator *Orchestrator, creds []Credential, opts ServiceOptions, logger *slog.Logger) (*Service, error) {
	if orchestrator == nil {
		return nil, fmt.Errorf("%w: orchestrator cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxConcurrentChunks < 1 {
		opts.MaxConcurrentChunks = DefaultMaxConcurrentChunks
	}

	owned := make([]Credential, len(creds))
	copy(owned, creds)

	return &Service{
		orchestrator: orchestrator,
		credentials:  owned,
		opts:         opts,
		logger:       logger,
	}, nil
}

// Dispatch validates req and runs the matching action. The returned value is
// a *domain.Deck, a []domain.Flashcard or a domain.DistractorSet. Validation
// failures wrap domain.ErrValidation and are returned before any provider call.
func (s *Service) Dispatch(ctx context.Context, req domain.GenerationRequest) (any, error) {
	result, err := s.dispatch(ctx, req)

	outcome := "success"
	switch {
	case errors.Is(err, domain.ErrValidation):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	metrics.GenerationCompleted(string(req.Action), outcome)

	return result, err
}

func (s *Service) dispatch(ctx context.Context, req domain.GenerationRequest) (any, error) {
	if err := s.validate(&req); err != nil {
		s.logger.DebugContext(ctx, "rejected generation request",
			"action", string(req.Action),
			"error", err)
		return nil, err
	}

	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	s.logger.InfoContext(ctx, "dispatching generation request",
		"action", string(req.Action),
		"count", req.Count)

	switch req.Action {
	case domain.ActionDeckFromTopic:
		return s.generateDeck(ctx, req.Topic, req.Count)
	case domain.ActionCardsFromText:
		return s.generateFromText(ctx, req.Text, req.Count)
	case domain.ActionCardsFromDocument:
		return s.generateFromDocument(ctx, req.Document, req.Count)
	case domain.ActionDistractorsForCards:
		return s.generateDistractors(ctx, req.Cards)
	default:
		return nil, fmt.Errorf("%w: %w: %s", domain.ErrValidation, domain.ErrUnknownAction, req.Action)
	}
}

// validate runs the domain checks and sniffs document bytes.
func (s *Service) validate(req *domain.GenerationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.Action == domain.ActionCardsFromDocument {
		if mt := mimetype.Detect(req.Document); !mt.Is(PDFMIMEType) {
			return fmt.Errorf("%w: %w: detected %s", domain.ErrValidation, domain.ErrDocumentNotPDF, mt.String())
		}
	}
	return nil
}

// GenerateDeck creates a deck of count flashcards about topic.
func (s *Service) GenerateDeck(ctx context.Context, topic string, count int) (*domain.Deck, error) {
	deck, err := s.Dispatch(ctx, domain.GenerationRequest{Action: domain.ActionDeckFromTopic, Topic: topic, Count: count})
	if err != nil {
		return nil, err
	}
	return deck.(*domain.Deck), nil
}

// GenerateFromText creates count flashcards from text.
func (s *Service) GenerateFromText(ctx context.Context, text string, count int) ([]domain.Flashcard, error) {
	cards, err := s.Dispatch(ctx, domain.GenerationRequest{Action: domain.ActionCardsFromText, Text: text, Count: count})
	if err != nil {
		return nil, err
	}
	return cards.([]domain.Flashcard), nil
}

// GenerateFromDocument creates count flashcards from a PDF document.
func (s *Service) GenerateFromDocument(ctx context.Context, document []byte, count int) ([]domain.Flashcard, error) {
	cards, err := s.Dispatch(ctx, domain.GenerationRequest{
		Action:   domain.ActionCardsFromDocument,
		Document: document,
		Count:    count,
	})
	if err != nil {
		return nil, err
	}
	return cards.([]domain.Flashcard), nil
}

// GenerateDistractors creates three wrong answers for each card. Every card id
// is a key of the result; an empty list means the caller must supply a fallback.
func (s *Service) GenerateDistractors(ctx context.Context, cards []domain.CardRef) (domain.DistractorSet, error) {
	set, err := s.Dispatch(ctx, domain.GenerationRequest{
		Action: domain.ActionDistractorsForCards,
		Cards:  cards,
		Count:  domain.DefaultCount,
	})
	if err != nil {
		return nil, err
	}
	return set.(domain.DistractorSet), nil
}

func (s *Service) run(ctx context.Context, call Call) error {
	pool, err := NewCredentialPool(s.credentials)
	if err != nil {
		return err
	}
	_, err = s.orchestrator.Run(ctx, pool, call)
	return err
}

func (s *Service) generateDeck(ctx context.Context, topic string, count int) (*domain.Deck, error) {
	prompt, err := deckPrompt(topic, count)
	if err != nil {
		return nil, err
	}

	var deck *domain.Deck
	err = s.run(ctx, Call{
		Operation: string(domain.ActionDeckFromTopic),
		Prompt:    prompt,
		Schema:    ForDeck(),
		Accept: func(raw string) error {
			d, err := NormalizeDeck(raw, topic)
			if err != nil {
				return err
			}
			deck = d
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "generated deck",
		"title", deck.Title,
		"card_count", len(deck.Cards))
	return deck, nil
}

func (s *Service) generateCards(ctx context.Context, operation domain.Action, prompt string, attachment *Attachment) ([]domain.Flashcard, error) {
	var cards []domain.Flashcard
	err := s.run(ctx, Call{
		Operation:  string(operation),
		Prompt:     prompt,
		Schema:     ForFlashcardArray(),
		Attachment: attachment,
		Accept: func(raw string) error {
			c, err := NormalizeFlashcards(raw)
			if err != nil {
				return err
			}
			cards = c
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "generated flashcards",
		"operation", string(operation),
		"card_count", len(cards))
	return cards, nil
}

func (s *Service) generateFromText(ctx context.Context, text string, count int) ([]domain.Flashcard, error) {
	prompt, err := textPrompt(text, count)
	if err != nil {
		return nil, err
	}
	return s.generateCards(ctx, domain.ActionCardsFromText, prompt, nil)
}

func (s *Service) generateFromDocument(ctx context.Context, document []byte, count int) ([]domain.Flashcard, error) {
	prompt, err := documentPrompt(count)
	if err != nil {
		return nil, err
	}
	return s.generateCards(ctx, domain.ActionCardsFromDocument, prompt, &Attachment{
		MIMEType: PDFMIMEType,
		Data:     document,
	})
}

// generateDistractors fans chunks out concurrently and merges once all have
// settled. A failed chunk contributes empty lists for its ids; the request
// fails only when every chunk failed.
func (s *Service) generateDistractors(ctx context.Context, cards []domain.CardRef) (domain.DistractorSet, error) {
	chunks := Chunk(cards, s.opts.ChunkSize)
	results := make([]domain.DistractorSet, len(chunks))
	errs := make([]error, len(chunks))

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrentChunks)
	for i, chunk := range chunks {
		g.Go(func() error {
			results[i], errs[i] = s.distractorChunk(ctx, chunk)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	var lastErr error
	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		lastErr = err
		results[i] = domain.EmptyDistractors(domain.CardIDs(chunks[i]))
		s.logger.WarnContext(ctx, "distractor chunk failed, using empty lists",
			"chunk", i,
			"chunk_size", len(chunks[i]),
			"error", err)
	}
	if failed == len(chunks) {
		return nil, lastErr
	}

	merged := Merge(results...)
	if missing := merged.Missing(domain.CardIDs(cards)); len(missing) > 0 {
		s.logger.WarnContext(ctx, "distractor result missing card ids, using empty lists",
			"missing", missing)
		merged = Merge(merged, domain.EmptyDistractors(missing))
	}

	s.logger.InfoContext(ctx, "generated distractors",
		"card_count", len(cards),
		"chunks", len(chunks),
		"failed_chunks", failed)
	return merged, nil
}

func (s *Service) distractorChunk(ctx context.Context, chunk []domain.CardRef) (domain.DistractorSet, error) {
	prompt, err := distractorPrompt(chunk)
	if err != nil {
		return nil, err
	}

	ids := domain.CardIDs(chunk)
	var set domain.DistractorSet
	err = s.run(ctx, Call{
		Operation: string(domain.ActionDistractorsForCards),
		Prompt:    prompt,
		Schema:    ForDistractors(chunk),
		Accept: func(raw string) error {
			d, err := NormalizeDistractors(raw, ids)
			if err != nil {
				return err
			}
			set = d
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}
