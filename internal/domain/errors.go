// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a request fails validation.
	// This is usually wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownAction is returned when the request names an action the gateway does not serve.
	ErrUnknownAction = errors.New("unknown action")

	// ErrCountOutOfRange is returned when the requested card count is outside [MinCount, MaxCount].
	ErrCountOutOfRange = errors.New("numQuestions must be between 1 and 50")

	// ErrTopicRequired is returned when a deck request carries no topic.
	ErrTopicRequired = errors.New("topic is required for generateDeck action")

	// ErrTextRequired is returned when a text request carries no text.
	ErrTextRequired = errors.New("text is required for generateFromText action")

	// ErrDocumentRequired is returned when a document request carries no bytes.
	ErrDocumentRequired = errors.New("PDF base64 data is required for generateFromPDF action")

	// ErrDocumentNotPDF is returned when the document bytes are not a PDF.
	ErrDocumentNotPDF = errors.New("document must be a PDF")

	// ErrCardsRequired is returned when a distractor request has an empty card list.
	ErrCardsRequired = errors.New("cards array is required for generateDistractors action")

	// ErrCardIDEmpty is returned when a card reference has no identifier.
	ErrCardIDEmpty = errors.New("card id cannot be empty")

	// ErrDuplicateCardID is returned when two card references share an identifier.
	ErrDuplicateCardID = errors.New("card ids must be unique")

	// ErrNoContent is returned when a generation produced no usable flashcards.
	ErrNoContent = errors.New("no content produced")
)
