package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/scry-gateway/internal/api/shared"
	"github.com/phrazzld/scry-gateway/internal/domain"
)

const invalidRequestMessage = "Invalid request format"

// ErrInvalidDocumentEncoding is returned when pdfBase64 cannot be decoded.
var ErrInvalidDocumentEncoding = errors.New("pdfBase64 is not valid base64")

// GenerateRequest is the wire form of a generation request. Only the fields
// relevant to Action are read.
type GenerateRequest struct {
	Action       string           `json:"action"                 validate:"required,oneof=generateDeck generateFromText generateFromPDF generateDistractors"`
	Topic        string           `json:"topic,omitempty"`
	NumQuestions *int             `json:"numQuestions,omitempty" validate:"omitnil,min=1,max=50"`
	Cards        []domain.CardRef `json:"cards,omitempty"`
	Text         string           `json:"text,omitempty"`
	PDFBase64    string           `json:"pdfBase64,omitempty"`
}

// ToDomain converts the wire request into a domain.GenerationRequest. An
// absent numQuestions becomes domain.DefaultCount; an explicit value is kept
// so that 0 is rejected by validation.
func (req GenerateRequest) ToDomain() (domain.GenerationRequest, error) {
	out := domain.GenerationRequest{
		Action: domain.Action(req.Action),
		Topic:  req.Topic,
		Text:   req.Text,
		Cards:  req.Cards,
		Count:  domain.DefaultCount,
	}
	if req.NumQuestions != nil {
		out.Count = *req.NumQuestions
	}

	if out.Action == domain.ActionCardsFromDocument && req.PDFBase64 != "" {
		doc, err := decodeDocument(req.PDFBase64)
		if err != nil {
			return out, fmt.Errorf("%w: %w", domain.ErrValidation, ErrInvalidDocumentEncoding)
		}
		out.Document = doc
	}

	return out, nil
}

// validationError converts a struct validation failure into the domain error
// for the first failing field, so callers see the same message either way.
func (req GenerateRequest) validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fieldErrs[0].Field() {
		case "Action":
			return fmt.Errorf("%w: %w: %s", domain.ErrValidation, domain.ErrUnknownAction, req.Action)
		case "NumQuestions":
			return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrCountOutOfRange)
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrValidation, err)
}

// decodeDocument accepts plain base64 or a data URL.
func decodeDocument(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	doc, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	return doc, nil
}

// Dispatcher runs a validated generation request.
type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.GenerationRequest) (any, error)
}

// GenerateHandler serves the single generation endpoint.
type GenerateHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewGenerateHandler creates a new GenerateHandler
func NewGenerateHandler(dispatcher Dispatcher, logger *slog.Logger) *GenerateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Generate handles POST / and POST /api/generate.
//
// Responses use a {data}|{error} envelope: 200 {"data": ...} on success,
// 200 {"error": ...} for malformed or invalid requests, 413 when the body
// exceeds the limit and 500 {"error": ...} when the gateway could not
// complete the request.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		if errors.Is(err, shared.ErrBodyTooLarge) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, GetSafeErrorMessage(err), err)
			return
		}
		// Undecodable bodies are malformed requests and travel in the 200 envelope.
		shared.RespondWithErrorAndLog(w, r, http.StatusOK, invalidRequestMessage, err)
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		err = req.validationError(err)
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	genReq, err := req.ToDomain()
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log := h.logger.With(
		slog.String("trace_id", shared.GetTraceID(r.Context())),
		slog.String("action", req.Action))
	log.InfoContext(r.Context(), "generation requested", "count", genReq.Count)

	result, err := h.dispatcher.Dispatch(r.Context(), genReq)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.InfoContext(r.Context(), "generation completed")
	shared.RespondWithData(w, r, http.StatusOK, result)
}
