package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/scry-gateway/internal/api/shared"
	"github.com/phrazzld/scry-gateway/internal/domain"
	"github.com/phrazzld/scry-gateway/internal/generation"
	"github.com/phrazzld/scry-gateway/internal/redact"
)

const unexpectedErrorMessage = "An unexpected error occurred"

// MapErrorToStatusCode maps internal errors to HTTP status codes. Validation
// failures travel inside a 200 envelope; everything the gateway could not
// complete is a 500.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusOK

	case errors.Is(err, shared.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return unexpectedErrorMessage
	}

	var exhausted *generation.ExhaustedError

	switch {
	case errors.Is(err, domain.ErrValidation):
		return validationMessage(err)

	case errors.Is(err, shared.ErrBodyTooLarge):
		return "request body too large"

	case errors.As(err, &exhausted):
		return redact.String(exhausted.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"

	case errors.Is(err, context.Canceled):
		return "request cancelled"

	case errors.Is(err, generation.ErrContentBlocked):
		return generation.ErrContentBlocked.Error()

	default:
		return unexpectedErrorMessage
	}
}

// validationMessage strips the generic prefix so the client sees the
// specific rule that failed, e.g. "topic is required for generateDeck action".
func validationMessage(err error) string {
	msg := err.Error()
	prefix := domain.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		msg = msg[i+len(prefix):]
	}
	if msg == "" {
		return domain.ErrValidation.Error()
	}
	return msg
}
