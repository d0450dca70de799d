package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-gateway/internal/config"
	"github.com/phrazzld/scry-gateway/internal/generation"
)

var testCred = generation.Credential{Name: "OPENAI_KEY", Secret: "sk-test"}

func newTestInvoker(t *testing.T, handler http.HandlerFunc) *Invoker {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	inv, err := NewInvoker(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		config.LLMConfig{ModelName: "gpt-4o-mini", BaseURL: server.URL + "/v1"},
		server.Client(),
	)
	require.NoError(t, err)
	return inv
}

func completion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
	}
}

func TestInvoke_HappyPath(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	var auth string
	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"flashcards":[{"front":"Q","back":"A"}]}`, "stop"))
	})

	raw, err := inv.Invoke(context.Background(), testCred, "make cards", generation.ForFlashcardArray(), nil)
	require.NoError(t, err)
	assert.Equal(t, `{"flashcards":[{"front":"Q","back":"A"}]}`, raw)
	assert.Equal(t, "Bearer sk-test", auth)

	format := captured["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	jsonSchema := format["json_schema"].(map[string]any)
	assert.Equal(t, "flashcards", jsonSchema["name"])
	schema := jsonSchema["schema"].(map[string]any)
	assert.Equal(t, "object", schema["type"], "array roots are wrapped in an object")

	cards, err := generation.NormalizeFlashcards(raw)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestInvoke_ErrorsCarryStatus(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status int
		class  generation.Class
	}{
		{http.StatusTooManyRequests, generation.ClassQuota},
		{http.StatusInternalServerError, generation.ClassRetryable},
		{http.StatusUnauthorized, generation.ClassFatal},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			t.Parallel()

			inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "nope", "type": "test_error"},
				})
			})

			_, err := inv.Invoke(context.Background(), testCred, "p", generation.ForDeck(), nil)
			require.Error(t, err)

			var perr *generation.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.status, perr.StatusCode)
			assert.Equal(t, tc.class, generation.Classify(err))
		})
	}
}

func TestInvoke_RejectsAttachmentWithoutCalling(t *testing.T) {
	t.Parallel()

	called := false
	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := inv.Invoke(context.Background(), testCred, "p", generation.ForFlashcardArray(),
		&generation.Attachment{MIMEType: "application/pdf", Data: []byte("%PDF")})
	assert.ErrorIs(t, err, generation.ErrAttachmentUnsupported)
	assert.Equal(t, generation.ClassFatal, generation.Classify(err))
	assert.False(t, called)
}

func TestInvoke_ContentFilter(t *testing.T) {
	t.Parallel()

	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("", "content_filter"))
	})

	_, err := inv.Invoke(context.Background(), testCred, "p", generation.ForDeck(), nil)
	assert.ErrorIs(t, err, generation.ErrContentBlocked)
}

func TestInvoke_EmptyContent(t *testing.T) {
	t.Parallel()

	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(" ", "stop"))
	})

	_, err := inv.Invoke(context.Background(), testCred, "p", generation.ForDeck(), nil)
	assert.ErrorIs(t, err, generation.ErrEmptyResponse)
}

func TestNewInvoker_RequiresModel(t *testing.T) {
	t.Parallel()

	_, err := NewInvoker(slog.New(slog.NewTextHandler(io.Discard, nil)), config.LLMConfig{}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
