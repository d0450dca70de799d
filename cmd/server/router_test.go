package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-gateway/internal/api/shared"
	"github.com/phrazzld/scry-gateway/internal/config"
	"github.com/phrazzld/scry-gateway/internal/mocks"
)

func newTestRouter(t *testing.T, cfg *config.Config, inv *mocks.MockInvoker) http.Handler {
	t.Helper()
	app, err := newApplication(cfg, testLogger(), inv)
	require.NoError(t, err)
	return app.setupRouter()
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouterGenerateRoutes(t *testing.T) {
	inv := mocks.NewMockInvokerWithResponse(mocks.DeckJSON("Cells", 2))
	h := newTestRouter(t, testConfig(), inv)

	for _, path := range []string{"/", "/api/generate"} {
		t.Run(path, func(t *testing.T) {
			w := post(h, path, `{"action":"generateDeck","topic":"Cells","numQuestions":2}`)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.NotEmpty(t, w.Header().Get(shared.TraceIDHeader))

			var envelope struct {
				Data struct {
					Title string `json:"title"`
					Cards []any  `json:"cards"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
			assert.Equal(t, "Cells", envelope.Data.Title)
			assert.Len(t, envelope.Data.Cards, 2)
		})
	}
}

func TestRouterHealth(t *testing.T) {
	h := newTestRouter(t, testConfig(), &mocks.MockInvoker{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRouterMetrics(t *testing.T) {
	h := newTestRouter(t, testConfig(), mocks.NewMockInvokerWithResponse(mocks.DeckJSON("Cells", 1)))
	post(h, "/api/generate", `{"action":"generateDeck","topic":"Cells","numQuestions":1}`)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.Contains(t, w.Body.String(), "generations_total")
}

func TestRouterCORSPreflight(t *testing.T) {
	h := newTestRouter(t, testConfig(), &mocks.MockInvoker{})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type, apikey")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRouterBareOptions(t *testing.T) {
	h := newTestRouter(t, testConfig(), &mocks.MockInvoker{})

	for _, path := range []string{"/", "/api/generate"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, path, nil)
			req.Header.Set("Origin", "https://app.example.com")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	h := newTestRouter(t, testConfig(), &mocks.MockInvoker{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/generate", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"method not allowed"}`, w.Body.String())
}

func TestRouterBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 64
	h := newTestRouter(t, cfg, &mocks.MockInvoker{})

	w := post(h, "/", `{"action":"generateFromText","text":"`+strings.Repeat("a", 256)+`"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouterRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitPerMinute = 2
	h := newTestRouter(t, cfg, mocks.NewMockInvokerWithResponse(mocks.DeckJSON("Cells", 1)))

	body := `{"action":"generateDeck","topic":"Cells","numQuestions":1}`
	assert.Equal(t, http.StatusOK, post(h, "/", body).Code)
	assert.Equal(t, http.StatusOK, post(h, "/", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(h, "/", body).Code)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code, "health is not rate limited")
}
