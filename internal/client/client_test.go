package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-gateway/internal/domain"
	"github.com/phrazzld/scry-gateway/internal/generation"
)

// fakeGateway answers each request with the next scripted status and body;
// the last entry repeats.
type fakeGateway struct {
	t       *testing.T
	replies []reply
	calls   atomic.Int32
	last    atomic.Pointer[map[string]any]
}

type reply struct {
	status int
	body   string
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(g.t, http.MethodPost, r.Method)
	assert.Equal(g.t, "application/json", r.Header.Get("Content-Type"))

	var body map[string]any
	assert.NoError(g.t, json.NewDecoder(r.Body).Decode(&body))
	g.last.Store(&body)

	n := int(g.calls.Add(1)) - 1
	if n >= len(g.replies) {
		n = len(g.replies) - 1
	}
	w.WriteHeader(g.replies[n].status)
	_, _ = io.WriteString(w, g.replies[n].body)
}

func newTestClient(t *testing.T, replies ...reply) (*Client, *fakeGateway) {
	t.Helper()
	gw := &fakeGateway{t: t, replies: replies}
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api/generate",
		WithPolicy(generation.Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	return c, gw
}

const deckData = `{"data":{"title":"Photosynthesis","description":"Plants","cards":[{"front":"Q1","back":"A1"},{"front":"Q2","back":"A2"}]}}`

func TestNewRejectsBadEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "localhost", "://bad"} {
		_, err := New(endpoint)
		assert.Error(t, err, endpoint)
	}
}

func TestGenerateDeck(t *testing.T) {
	c, gw := newTestClient(t, reply{http.StatusOK, deckData})

	deck, err := c.GenerateDeck(context.Background(), "Photosynthesis", 2)
	require.NoError(t, err)

	assert.Equal(t, "Photosynthesis", deck.Title)
	require.Len(t, deck.Cards, 2)
	_, err = uuid.Parse(deck.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, deck.Cards[0].ID, deck.Cards[1].ID)
	for _, card := range deck.Cards {
		_, err := uuid.Parse(card.ID)
		assert.NoError(t, err)
	}

	sent := *gw.last.Load()
	assert.Equal(t, "generateDeck", sent["action"])
	assert.Equal(t, "Photosynthesis", sent["topic"])
	assert.EqualValues(t, 2, sent["numQuestions"])
}

func TestGenerateDeckOmitsZeroCount(t *testing.T) {
	c, gw := newTestClient(t, reply{http.StatusOK, deckData})

	_, err := c.GenerateDeck(context.Background(), "Photosynthesis", 0)
	require.NoError(t, err)
	assert.NotContains(t, *gw.last.Load(), "numQuestions")
}

func TestGenerateDeckRetriesTransientErrors(t *testing.T) {
	c, gw := newTestClient(t,
		reply{http.StatusInternalServerError, `{"error":"service busy, retry later"}`},
		reply{http.StatusInternalServerError, `{"error":"rate limited, retry later"}`},
		reply{http.StatusOK, deckData},
	)

	deck, err := c.GenerateDeck(context.Background(), "Photosynthesis", 2)
	require.NoError(t, err)
	assert.Len(t, deck.Cards, 2)
	assert.EqualValues(t, 3, gw.calls.Load())
}

func TestGenerateDeckStopsAfterThreeAttempts(t *testing.T) {
	c, gw := newTestClient(t, reply{http.StatusInternalServerError, `{"error":"service busy, retry later"}`})

	_, err := c.GenerateDeck(context.Background(), "Photosynthesis", 2)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "service busy, retry later", gwErr.Message)
	assert.EqualValues(t, 3, gw.calls.Load())
}

func TestGenerateDeckDoesNotRetryValidation(t *testing.T) {
	c, gw := newTestClient(t, reply{http.StatusOK, `{"error":"topic is required for generateDeck action"}`})

	_, err := c.GenerateDeck(context.Background(), "", 2)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusOK, gwErr.StatusCode)
	assert.Equal(t, "topic is required for generateDeck action", err.Error())
	assert.EqualValues(t, 1, gw.calls.Load())
}

func TestGenerateDeckHonoursCancellation(t *testing.T) {
	c, _ := newTestClient(t, reply{http.StatusInternalServerError, `{"error":"service busy, retry later"}`})
	c.policy = generation.Policy{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.GenerateDeck(ctx, "Photosynthesis", 2)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestErrorCheckedBeforeData(t *testing.T) {
	c, _ := newTestClient(t, reply{http.StatusOK, `{"data":[{"front":"Q","back":"A"}],"error":"content blocked by language model safety filters"}`})

	cards, err := c.GenerateFromText(context.Background(), "text", 1)
	assert.Nil(t, cards)
	assert.EqualError(t, err, "content blocked by language model safety filters")
}

func TestEmptyData(t *testing.T) {
	c, _ := newTestClient(t, reply{http.StatusOK, `{"data":null}`})

	_, err := c.GenerateFromText(context.Background(), "text", 1)
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestNonJSONFailure(t *testing.T) {
	c, _ := newTestClient(t, reply{http.StatusBadGateway, "<html>bad gateway</html>"})

	_, err := c.GenerateFromText(context.Background(), "text", 1)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
}

func TestGenerateFromText(t *testing.T) {
	c, gw := newTestClient(t, reply{http.StatusOK, `{"data":[{"front":"What makes ATP?","back":"Mitochondria"}]}`})

	cards, err := c.GenerateFromText(context.Background(), "Mitochondria make ATP.", 1)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Mitochondria", cards[0].Back)
	assert.NotEmpty(t, cards[0].ID)
	assert.Equal(t, "generateFromText", (*gw.last.Load())["action"])
}

func TestGenerateFromDocument(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%%EOF\n")
	c, gw := newTestClient(t, reply{http.StatusOK, `{"data":[]}`})

	cards, err := c.GenerateFromDocument(context.Background(), pdf, 5)
	require.NoError(t, err)
	assert.Empty(t, cards)

	sent := *gw.last.Load()
	assert.Equal(t, "generateFromPDF", sent["action"])
	decoded, err := base64.StdEncoding.DecodeString(sent["pdfBase64"].(string))
	require.NoError(t, err)
	assert.Equal(t, pdf, decoded)
}

func TestGenerateDistractors(t *testing.T) {
	c, gw := newTestClient(t, reply{http.StatusOK, `{"data":{"c1":["x","y","z"],"c2":[]}}`})

	set, err := c.GenerateDistractors(context.Background(), []Card{
		{ID: "c1", Front: "Capital of France?", Back: "Paris"},
		{ID: "c2", Front: "2+2?", Back: "4"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DistractorSet{"c1": {"x", "y", "z"}, "c2": {}}, set)

	sent := *gw.last.Load()
	assert.Equal(t, "generateDistractors", sent["action"])
	assert.Len(t, sent["cards"], 2)
}
