package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateway returns a test server that records the last request body and
// replies with body.
func gateway(t *testing.T, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var last map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&last))
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDeckCommand(t *testing.T) {
	srv, last := gateway(t, `{"data":{"title":"Cells","description":"Biology","cards":[{"front":"Q","back":"A"}]}}`)

	out, err := execute(t, "deck", "--gateway", srv.URL, "-n", "1", "Cell", "biology")
	require.NoError(t, err)

	var deck map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &deck))
	assert.Equal(t, "Cells", deck["title"])
	assert.NotEmpty(t, deck["id"])

	assert.Equal(t, "Cell biology", (*last)["topic"])
	assert.EqualValues(t, 1, (*last)["numQuestions"])
}

func TestDeckCommandUsesEnvEndpoint(t *testing.T) {
	srv, _ := gateway(t, `{"data":{"title":"Cells","description":"","cards":[{"front":"Q","back":"A"}]}}`)
	t.Setenv(gatewayEnv, srv.URL)

	_, err := execute(t, "deck", "Cells")
	assert.NoError(t, err)
}

func TestDeckCommandSurfacesGatewayError(t *testing.T) {
	srv, _ := gateway(t, `{"error":"numQuestions must be between 1 and 50"}`)

	_, err := execute(t, "deck", "--gateway", srv.URL, "-n", "99", "Cells")
	assert.ErrorContains(t, err, "numQuestions must be between 1 and 50")
}

func TestFileCommandText(t *testing.T) {
	srv, last := gateway(t, `{"data":[{"front":"Capital of France","back":"Paris"}]}`)
	path := writeFile(t, "cards.csv", "Capital of France,Paris\n")

	out, err := execute(t, "file", "--gateway", srv.URL, path)
	require.NoError(t, err)
	assert.Contains(t, out, `"back": "Paris"`)

	assert.Equal(t, "generateFromText", (*last)["action"])
	assert.Equal(t, "Q: Capital of France\nA: Paris", (*last)["text"])
}

func TestFileCommandPDF(t *testing.T) {
	srv, last := gateway(t, `{"data":[]}`)
	path := writeFile(t, "lecture.pdf", "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

	_, err := execute(t, "file", "--gateway", srv.URL, path)
	require.NoError(t, err)
	assert.Equal(t, "generateFromPDF", (*last)["action"])
	assert.NotEmpty(t, (*last)["pdfBase64"])
}

func TestDistractorsCommand(t *testing.T) {
	srv, last := gateway(t, `{"data":{"c1":["Lyon","Nice","Lille"]}}`)
	path := writeFile(t, "cards.json", `[{"id":"c1","front":"Capital of France?","back":"Paris"}]`)

	out, err := execute(t, "distractors", "--gateway", srv.URL, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Lyon")
	assert.Len(t, (*last)["cards"], 1)
}

func TestParseCards(t *testing.T) {
	cards, err := parseCards([]byte(`{"title":"x","cards":[{"front":"Q","back":"A"}]}`))
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.NotEmpty(t, cards[0].ID)

	_, err = parseCards([]byte(`[]`))
	assert.Error(t, err)

	_, err = parseCards([]byte(`nonsense`))
	assert.Error(t, err)
}
