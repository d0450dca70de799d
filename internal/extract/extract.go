// Package extract turns uploaded files into text for generateFromText.
// PDFs are not extracted here; they are sent to the gateway as documents.
package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// PDFMIMEType is the media type routed to document generation.
const PDFMIMEType = "application/pdf"

var (
	// ErrIsPDF is returned for PDF input, which callers send as a document.
	ErrIsPDF = errors.New("file is a PDF; send it as a document")

	// ErrUnsupportedFormat is returned for files that are not plain text.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmpty is returned when a file yields no text.
	ErrEmpty = errors.New("file contains no text")

	// ErrMalformed is returned when a CSV or JSON file does not hold question/answer pairs.
	ErrMalformed = errors.New("file does not contain question/answer pairs")
)

// Extractor turns file contents into prompt text.
type Extractor interface {
	Extract(name string, data []byte) (string, error)
}

// IsPDF reports whether data sniffs as a PDF.
func IsPDF(data []byte) bool {
	return mimetype.Detect(data).Is(PDFMIMEType)
}

// PlainText extracts txt, md, csv and json files. CSV rows and JSON entries
// are rendered as "Q: ...\nA: ..." blocks separated by blank lines.
type PlainText struct{}

var _ Extractor = PlainText{}

// Extract detects the format from the extension, falling back to content
// sniffing, and returns the text to generate from.
func (PlainText) Extract(name string, data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if mt.Is(PDFMIMEType) {
		return "", ErrIsPDF
	}

	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); {
	case ext == ".csv" || (ext == "" && mt.Is("text/csv")):
		text, err = csvPairs(data)
	case ext == ".json" || (ext == "" && mt.Is("application/json")):
		text, err = jsonPairs(data)
	case ext == ".txt" || ext == ".md" || ext == ".markdown" || isText(mt):
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt.String())
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmpty
	}
	return text, nil
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func qa(question, answer string) string {
	return "Q: " + question + "\nA: " + answer
}

func csvPairs(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var blocks []string
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < 2 || strings.TrimSpace(record[0]) == "" || strings.TrimSpace(record[1]) == "" {
			return "", fmt.Errorf("%w: line %d needs a question and an answer", ErrMalformed, line)
		}
		blocks = append(blocks, qa(strings.TrimSpace(record[0]), strings.TrimSpace(record[1])))
	}
	return strings.Join(blocks, "\n\n"), nil
}

type jsonPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Front    string `json:"front"`
	Back     string `json:"back"`
}

func jsonPairs(data []byte) (string, error) {
	var pairs []jsonPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return "", fmt.Errorf("%w: JSON must be an array of question/answer pairs", ErrMalformed)
	}

	blocks := make([]string, 0, len(pairs))
	for _, p := range pairs {
		q, a := p.Question, p.Answer
		if q == "" {
			q = p.Front
		}
		if a == "" {
			a = p.Back
		}
		blocks = append(blocks, qa(q, a))
	}
	return strings.Join(blocks, "\n\n"), nil
}
