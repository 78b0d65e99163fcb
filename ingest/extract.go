package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// Extract converts an uploaded file into plain text based on its suffix.
// PDF files go through the PDF reader; everything else is treated as UTF-8
// text with control characters scrubbed out. Returns ErrNoExtractedText if
// the file yields no usable text.
func Extract(fileName string, data []byte) (string, error) {
	var text string
	var err error

	switch FileSuffix(fileName) {
	case "pdf":
		text, err = extractPDF(data)
	default:
		text = scrubText(string(data))
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrNoExtractedText, fileName)
	}
	return text, nil
}

// FileSuffix returns the lowercase extension of a file name without the dot.
func FileSuffix(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return scrubText(buf.String()), nil
}

// scrubText drops invalid UTF-8 and control characters other than
// whitespace. Embedded nulls in particular break the index's varchar
// columns.
func scrubText(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
}
