package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSuffix(t *testing.T) {
	assert.Equal(t, "pdf", FileSuffix("Handbook.PDF"))
	assert.Equal(t, "md", FileSuffix("notes.md"))
	assert.Equal(t, "", FileSuffix("README"))
	assert.Equal(t, "txt", FileSuffix("a.b.txt"))
}

func TestExtractPlainText(t *testing.T) {
	text, err := Extract("notes.txt", []byte("  hello world\nsecond line  "))
	require.NoError(t, err)
	assert.Equal(t, "hello world\nsecond line", text)
}

func TestExtractScrubsControlCharacters(t *testing.T) {
	text, err := Extract("notes.md", []byte("a\x00b\x01c\tkeep\nlines"))
	require.NoError(t, err)
	assert.Equal(t, "abc\tkeep\nlines", text)
}

func TestExtractDropsInvalidUTF8(t *testing.T) {
	text, err := Extract("notes.txt", []byte{'o', 'k', 0xff, 0xfe, '!'})
	require.NoError(t, err)
	assert.Equal(t, "ok!", text)
}

func TestExtractEmptyFile(t *testing.T) {
	_, err := Extract("empty.txt", []byte("   \n\t  "))
	assert.ErrorIs(t, err, ErrNoExtractedText)
}

func TestExtractBrokenPDF(t *testing.T) {
	_, err := Extract("broken.pdf", []byte("not a pdf at all"))
	assert.Error(t, err)
}
