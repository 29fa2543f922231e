package embeddings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenarc/esgpipe/internal/interfaces"
)

func TestSplitShortText(t *testing.T) {
	c := NewChunker(1000, 200)
	chunks := c.Split("a short paragraph")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0])
}

func TestSplitEmptyText(t *testing.T) {
	c := NewChunker(1000, 200)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\n  "))
}

func TestSplitRespectsChunkSize(t *testing.T) {
	c := NewChunker(100, 20)

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("emissions reporting paragraph number with detail.\n\n")
	}

	chunks := c.Split(b.String())
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100, "chunk %d exceeds size", i)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	c := NewChunker(60, 0)

	text := "first paragraph about water usage." + "\n\n" + "second paragraph about energy intensity."
	chunks := c.Split(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, "first paragraph about water usage.", chunks[0])
	assert.Equal(t, "second paragraph about energy intensity.", chunks[1])
}

func TestSplitOverlapCarriesTail(t *testing.T) {
	c := NewChunker(40, 15)

	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa"
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	// Each chunk after the first starts with words already seen at the end
	// of the previous one.
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i])[0]
		assert.Contains(t, chunks[i-1], firstWord, "chunk %d should overlap chunk %d", i, i-1)
	}
}

func TestSplitHandlesOversizedWord(t *testing.T) {
	c := NewChunker(10, 0)

	chunks := c.Split(strings.Repeat("x", 35))
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 10)
	}

	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	assert.GreaterOrEqual(t, total, 35)
}

func TestSplitPagesNumbersAcrossDocument(t *testing.T) {
	c := NewChunker(1000, 200)

	pages := []interfaces.PageText{
		{Page: 1, Text: "page one content"},
		{Page: 2, Text: ""},
		{Page: 3, Text: "page three content"},
	}

	chunks := c.SplitPages(pages)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, 3, chunks[1].Page)
}

func TestSplitPagesAllEmpty(t *testing.T) {
	c := NewChunker(1000, 200)

	pages := []interfaces.PageText{{Page: 1}, {Page: 2}}
	assert.Empty(t, c.SplitPages(pages))
}
