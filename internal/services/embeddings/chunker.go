package embeddings

import (
	"strings"

	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

// defaultSeparators is the split hierarchy, coarsest first. The empty
// separator is the character-level fallback and always matches.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits page text into overlapping chunks sized for the embedding
// model. It prefers paragraph boundaries, then lines, then words, and only
// cuts mid-word when a single word exceeds the chunk size.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// SplitPages chunks every page, numbering chunks consecutively across the
// document. Pages with no text produce no chunks.
func (c *Chunker) SplitPages(pages []interfaces.PageText) []models.DocumentChunk {
	var chunks []models.DocumentChunk
	index := 0
	for _, page := range pages {
		for _, text := range c.Split(page.Text) {
			chunks = append(chunks, models.DocumentChunk{
				Text:  text,
				Page:  page.Page,
				Index: index,
			})
			index++
		}
	}
	return chunks
}

// Split breaks text into chunks of at most chunkSize characters with
// chunkOverlap characters carried between adjacent chunks. Whitespace-only
// output is dropped.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for _, chunk := range c.split(text, c.separators) {
		if strings.TrimSpace(chunk) != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func (c *Chunker) split(text string, separators []string) []string {
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	// Pick the coarsest separator present in the text. The final ""
	// entry always matches, so the loop cannot fall through.
	separator := ""
	var rest []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	splits := strings.Split(text, separator)

	var chunks []string
	var pending []string
	for _, piece := range splits {
		if len(piece) <= c.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, c.merge(pending, separator)...)
			pending = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, c.split(piece, rest)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, c.merge(pending, separator)...)
	}
	return chunks
}

// merge packs small splits into chunks up to chunkSize, then rewinds the
// window to at most chunkOverlap characters so adjacent chunks share a tail.
func (c *Chunker) merge(splits []string, separator string) []string {
	var chunks []string
	var window []string
	sum := 0 // window piece lengths, excluding separators
	sepLen := len(separator)

	joined := func() int {
		if len(window) == 0 {
			return 0
		}
		return sum + sepLen*(len(window)-1)
	}

	for _, piece := range splits {
		extra := len(piece)
		if len(window) > 0 {
			extra += sepLen
		}
		if joined()+extra > c.chunkSize && len(window) > 0 {
			chunks = append(chunks, strings.Join(window, separator))
			for joined() > c.chunkOverlap && len(window) > 0 {
				sum -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		sum += len(piece)
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, separator))
	}
	return chunks
}
