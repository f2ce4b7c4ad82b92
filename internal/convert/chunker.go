package convert

import (
	"fmt"
	"strings"

	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/model"
)

// EstimateTokens approximates the token count of a text span. The 4-chars-
// per-token heuristic is close enough for chunk budgeting across providers.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

// Chunker splits a converted document into bounded, overlapping chunks.
type Chunker struct {
	maxTokens     int
	overlapTokens int
}

// NewChunker creates a Chunker from config, applying defaults for zero values.
func NewChunker(cfg config.ChunkConfig) *Chunker {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1800
	}
	overlap := cfg.OverlapTokens
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxTokens {
		overlap = maxTokens / 4
	}
	return &Chunker{maxTokens: maxTokens, overlapTokens: overlap}
}

// span is a paragraph with its source page.
type span struct {
	text   string
	page   int
	tokens int
}

// Chunk splits the document at paragraph boundaries. Paragraphs larger than
// the budget become their own chunk rather than being cut mid-sentence. The
// tail paragraphs of each chunk are repeated at the head of the next one so
// facts straddling a boundary are seen whole at least once.
func (c *Chunker) Chunk(doc *model.Document) []model.Chunk {
	var spans []span
	for _, page := range doc.Pages {
		for _, para := range splitParagraphs(page.Text) {
			spans = append(spans, span{text: para, page: page.Number, tokens: EstimateTokens(para)})
		}
	}
	if len(spans) == 0 {
		return nil
	}

	var chunks []model.Chunk
	var current []span
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, c.buildChunk(len(chunks), current))

		// Carry overlap into the next chunk.
		var carry []span
		carryTokens := 0
		for i := len(current) - 1; i >= 0; i-- {
			if carryTokens+current[i].tokens > c.overlapTokens {
				break
			}
			carryTokens += current[i].tokens
			carry = append([]span{current[i]}, carry...)
		}
		current = carry
		currentTokens = carryTokens
	}

	for _, s := range spans {
		if currentTokens+s.tokens > c.maxTokens && currentTokens > 0 {
			flush()
		}
		current = append(current, s)
		currentTokens += s.tokens
	}
	if currentTokens > 0 {
		// Do not emit a chunk that is pure overlap of the previous one.
		if len(chunks) == 0 || !isOverlapOnly(current, chunks[len(chunks)-1]) {
			chunks = append(chunks, c.buildChunk(len(chunks), current))
		}
	}

	return chunks
}

func (c *Chunker) buildChunk(index int, spans []span) model.Chunk {
	var b strings.Builder
	tokens := 0
	pageStart := spans[0].page
	pageEnd := spans[0].page
	for i, s := range spans {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.text)
		tokens += s.tokens
		if s.page < pageStart {
			pageStart = s.page
		}
		if s.page > pageEnd {
			pageEnd = s.page
		}
	}
	return model.Chunk{
		ID:            fmt.Sprintf("c%04d", index+1),
		PageStart:     pageStart,
		PageEnd:       pageEnd,
		Text:          b.String(),
		TokenEstimate: tokens,
	}
}

func isOverlapOnly(spans []span, prev model.Chunk) bool {
	var b strings.Builder
	for i, s := range spans {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.text)
	}
	return strings.HasSuffix(prev.Text, b.String())
}

func splitParagraphs(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			out = append(out, para)
		}
	}
	return out
}
