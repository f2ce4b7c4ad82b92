package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/model"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("ab"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("a", 100)))
}

func TestChunker_SingleSmallDocument(t *testing.T) {
	c := NewChunker(config.ChunkConfig{MaxTokens: 1800, OverlapTokens: 150})
	doc := &model.Document{
		Pages: []model.PageText{
			{Number: 1, Text: "First paragraph.\n\nSecond paragraph."},
		},
	}

	chunks := c.Chunk(doc)
	require.Len(t, chunks, 1)
	assert.Equal(t, "c0001", chunks[0].ID)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 1, chunks[0].PageEnd)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", chunks[0].Text)
}

func TestChunker_SplitsAtParagraphBoundaries(t *testing.T) {
	// 100 tokens per paragraph, budget of 250: two paragraphs per chunk.
	para := strings.Repeat("x", 400)
	c := NewChunker(config.ChunkConfig{MaxTokens: 250, OverlapTokens: 0})
	doc := &model.Document{
		Pages: []model.PageText{
			{Number: 1, Text: para + "\n\n" + para},
			{Number: 2, Text: para + "\n\n" + para},
		},
	}

	chunks := c.Chunk(doc)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 1, chunks[0].PageEnd)
	assert.Equal(t, 2, chunks[1].PageStart)
	assert.LessOrEqual(t, chunks[0].TokenEstimate, 250)
}

func TestChunker_OverlapCarriesTailParagraph(t *testing.T) {
	paraA := "A " + strings.Repeat("a", 398)
	paraB := "B " + strings.Repeat("b", 398)
	paraC := "C " + strings.Repeat("c", 398)

	c := NewChunker(config.ChunkConfig{MaxTokens: 250, OverlapTokens: 120})
	doc := &model.Document{
		Pages: []model.PageText{
			{Number: 1, Text: paraA + "\n\n" + paraB + "\n\n" + paraC},
		},
	}

	chunks := c.Chunk(doc)
	require.GreaterOrEqual(t, len(chunks), 2)

	// The second chunk repeats the tail paragraph of the first.
	assert.True(t, strings.HasSuffix(chunks[0].Text, paraB))
	assert.True(t, strings.HasPrefix(chunks[1].Text, paraB))
}

func TestChunker_OversizedParagraphBecomesOwnChunk(t *testing.T) {
	big := strings.Repeat("y", 4000) // 1000 tokens against a 250 budget
	small := "short paragraph"

	c := NewChunker(config.ChunkConfig{MaxTokens: 250, OverlapTokens: 0})
	doc := &model.Document{
		Pages: []model.PageText{{Number: 1, Text: small + "\n\n" + big + "\n\n" + small}},
	}

	chunks := c.Chunk(doc)
	require.Len(t, chunks, 3)
	assert.Equal(t, big, chunks[1].Text, "oversized paragraph kept whole")
}

func TestChunker_EmptyDocument(t *testing.T) {
	c := NewChunker(config.ChunkConfig{})
	doc := &model.Document{Pages: []model.PageText{{Number: 1, Text: "   \n\n  "}}}
	assert.Nil(t, c.Chunk(doc))
}

func TestChunker_PageRangeSpansBoundary(t *testing.T) {
	para := strings.Repeat("z", 400)
	c := NewChunker(config.ChunkConfig{MaxTokens: 250, OverlapTokens: 0})
	doc := &model.Document{
		Pages: []model.PageText{
			{Number: 4, Text: para},
			{Number: 5, Text: para},
		},
	}

	chunks := c.Chunk(doc)
	require.Len(t, chunks, 1)
	assert.Equal(t, 4, chunks[0].PageStart)
	assert.Equal(t, 5, chunks[0].PageEnd)
}

func TestChunker_IDsAreSequential(t *testing.T) {
	para := strings.Repeat("q", 400)
	c := NewChunker(config.ChunkConfig{MaxTokens: 120, OverlapTokens: 0})
	doc := &model.Document{
		Pages: []model.PageText{{Number: 1, Text: para + "\n\n" + para + "\n\n" + para}},
	}

	chunks := c.Chunk(doc)
	require.Len(t, chunks, 3)
	assert.Equal(t, "c0001", chunks[0].ID)
	assert.Equal(t, "c0002", chunks[1].ID)
	assert.Equal(t, "c0003", chunks[2].ID)
}
