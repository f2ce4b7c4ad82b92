package extract

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-esg/esia-review/internal/archetype"
	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/llm"
	"github.com/atlas-esg/esia-review/internal/model"
)

// fakeClient returns canned responses per model id.
type fakeClient struct {
	responses map[string]string
	errs      map[string]error
	calls     []llm.Request
}

func (f *fakeClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.calls = append(f.calls, req)
	if err, ok := f.errs[req.Model]; ok {
		return nil, err
	}
	return &llm.Response{
		Text:  f.responses[req.Model],
		Model: req.Model,
		Usage: model.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}, nil
}

func (f *fakeClient) Provider() string { return "fake" }

func newTestExtractor(t *testing.T, client llm.Client) *Extractor {
	t.Helper()
	registry, err := archetype.Load("", "")
	require.NoError(t, err)
	return New(client, registry,
		config.ExtractConfig{EscalationConfidence: 0.5},
		config.LLMConfig{FastModel: "fast", StrongModel: "strong", MaxTokens: 4096},
	)
}

func testChunk() model.Chunk {
	return model.Chunk{ID: "c0001", PageStart: 3, PageEnd: 5, Text: "The project area is 120 ha."}
}

const goodResponse = `{"facts":[{"name":"project area","type":"quantity","value":"120","unit":"ha","evidence":"The project area is 120 ha.","confidence":0.9}]}`

func TestExtractChunks_FastModelSucceeds(t *testing.T) {
	client := &fakeClient{responses: map[string]string{"fast": goodResponse}}
	e := newTestExtractor(t, client)

	result, err := e.ExtractChunks(context.Background(), []model.Chunk{testChunk()})
	require.NoError(t, err)

	require.Len(t, result.Occurrences, 1)
	occ := result.Occurrences[0]
	assert.Equal(t, "project area", occ.Name)
	assert.Equal(t, model.FactTypeQuantity, occ.Type)
	assert.Equal(t, "120", occ.RawValue)
	assert.Equal(t, "ha", occ.RawUnit)
	assert.Equal(t, 3, occ.Page)
	assert.Equal(t, "c0001", occ.ChunkID)
	assert.Equal(t, "fast", occ.Model)

	assert.Len(t, client.calls, 1, "no escalation on confident result")
	assert.Empty(t, result.DeadLetters)
	assert.Equal(t, int64(100), result.Usage.InputTokens)
}

func TestExtractChunks_EscalatesOnLowConfidence(t *testing.T) {
	lowConfidence := `{"facts":[{"name":"project area","type":"quantity","value":"120","unit":"ha","confidence":0.2}]}`
	client := &fakeClient{responses: map[string]string{
		"fast":   lowConfidence,
		"strong": goodResponse,
	}}
	e := newTestExtractor(t, client)

	result, err := e.ExtractChunks(context.Background(), []model.Chunk{testChunk()})
	require.NoError(t, err)

	require.Len(t, client.calls, 2)
	assert.Equal(t, "fast", client.calls[0].Model)
	assert.Equal(t, "strong", client.calls[1].Model)
	require.Len(t, result.Occurrences, 1)
	assert.Equal(t, "strong", result.Occurrences[0].Model)
	// Usage from both tiers accumulates.
	assert.Equal(t, int64(200), result.Usage.InputTokens)
}

func TestExtractChunks_EscalatesOnMalformedResponse(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"fast":   "I could not parse the document, sorry!",
		"strong": goodResponse,
	}}
	e := newTestExtractor(t, client)

	result, err := e.ExtractChunks(context.Background(), []model.Chunk{testChunk()})
	require.NoError(t, err)

	assert.Len(t, client.calls, 2)
	require.Len(t, result.Occurrences, 1)
	assert.Empty(t, result.DeadLetters)
}

func TestExtractChunks_DeadLetterWhenBothTiersFail(t *testing.T) {
	client := &fakeClient{
		responses: map[string]string{"fast": "not json"},
		errs:      map[string]error{"strong": eris.New("overloaded_error: try later")},
	}
	e := newTestExtractor(t, client)

	result, err := e.ExtractChunks(context.Background(), []model.Chunk{testChunk()})
	require.NoError(t, err, "a dead-lettered chunk must not fail the batch")

	assert.Empty(t, result.Occurrences)
	require.Len(t, result.DeadLetters, 1)
	dl := result.DeadLetters[0]
	assert.Equal(t, "c0001", dl.ChunkID)
	assert.Equal(t, 3, dl.Page)
	assert.Equal(t, "strong", dl.Model)
	assert.NotEmpty(t, dl.Error)
}

func TestExtractChunks_KeepsLowConfidenceFastResultWhenStrongFails(t *testing.T) {
	lowConfidence := `{"facts":[{"name":"project area","type":"quantity","value":"120","confidence":0.1}]}`
	client := &fakeClient{
		responses: map[string]string{"fast": lowConfidence},
		errs:      map[string]error{"strong": eris.New("timeout")},
	}
	e := newTestExtractor(t, client)

	result, err := e.ExtractChunks(context.Background(), []model.Chunk{testChunk()})
	require.NoError(t, err)

	require.Len(t, result.Occurrences, 1)
	assert.Equal(t, "fast", result.Occurrences[0].Model)
	assert.Empty(t, result.DeadLetters)
}

func TestExtractChunks_EmptyFactListDoesNotEscalate(t *testing.T) {
	client := &fakeClient{responses: map[string]string{"fast": `{"facts":[]}`}}
	e := newTestExtractor(t, client)

	result, err := e.ExtractChunks(context.Background(), []model.Chunk{testChunk()})
	require.NoError(t, err)

	assert.Len(t, client.calls, 1)
	assert.Empty(t, result.Occurrences)
	assert.Empty(t, result.DeadLetters)
}

func TestExtractChunks_ContextCancellation(t *testing.T) {
	client := &fakeClient{responses: map[string]string{"fast": goodResponse}}
	e := newTestExtractor(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := e.ExtractChunks(ctx, []model.Chunk{testChunk(), testChunk()})
	require.Error(t, err)
	assert.Empty(t, result.Occurrences)
	assert.Empty(t, client.calls)
}
