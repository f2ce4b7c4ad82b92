// Package extract runs LLM fact extraction over document chunks.
package extract

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/archetype"
	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/llm"
	"github.com/atlas-esg/esia-review/internal/model"
)

// Extractor extracts fact occurrences from chunks using tiered models.
type Extractor struct {
	client   llm.Client
	registry *archetype.Registry
	cfg      config.ExtractConfig
	llmCfg   config.LLMConfig
	system   string
}

// DeadLetter records a chunk that failed extraction on every tier, for
// later reprocessing.
type DeadLetter struct {
	ChunkID  string    `json:"chunk_id"`
	Page     int       `json:"page"`
	Error    string    `json:"error"`
	Model    string    `json:"model"`
	FailedAt time.Time `json:"failed_at"`
}

// Result is the outcome of extracting one chunk set.
type Result struct {
	Occurrences []model.FactOccurrence
	Usage       model.TokenUsage
	DeadLetters []DeadLetter
}

// New creates an Extractor.
func New(client llm.Client, registry *archetype.Registry, cfg config.ExtractConfig, llmCfg config.LLMConfig) *Extractor {
	return &Extractor{
		client:   client,
		registry: registry,
		cfg:      cfg,
		llmCfg:   llmCfg,
		system:   BuildSystemPrompt(registry),
	}
}

// ExtractChunks runs extraction over all chunks sequentially. A chunk whose
// response cannot be parsed on either tier goes to the dead letter list;
// the batch itself never aborts on a single bad chunk. Context cancellation
// stops the run with the occurrences gathered so far.
func (e *Extractor) ExtractChunks(ctx context.Context, chunks []model.Chunk) (*Result, error) {
	result := &Result{}

	for _, chunk := range chunks {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		occs, usage, err := e.extractChunk(ctx, chunk)
		result.Usage.Add(usage)
		if err != nil {
			zap.L().Warn("chunk extraction failed on all tiers",
				zap.String("chunk", chunk.ID),
				zap.Int("page", chunk.PageStart),
				zap.Error(err),
			)
			result.DeadLetters = append(result.DeadLetters, DeadLetter{
				ChunkID:  chunk.ID,
				Page:     chunk.PageStart,
				Error:    err.Error(),
				Model:    e.llmCfg.StrongModel,
				FailedAt: time.Now().UTC(),
			})
			continue
		}
		result.Occurrences = append(result.Occurrences, occs...)
	}

	zap.L().Info("extraction complete",
		zap.Int("chunks", len(chunks)),
		zap.Int("occurrences", len(result.Occurrences)),
		zap.Int("dead_letters", len(result.DeadLetters)),
		zap.Int64("input_tokens", result.Usage.InputTokens),
		zap.Int64("output_tokens", result.Usage.OutputTokens),
	)

	return result, nil
}

// extractChunk tries the fast model first and escalates to the strong model
// when the response fails to parse or its mean confidence is below the
// escalation threshold.
func (e *Extractor) extractChunk(ctx context.Context, chunk model.Chunk) ([]model.FactOccurrence, model.TokenUsage, error) {
	var usage model.TokenUsage

	occs, u, fastErr := e.callModel(ctx, e.llmCfg.FastModel, chunk)
	usage.Add(u)
	if fastErr == nil && meanConfidence(occs) >= e.cfg.EscalationConfidence {
		return occs, usage, nil
	}

	if fastErr != nil {
		zap.L().Debug("escalating chunk after parse failure",
			zap.String("chunk", chunk.ID),
			zap.Error(fastErr),
		)
	} else {
		zap.L().Debug("escalating low-confidence chunk",
			zap.String("chunk", chunk.ID),
			zap.Float64("mean_confidence", meanConfidence(occs)),
		)
	}

	strongOccs, u2, strongErr := e.callModel(ctx, e.llmCfg.StrongModel, chunk)
	usage.Add(u2)
	if strongErr == nil {
		return strongOccs, usage, nil
	}

	// Keep a parseable low-confidence fast result over nothing.
	if fastErr == nil {
		return occs, usage, nil
	}
	return nil, usage, strongErr
}

func (e *Extractor) callModel(ctx context.Context, modelID string, chunk model.Chunk) ([]model.FactOccurrence, model.TokenUsage, error) {
	resp, err := e.client.Complete(ctx, llm.Request{
		Model:     modelID,
		System:    e.system,
		Prompt:    BuildChunkPrompt(chunk),
		MaxTokens: e.llmCfg.MaxTokens,
	})
	if err != nil {
		return nil, model.TokenUsage{}, err
	}

	parsed, err := parseResponse(resp.Text)
	if err != nil {
		return nil, resp.Usage, err
	}

	occs := make([]model.FactOccurrence, 0, len(parsed.Facts))
	for _, f := range parsed.Facts {
		occs = append(occs, model.FactOccurrence{
			Name:       f.Name,
			Type:       model.FactType(f.Type),
			RawValue:   f.Value,
			RawUnit:    f.Unit,
			Page:       chunk.PageStart,
			ChunkID:    chunk.ID,
			Evidence:   f.Evidence,
			Confidence: f.Confidence,
			Model:      resp.Model,
		})
	}
	return occs, resp.Usage, nil
}

func meanConfidence(occs []model.FactOccurrence) float64 {
	if len(occs) == 0 {
		// An empty fact list is a legitimate answer for boilerplate pages;
		// do not escalate on it.
		return 1.0
	}
	sum := 0.0
	for _, occ := range occs {
		sum += occ.Confidence
	}
	return sum / float64(len(occs))
}
