// Package pipeline orchestrates the analysis stages for a document:
// convert, extract, consolidate, report.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/consolidate"
	"github.com/atlas-esg/esia-review/internal/convert"
	"github.com/atlas-esg/esia-review/internal/extract"
	"github.com/atlas-esg/esia-review/internal/model"
	"github.com/atlas-esg/esia-review/internal/report"
	"github.com/atlas-esg/esia-review/internal/store"
)

// Pipeline runs the full analysis for a single document.
type Pipeline struct {
	cfg          *config.Config
	store        store.Store
	converter    convert.Converter
	chunker      *convert.Chunker
	extractor    *extract.Extractor
	consolidator *consolidate.Consolidator
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	st store.Store,
	converter convert.Converter,
	extractor *extract.Extractor,
	consolidator *consolidate.Consolidator,
) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		store:        st,
		converter:    converter,
		chunker:      convert.NewChunker(cfg.Chunk),
		extractor:    extractor,
		consolidator: consolidator,
	}
}

// Run executes all stages for one document and records the job in the store.
func (p *Pipeline) Run(ctx context.Context, doc model.DocumentRef) (*model.JobResult, error) {
	log := zap.L().With(zap.String("document", doc.Path))
	log.Info("pipeline: starting analysis")

	result := &model.JobResult{}

	job, err := p.store.CreateJob(ctx, doc)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create job")
	}

	setStatus := func(status model.JobStatus) {
		if statusErr := p.store.UpdateJobStatus(ctx, job.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	// Stage tracking helper.
	trackStage := func(name string, fn func() (*model.StageResult, error)) *model.StageResult {
		start := time.Now()
		stageResult, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if stageResult == nil {
			stageResult = &model.StageResult{Name: name}
		}
		stageResult.Name = name
		stageResult.Duration = duration

		if fnErr != nil {
			stageResult.Status = model.StageStatusFailed
			stageResult.Error = fnErr.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		} else {
			stageResult.Status = model.StageStatusComplete
			log.Info("pipeline: stage complete",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
			)
		}

		result.Stages = append(result.Stages, *stageResult)
		result.TotalUsage.Add(stageResult.TokenUsage)
		return stageResult
	}

	fail := func(stageErr error) (*model.JobResult, error) {
		// Flush whatever completed so the partial run can be inspected.
		if updateErr := p.store.UpdateJobResult(ctx, job.ID, model.JobStatusFailed, result); updateErr != nil {
			log.Warn("pipeline: failed to record failure", zap.Error(updateErr))
		}
		return result, stageErr
	}

	outDir := p.cfg.Report.OutDir
	stem := doc.Stem()
	artifact := func(suffix string) string {
		path := filepath.Join(outDir, stem+suffix)
		result.Artifacts = append(result.Artifacts, path)
		return path
	}

	// Stage 1: convert and chunk.
	setStatus(model.JobStatusConverting)
	var chunks []model.Chunk
	var meta *model.DocumentMeta
	sr := trackStage("convert", func() (*model.StageResult, error) {
		document, convErr := p.converter.Convert(ctx, doc.Path)
		if convErr != nil {
			return nil, convErr
		}
		if doc.Title != "" {
			document.Title = doc.Title
		}
		chunks = p.chunker.Chunk(document)
		if len(chunks) == 0 {
			return nil, eris.Errorf("no text extracted from %s", doc.Path)
		}

		if writeErr := convert.WriteChunks(artifact(".chunks.jsonl"), chunks); writeErr != nil {
			return nil, writeErr
		}
		if writeErr := convert.WriteMeta(artifact("_meta.json"), document, chunks, p.cfg.Chunk); writeErr != nil {
			return nil, writeErr
		}

		meta = &model.DocumentMeta{
			Path:          document.Path,
			Title:         document.Title,
			Format:        document.Format,
			Converter:     document.Converter,
			Pages:         document.PageCount(),
			Chunks:        len(chunks),
			Checksum:      document.Checksum,
			MaxChunkToken: p.cfg.Chunk.MaxTokens,
			OverlapTokens: p.cfg.Chunk.OverlapTokens,
			ConvertedAt:   document.ConvertedAt,
		}
		result.Pages = meta.Pages
		result.Chunks = meta.Chunks
		return &model.StageResult{
			Metadata: map[string]any{"pages": meta.Pages, "chunks": meta.Chunks},
		}, nil
	})
	if sr.Status == model.StageStatusFailed {
		return fail(eris.Errorf("pipeline: convert failed: %s", sr.Error))
	}

	// Stage 2: extract facts from each chunk.
	setStatus(model.JobStatusExtracting)
	var occurrences []model.FactOccurrence
	sr = trackStage("extract", func() (*model.StageResult, error) {
		extracted, extErr := p.extractor.ExtractChunks(ctx, chunks)
		if extErr != nil {
			return nil, extErr
		}
		occurrences = extracted.Occurrences

		if writeErr := extract.WriteFacts(artifact("_facts.json"), occurrences); writeErr != nil {
			return nil, writeErr
		}
		if len(extracted.DeadLetters) > 0 && p.cfg.Extract.DeadLetter {
			if writeErr := extract.WriteDeadLetters(artifact("_dead_letters.jsonl"), extracted.DeadLetters); writeErr != nil {
				return nil, writeErr
			}
		}
		return &model.StageResult{
			TokenUsage: extracted.Usage,
			Metadata: map[string]any{
				"occurrences":  len(occurrences),
				"dead_letters": len(extracted.DeadLetters),
			},
		}, nil
	})
	if sr.Status == model.StageStatusFailed {
		return fail(eris.Errorf("pipeline: extract failed: %s", sr.Error))
	}

	// Stage 3: consolidate occurrences into facts.
	setStatus(model.JobStatusConsolidating)
	var consolidated model.ConsolidationResult
	sr = trackStage("consolidate", func() (*model.StageResult, error) {
		consolidated = p.consolidator.Merge(occurrences)
		if writeErr := consolidate.WriteResult(artifact("_consolidated.json"), consolidated); writeErr != nil {
			return nil, writeErr
		}
		result.Facts = len(consolidated.Facts)
		result.Conflicts = consolidated.Conflicts
		result.Skipped = consolidated.Skipped
		return &model.StageResult{
			Metadata: map[string]any{
				"facts":     len(consolidated.Facts),
				"conflicts": consolidated.Conflicts,
				"skipped":   consolidated.Skipped,
			},
		}, nil
	})
	if sr.Status == model.StageStatusFailed {
		return fail(eris.Errorf("pipeline: consolidate failed: %s", sr.Error))
	}

	// Stage 4: review artifacts.
	setStatus(model.JobStatusReporting)
	sr = trackStage("report", func() (*model.StageResult, error) {
		for _, format := range p.cfg.Report.Formats {
			switch format {
			case "xlsx":
				if writeErr := report.WriteRegister(artifact("_register.xlsx"), meta, consolidated); writeErr != nil {
					return nil, writeErr
				}
			case "html":
				if writeErr := report.WriteDashboard(artifact("_dashboard.html"), meta, consolidated); writeErr != nil {
					return nil, writeErr
				}
			case "md":
				if writeErr := report.WriteVerification(artifact("_verification.md"), meta, consolidated, result.Stages, result.TotalUsage); writeErr != nil {
					return nil, writeErr
				}
			default:
				return nil, eris.Errorf("unknown report format %q", format)
			}
		}
		return &model.StageResult{}, nil
	})
	if sr.Status == model.StageStatusFailed {
		return fail(eris.Errorf("pipeline: report failed: %s", sr.Error))
	}

	if err := p.store.SaveFacts(ctx, job.ID, consolidated.Facts); err != nil {
		log.Warn("pipeline: failed to persist facts", zap.Error(err))
	}
	if err := p.store.UpdateJobResult(ctx, job.ID, model.JobStatusComplete, result); err != nil {
		return result, eris.Wrap(err, "pipeline: record result")
	}

	log.Info("pipeline: analysis complete",
		zap.String("job_id", job.ID),
		zap.Int("facts", result.Facts),
		zap.Int("conflicts", result.Conflicts),
		zap.Int64("input_tokens", result.TotalUsage.InputTokens),
		zap.Int64("output_tokens", result.TotalUsage.OutputTokens),
		zap.String("cost", fmt.Sprintf("$%.4f", result.TotalUsage.CostUSD)),
	)
	return result, nil
}
