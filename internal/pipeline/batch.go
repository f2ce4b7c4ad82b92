package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atlas-esg/esia-review/internal/model"
)

// BatchOutcome records the result of one document in a batch run.
type BatchOutcome struct {
	Document model.DocumentRef `json:"document"`
	Result   *model.JobResult  `json:"result,omitempty"`
	Err      string            `json:"error,omitempty"`
}

// RunBatch processes documents concurrently, bounded by maxConcurrent.
// A failed document does not stop the rest of the batch; outcomes are
// returned in input order.
func (p *Pipeline) RunBatch(ctx context.Context, docs []model.DocumentRef, maxConcurrent int) []BatchOutcome {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	outcomes := make([]BatchOutcome, len(docs))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, doc := range docs {
		g.Go(func() error {
			result, err := p.Run(gCtx, doc)

			outcome := BatchOutcome{Document: doc, Result: result}
			if err != nil {
				outcome.Err = err.Error()
				zap.L().Error("batch: document failed",
					zap.String("document", doc.Path),
					zap.Error(err),
				)
			}

			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()

			// Cancellation is the only error that should stop the batch.
			return gCtx.Err()
		})
	}

	// Errors are already captured per document.
	_ = g.Wait()

	return outcomes
}
