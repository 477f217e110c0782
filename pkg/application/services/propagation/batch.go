package propagation

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/cascade-mrp/pkg/application/dto"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

// PropagateBatch runs independent triggers concurrently. A trigger whose run aborts is
// recorded as a failure and does not stop the others. Results keep the trigger order.
func (o *Orchestrator) PropagateBatch(ctx context.Context, triggers []entities.ProductionTrigger) *dto.BatchResult {
	batch := &dto.BatchResult{
		Results:  make([]*dto.PropagationResult, len(triggers)),
		Failures: make([]dto.TriggerFailure, 0),
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(o.config.MaxParallelBranches)

	for i, trigger := range triggers {
		i, trigger := i, trigger
		g.Go(func() error {
			result, err := o.Propagate(ctx, trigger)
			batch.Results[i] = result
			if err != nil {
				mu.Lock()
				batch.Failures = append(batch.Failures, dto.TriggerFailure{
					SourceDocNo: trigger.SourceDocNo,
					Reason:      err.Error(),
					Err:         err,
				})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	o.logger.Info("batch finished",
		zap.Int("triggers", len(triggers)),
		zap.Int("failed", len(batch.Failures)),
		zap.Int("created", batch.TotalCreated()))

	return batch
}
