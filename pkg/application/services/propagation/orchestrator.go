package propagation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/cascade-mrp/pkg/application/dto"
	"github.com/vsinha/cascade-mrp/pkg/application/services/bom"
	"github.com/vsinha/cascade-mrp/pkg/application/services/netting"
	"github.com/vsinha/cascade-mrp/pkg/application/services/scheduling"
	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/domain/repositories"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/events"
)

// Config tunes a propagation run
type Config struct {
	// MaxParallelBranches bounds how many sibling lines of one level run at once
	MaxParallelBranches int
}

// Orchestrator drives a production trigger down the BOM tree. It nets each demand line,
// schedules Make shortfalls and raises replenishments for bought and outsourced materials.
// Children are exploded from every scheduled entry, new or already stored.
type Orchestrator struct {
	netting        *netting.Engine
	resolver       *bom.Resolver
	scheduler      *scheduling.Scheduler
	replenishments repositories.ReplenishmentRepository
	publisher      events.Publisher
	config         Config
	logger         *zap.Logger
	now            func() time.Time
}

func NewOrchestrator(
	nettingEngine *netting.Engine,
	resolver *bom.Resolver,
	scheduler *scheduling.Scheduler,
	replenishments repositories.ReplenishmentRepository,
	publisher events.Publisher,
	config Config,
	logger *zap.Logger,
) *Orchestrator {
	if config.MaxParallelBranches < 1 {
		config.MaxParallelBranches = 1
	}
	if publisher == nil {
		publisher = events.Discard
	}
	return &Orchestrator{
		netting:        nettingEngine,
		resolver:       resolver,
		scheduler:      scheduler,
		replenishments: replenishments,
		publisher:      publisher,
		config:         config,
		logger:         logger.Named("propagation"),
		now:            time.Now,
	}
}

// WithClock replaces the clock used for run timestamps and replenishment lines
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Propagate runs the cascade for one trigger.
//
// Branch failures (unknown materials, unschedulable quotas, cycles, exhausted capacity) are
// recorded in the result and siblings continue. Missing capacity configuration and storage
// failures abort the run; the partial result is returned together with the error.
func (o *Orchestrator) Propagate(ctx context.Context, trigger entities.ProductionTrigger) (*dto.PropagationResult, error) {
	if err := trigger.Validate(); err != nil {
		return nil, fmt.Errorf("trigger %q: %w: %v", trigger.SourceDocNo, apperrors.ErrInvalidInput, err)
	}

	result := dto.NewPropagationResult(trigger, o.now())
	stream := events.StreamForRun(result.RunID.String())
	logger := o.logger.With(
		zap.String("run_id", result.RunID.String()),
		zap.String("trigger", trigger.SourceDocNo))

	logger.Info("propagation started",
		zap.String("material", string(trigger.MaterialCode)),
		zap.String("quantity", trigger.Quantity.String()))

	level := []entities.DemandLine{trigger.RootDemand()}
	for depth := 0; len(level) > 0; depth++ {
		next, err := o.runLevel(ctx, level, result, stream, logger)
		if err != nil {
			result.FinishedAt = o.now()
			logger.Error("propagation aborted",
				zap.Int("level", depth),
				zap.Int("created", result.CreatedCount()),
				zap.Error(err))
			o.publish(ctx, stream, events.PropagationAbortedEvent, events.PropagationAborted{
				TriggerNo: trigger.SourceDocNo,
				Reason:    err.Error(),
			})
			return result, err
		}
		level = next
	}

	result.FinishedAt = o.now()

	logger.Info("propagation finished",
		zap.Int("created", result.CreatedCount()),
		zap.Int("skipped", result.SkippedCount()),
		zap.Int("failed", result.ErrorCount()),
		zap.Duration("duration", result.Duration()))

	o.publish(ctx, stream, events.PropagationCompletedEvent, events.PropagationCompleted{
		TriggerNo:  trigger.SourceDocNo,
		Created:    result.CreatedCount(),
		Skipped:    result.SkippedCount(),
		Failed:     result.ErrorCount(),
		TotalHours: totalHours(result.Created),
	})

	return result, nil
}

// runLevel processes all lines of one BOM level concurrently and returns the next level
func (o *Orchestrator) runLevel(
	ctx context.Context,
	lines []entities.DemandLine,
	result *dto.PropagationResult,
	stream string,
	logger *zap.Logger,
) ([]entities.DemandLine, error) {
	var mu sync.Mutex
	next := make([]entities.DemandLine, 0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.MaxParallelBranches)

	for _, line := range lines {
		line := line
		g.Go(func() error {
			children, err := o.processLine(gctx, line, result, stream, logger)
			if err != nil {
				return err
			}
			mu.Lock()
			next = append(next, children...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(next, func(i, j int) bool {
		if next[i].SourceDocNo != next[j].SourceDocNo {
			return next[i].SourceDocNo < next[j].SourceDocNo
		}
		return next[i].MaterialCode < next[j].MaterialCode
	})
	return next, nil
}

// processLine handles one demand line. It records branch-level outcomes on the result
// and only returns errors that must abort the run.
func (o *Orchestrator) processLine(
	ctx context.Context,
	line entities.DemandLine,
	result *dto.PropagationResult,
	stream string,
	logger *zap.Logger,
) ([]entities.DemandLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if line.InAncestry() {
		chain := line.Chain()
		codes := make([]string, len(chain))
		for i, code := range chain {
			codes[i] = string(code)
		}
		return nil, o.branchError(ctx, line, &apperrors.CyclicBOMError{Chain: codes}, result, stream, logger)
	}

	repl, err := o.netting.Net(ctx, line)
	if err != nil {
		return nil, o.branchError(ctx, line, err, result, stream, logger)
	}

	if repl.IsZero() {
		o.skip(ctx, line, dto.SkipZeroShortfall, "", result, stream)
		return nil, nil
	}

	if line.SourceType != entities.Make {
		return nil, o.raiseReplenishment(ctx, line, repl, result, stream, logger)
	}

	outcome, err := o.scheduler.Schedule(ctx, scheduling.Request{
		Replenishment:    repl,
		Process:          line.OutputProcess,
		Workshop:         line.Workshop,
		SuccessorProcess: line.SuccessorProcess,
		PlanStartDate:    line.PlanStartDate,
	})
	if outcome == nil {
		return nil, o.branchError(ctx, line, err, result, stream, logger)
	}

	// An existing entry is still exploded so a rerun finishes the cascade below it
	if outcome.Duplicate {
		o.skip(ctx, line, dto.SkipDuplicate, outcome.Entry.PlanNo, result, stream)
	}

	created := outcome.Created()
	result.AddCreated(created...)
	for _, entry := range created {
		o.publish(ctx, stream, events.ScheduleEntryCreatedEvent, events.ScheduleEntryCreated{Entry: *entry})
	}

	if err != nil {
		if branchErr := o.branchError(ctx, line, err, result, stream, logger); branchErr != nil {
			return nil, branchErr
		}
	}
	if outcome.Entry == nil || outcome.Entry.Status == entities.Unschedulable {
		return nil, nil
	}

	components, err := o.resolver.ResolveChildren(ctx, line.MaterialCode, repl.ShortfallQty)
	if err != nil {
		return nil, o.branchError(ctx, line, err, result, stream, logger)
	}

	ancestors := line.Chain()
	children := make([]entities.DemandLine, 0, len(components))
	for _, component := range components {
		children = append(children, entities.DemandLine{
			SourceDocNo:      outcome.Entry.PlanNo,
			MaterialCode:     component.ChildCode,
			DemandQty:        component.RequiredQty,
			NeedByDate:       outcome.Entry.CompletionDate,
			Level:            line.Level + 1,
			SourceType:       component.SourceType,
			OutputProcess:    component.OutputProcess,
			Workshop:         component.Workshop,
			SuccessorProcess: line.OutputProcess,
			PlanStartDate:    line.PlanStartDate,
			Ancestors:        ancestors,
		})
	}
	return children, nil
}

func (o *Orchestrator) raiseReplenishment(
	ctx context.Context,
	line entities.DemandLine,
	repl entities.ReplenishmentLine,
	result *dto.PropagationResult,
	stream string,
	logger *zap.Logger,
) error {
	if err := o.replenishments.CreateReplenishment(ctx, &repl); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEntry) {
			o.skip(ctx, line, dto.SkipDuplicate, "", result, stream)
			return nil
		}
		return o.branchError(ctx, line, err, result, stream, logger)
	}

	result.AddReplenishment(&repl)
	o.publish(ctx, stream, events.ReplenishmentRaisedEvent, events.ReplenishmentRaised{Line: repl})
	return nil
}

// branchError records err against the line when it only invalidates this branch.
// Any other error is returned so the run aborts.
func (o *Orchestrator) branchError(
	ctx context.Context,
	line entities.DemandLine,
	err error,
	result *dto.PropagationResult,
	stream string,
	logger *zap.Logger,
) error {
	if err == nil {
		return nil
	}
	if !apperrors.IsBranchRecoverable(err) {
		return fmt.Errorf("%s/%s at level %d: %w", line.SourceDocNo, line.MaterialCode, line.Level, err)
	}

	logger.Warn("branch failed",
		zap.String("source_doc", line.SourceDocNo),
		zap.String("material", string(line.MaterialCode)),
		zap.Int("level", line.Level),
		zap.Error(err))

	result.AddError(dto.BranchError{
		SourceDocNo:  line.SourceDocNo,
		MaterialCode: line.MaterialCode,
		Level:        line.Level,
		Reason:       err.Error(),
		Err:          err,
	})
	o.publish(ctx, stream, events.BranchFailedEvent, events.BranchFailed{
		SourceDocNo:  line.SourceDocNo,
		MaterialCode: line.MaterialCode,
		Level:        line.Level,
		Reason:       err.Error(),
	})
	return nil
}

func (o *Orchestrator) skip(
	ctx context.Context,
	line entities.DemandLine,
	reason dto.SkipReason,
	planNo string,
	result *dto.PropagationResult,
	stream string,
) {
	result.AddSkipped(dto.SkippedLine{
		SourceDocNo:  line.SourceDocNo,
		MaterialCode: line.MaterialCode,
		Level:        line.Level,
		Reason:       reason,
		PlanNo:       planNo,
	})
	o.publish(ctx, stream, events.ScheduleEntrySkippedEvent, events.ScheduleEntrySkipped{
		SourceDocNo:  line.SourceDocNo,
		MaterialCode: line.MaterialCode,
		Reason:       string(reason),
	})
}

// publish never fails the run; subscriber errors are logged by the event store
func (o *Orchestrator) publish(ctx context.Context, stream, eventType string, data interface{}) {
	if err := o.publisher.AppendEvent(ctx, stream, events.NewEvent(eventType, stream, data)); err != nil {
		o.logger.Debug("event subscriber returned error", zap.String("event_type", eventType), zap.Error(err))
	}
}

func totalHours(entries []*entities.ScheduleEntry) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.RequiredWorkHours)
	}
	return total
}
