package dto

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

// SkipReason explains why a demand line produced no new schedule entry
type SkipReason string

const (
	SkipDuplicate     SkipReason = "duplicate"
	SkipZeroShortfall SkipReason = "zero_shortfall"
)

// SkippedLine records a demand line that terminated without creating an entry
type SkippedLine struct {
	SourceDocNo  string                `json:"source_doc_no"`
	MaterialCode entities.MaterialCode `json:"material_code"`
	Level        int                   `json:"level"`
	Reason       SkipReason            `json:"reason"`
	PlanNo       string                `json:"plan_no,omitempty"`
}

// BranchError records a failure that invalidated one branch of the BOM tree
type BranchError struct {
	SourceDocNo  string                `json:"source_doc_no"`
	MaterialCode entities.MaterialCode `json:"material_code"`
	Level        int                   `json:"level"`
	Reason       string                `json:"reason"`
	Err          error                 `json:"-"`
}

func (e BranchError) Error() string {
	return fmt.Sprintf("%s/%s (level %d): %s", e.SourceDocNo, e.MaterialCode, e.Level, e.Reason)
}

func (e BranchError) Unwrap() error {
	return e.Err
}

// PropagationResult is the outcome of one propagation run.
// Appends are safe for concurrent use by sibling branches.
type PropagationResult struct {
	RunID          uuid.UUID                     `json:"run_id"`
	TriggerNo      string                        `json:"trigger_no"`
	MaterialCode   entities.MaterialCode         `json:"material_code"`
	Created        []*entities.ScheduleEntry     `json:"created"`
	Replenishments []*entities.ReplenishmentLine `json:"replenishments"`
	Skipped        []SkippedLine                 `json:"skipped"`
	Errors         []BranchError                 `json:"errors"`
	StartedAt      time.Time                     `json:"started_at"`
	FinishedAt     time.Time                     `json:"finished_at"`

	mu sync.Mutex
}

// NewPropagationResult starts an empty result for a trigger
func NewPropagationResult(trigger entities.ProductionTrigger, startedAt time.Time) *PropagationResult {
	return &PropagationResult{
		RunID:          uuid.New(),
		TriggerNo:      trigger.SourceDocNo,
		MaterialCode:   trigger.MaterialCode,
		Created:        make([]*entities.ScheduleEntry, 0),
		Replenishments: make([]*entities.ReplenishmentLine, 0),
		Skipped:        make([]SkippedLine, 0),
		Errors:         make([]BranchError, 0),
		StartedAt:      startedAt,
	}
}

func (r *PropagationResult) AddCreated(entries ...*entities.ScheduleEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Created = append(r.Created, entries...)
}

func (r *PropagationResult) AddReplenishment(line *entities.ReplenishmentLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Replenishments = append(r.Replenishments, line)
}

func (r *PropagationResult) AddSkipped(skipped SkippedLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, skipped)
}

func (r *PropagationResult) AddError(branchErr BranchError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, branchErr)
}

// CreatedCount returns the number of schedule entries created by the run
func (r *PropagationResult) CreatedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Created)
}

// SkippedCount returns the number of skipped demand lines
func (r *PropagationResult) SkippedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Skipped)
}

// ErrorCount returns the number of failed branches
func (r *PropagationResult) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors)
}

// Duration is the wall time of the run
func (r *PropagationResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Err joins all branch errors so callers can inspect them with errors.Is and errors.As.
// It returns nil when every branch completed.
func (r *PropagationResult) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, branchErr := range r.Errors {
		errs = append(errs, branchErr)
	}
	return errors.Join(errs...)
}

// TriggerFailure records a trigger whose run aborted
type TriggerFailure struct {
	SourceDocNo string `json:"source_doc_no"`
	Reason      string `json:"reason"`
	Err         error  `json:"-"`
}

// BatchResult is the outcome of propagating several independent triggers
type BatchResult struct {
	Results  []*PropagationResult `json:"results"`
	Failures []TriggerFailure     `json:"failures"`
}

// TotalCreated sums created entries over all runs
func (b *BatchResult) TotalCreated() int {
	total := 0
	for _, result := range b.Results {
		if result != nil {
			total += result.CreatedCount()
		}
	}
	return total
}

// Err joins the fatal errors of failed triggers
func (b *BatchResult) Err() error {
	if len(b.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(b.Failures))
	for _, failure := range b.Failures {
		errs = append(errs, fmt.Errorf("trigger %s: %w", failure.SourceDocNo, failure.Err))
	}
	return errors.Join(errs...)
}
