package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/domain/repositories"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/locking"
)

// HourScale is the number of decimal places work hours are booked at. It matches the
// NUMERIC(18, 6) columns so every store accumulates the same bucket totals.
const HourScale = 6

// Config bounds the scheduler's search for free capacity
type Config struct {
	// MaxCarryOverDays is how many later dates overflow may move to before giving up
	MaxCarryOverDays int
}

// Request asks for one replenishment line to be booked into capacity.
// Workshop may be empty when the process runs in a single workshop.
type Request struct {
	Replenishment    entities.ReplenishmentLine
	Process          string
	Workshop         string
	SuccessorProcess string
	PlanStartDate    *time.Time
}

// Outcome is what a Schedule call booked.
// Entry is the entry for the request's (source, material); CarryOvers hold overflow booked on later dates.
// When Duplicate is set Entry already existed and CarryOvers only hold the entries booked
// to finish its interrupted carry-over chain.
type Outcome struct {
	Entry      *entities.ScheduleEntry
	CarryOvers []*entities.ScheduleEntry
	Duplicate  bool
}

// Created returns every entry persisted by the call
func (o *Outcome) Created() []*entities.ScheduleEntry {
	if o == nil || o.Entry == nil {
		return nil
	}
	if o.Duplicate {
		return o.CarryOvers
	}
	return append([]*entities.ScheduleEntry{o.Entry}, o.CarryOvers...)
}

// Scheduler converts replenishment lines into capacity-checked schedule entries.
// Every read-accumulate-write on a bucket runs under that bucket's lock.
type Scheduler struct {
	schedules  repositories.ScheduleRepository
	capacities repositories.CapacityRepository
	intervals  *IntervalTable
	locker     locking.Locker
	config     Config
	logger     *zap.Logger
	now        func() time.Time
}

func NewScheduler(
	schedules repositories.ScheduleRepository,
	capacities repositories.CapacityRepository,
	intervals *IntervalTable,
	locker locking.Locker,
	config Config,
	logger *zap.Logger,
) *Scheduler {
	if config.MaxCarryOverDays < 0 {
		config.MaxCarryOverDays = 0
	}
	return &Scheduler{
		schedules:  schedules,
		capacities: capacities,
		intervals:  intervals,
		locker:     locker,
		config:     config,
		logger:     logger.Named("scheduler"),
		now:        time.Now,
	}
}

// WithClock replaces the clock that supplies the default schedule date
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Capacity returns the capacity configuration of a process in a workshop.
// With no workshop the process must run in exactly one workshop; several candidates fail
// with apperrors.ErrInvalidInput. A missing configuration fails with apperrors.ErrCapacityNotConfigured.
func (s *Scheduler) Capacity(ctx context.Context, workshop, process string) (*entities.ProcessCapacity, error) {
	if workshop != "" {
		capacity, err := s.capacities.GetCapacity(ctx, workshop, process)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("process %q in workshop %q: %w", process, workshop, apperrors.ErrCapacityNotConfigured)
			}
			return nil, fmt.Errorf("failed to load capacity for %s/%s: %w", workshop, process, err)
		}
		return capacity, nil
	}

	capacities, err := s.capacities.ListCapacities(ctx, process)
	if err != nil {
		return nil, fmt.Errorf("failed to load capacity for %q: %w", process, err)
	}
	switch len(capacities) {
	case 0:
		return nil, fmt.Errorf("process %q: %w", process, apperrors.ErrCapacityNotConfigured)
	case 1:
		return capacities[0], nil
	default:
		workshops := make([]string, len(capacities))
		for i, c := range capacities {
			workshops[i] = c.Workshop
		}
		return nil, fmt.Errorf("process %q runs in workshops %s and needs a routed workshop: %w",
			process, strings.Join(workshops, ", "), apperrors.ErrInvalidInput)
	}
}

// BucketHours returns the live sum of hours booked into a bucket
func (s *Scheduler) BucketHours(ctx context.Context, key entities.BucketKey) (decimal.Decimal, error) {
	return s.schedules.BucketHours(ctx, key)
}

// BucketState derives the state of a bucket from its live hours and the process capacity
func (s *Scheduler) BucketState(ctx context.Context, key entities.BucketKey) (entities.BucketState, error) {
	capacity, err := s.Capacity(ctx, key.Workshop, key.Process)
	if err != nil {
		return entities.BucketOpen, err
	}
	booked, err := s.schedules.BucketHours(ctx, key)
	if err != nil {
		return entities.BucketOpen, err
	}
	return entities.StateOf(booked, capacity.DailyAvailableHours), nil
}

// Schedule books the replenishment line into its process bucket.
//
// If an entry already exists for (source, material) it is returned with Duplicate set, and a
// carry-over chain it left unfinished is followed and completed. A non-positive standard
// work quota persists an Unschedulable entry with zero hours and returns an error wrapping
// apperrors.ErrDivisionByZero. Hours that do not fit the bucket
// are carried to the next date as new entries sourced from the previous entry's plan number;
// running out of dates returns the booked outcome with apperrors.ErrCapacityExhausted.
func (s *Scheduler) Schedule(ctx context.Context, req Request) (*Outcome, error) {
	line := req.Replenishment

	capacity, err := s.Capacity(ctx, req.Workshop, req.Process)
	if err != nil {
		return nil, err
	}

	completionDate, err := s.completionDate(ctx, line.NeedByDate, req.Process, req.SuccessorProcess)
	if err != nil {
		return nil, err
	}

	scheduleDate := s.now()
	if req.PlanStartDate != nil {
		scheduleDate = *req.PlanStartDate
	}
	scheduleDate = entities.DateOf(scheduleDate)

	base := entities.ScheduleEntry{
		MaterialCode:      line.MaterialCode,
		ProcessName:       req.Process,
		Workshop:          capacity.Workshop,
		StandardWorkQuota: capacity.StandardWorkQuota,
		CompletionDate:    completionDate,
		Level:             line.Level,
	}

	if !capacity.StandardWorkQuota.IsPositive() {
		return s.scheduleUnschedulable(ctx, base, line, scheduleDate)
	}

	outcome := &Outcome{}
	sourceNo := line.SourceDocNo
	remaining := line.ShortfallQty
	date := scheduleDate

	for {
		if daysBetween(scheduleDate, date) > s.config.MaxCarryOverDays {
			s.logger.Warn("capacity exhausted within carry-over horizon",
				zap.String("source_doc", line.SourceDocNo),
				zap.String("material", string(line.MaterialCode)),
				zap.String("process", req.Process),
				zap.String("unscheduled_qty", remaining.String()),
				zap.Int("max_carry_over_days", s.config.MaxCarryOverDays))
			return outcome, fmt.Errorf("%s: %s units of %s left unscheduled after %d days: %w",
				req.Process, remaining, line.MaterialCode, s.config.MaxCarryOverDays, apperrors.ErrCapacityExhausted)
		}

		step, err := s.book(ctx, base, capacity, sourceNo, remaining, date, outcome.Entry == nil)
		if err != nil {
			return outcome, err
		}

		switch {
		case step.duplicate:
			if outcome.Entry == nil {
				outcome.Entry = step.entry
				outcome.Duplicate = true
			}
			tail, err := s.chainTail(ctx, step.entry)
			if err != nil {
				return outcome, err
			}
			if tail.Status != entities.Scheduled {
				return outcome, nil
			}
			if tail.UnscheduledQty.IsPositive() {
				s.logger.Info("resuming carry-over chain",
					zap.String("plan_no", tail.PlanNo),
					zap.String("material", string(tail.MaterialCode)),
					zap.String("unscheduled_qty", tail.UnscheduledQty.String()))
			}
			sourceNo = tail.PlanNo
			remaining = tail.UnscheduledQty
			date = tail.ScheduleDate
		case step.entry != nil:
			if outcome.Entry == nil {
				outcome.Entry = step.entry
			} else {
				outcome.CarryOvers = append(outcome.CarryOvers, step.entry)
			}
			sourceNo = step.entry.PlanNo
			remaining = step.entry.UnscheduledQty
		}

		if !remaining.IsPositive() {
			return outcome, nil
		}
		date = date.AddDate(0, 0, 1)
	}
}

// chainTail follows the carry-over entries sourced from entry's plan number and returns
// the last one stored. Only carry-overs share their source entry's material.
func (s *Scheduler) chainTail(ctx context.Context, entry *entities.ScheduleEntry) (*entities.ScheduleEntry, error) {
	tail := entry
	for tail.UnscheduledQty.IsPositive() {
		next, err := s.schedules.FindEntry(ctx, tail.PlanNo, tail.MaterialCode)
		if errors.Is(err, apperrors.ErrNotFound) {
			return tail, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to follow carry-over chain from %s: %w", tail.PlanNo, err)
		}
		tail = next
	}
	return tail, nil
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

type bookStep struct {
	entry     *entities.ScheduleEntry
	duplicate bool
}

// book performs one locked read-accumulate-write on the bucket for date.
// The first booking always persists an entry, even into a full bucket, so the
// (source, material) pair is claimed; later steps skip full buckets.
func (s *Scheduler) book(
	ctx context.Context,
	base entities.ScheduleEntry,
	capacity *entities.ProcessCapacity,
	sourceNo string,
	qty decimal.Decimal,
	date time.Time,
	first bool,
) (bookStep, error) {
	key := entities.NewBucketKey(capacity.Workshop, base.ProcessName, date)

	unlock, err := s.locker.Lock(ctx, "bucket:"+key.String())
	if err != nil {
		return bookStep{}, fmt.Errorf("failed to lock bucket %s: %w", key, err)
	}
	defer unlock()

	existing, err := s.schedules.FindEntry(ctx, sourceNo, base.MaterialCode)
	if err == nil {
		return bookStep{entry: existing, duplicate: true}, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return bookStep{}, fmt.Errorf("failed to check existing entry: %w", err)
	}

	booked, err := s.schedules.BucketHours(ctx, key)
	if err != nil {
		return bookStep{}, fmt.Errorf("failed to read bucket %s: %w", key, err)
	}

	required := qty.DivRound(capacity.StandardWorkQuota, HourScale)
	hours := required
	if !capacity.Unconstrained() {
		free := capacity.DailyAvailableHours.Sub(booked)
		if !free.IsPositive() {
			free = decimal.Zero
		}
		if free.LessThan(hours) {
			hours = free
		}
	}

	if hours.IsZero() && !first {
		s.logger.Debug("bucket full, moving on",
			zap.String("bucket", key.String()),
			zap.String("material", string(base.MaterialCode)))
		return bookStep{}, nil
	}

	plannedQty := qty
	if hours.LessThan(required) {
		plannedQty = decimal.Min(qty, hours.Mul(capacity.StandardWorkQuota).Round(HourScale))
	}

	planNo, err := s.schedules.NextPlanNo(ctx)
	if err != nil {
		return bookStep{}, fmt.Errorf("failed to reserve plan number: %w", err)
	}

	entry := base
	entry.PlanNo = planNo
	entry.SourceNo = sourceNo
	entry.ScheduleDate = key.Date
	entry.PlannedQty = plannedQty
	entry.RequiredWorkHours = hours
	entry.DailyScheduledHours = booked.Add(hours)
	entry.UnscheduledQty = qty.Sub(plannedQty)
	entry.Status = entities.Scheduled
	entry.CreatedAt = s.now()

	if err := s.schedules.CreateEntry(ctx, &entry); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEntry) {
			winner, findErr := s.schedules.FindEntry(ctx, sourceNo, base.MaterialCode)
			if findErr != nil {
				return bookStep{}, fmt.Errorf("failed to reload duplicate entry: %w", findErr)
			}
			return bookStep{entry: winner, duplicate: true}, nil
		}
		return bookStep{}, fmt.Errorf("failed to persist schedule entry: %w", err)
	}

	s.logger.Debug("booked schedule entry",
		zap.String("plan_no", entry.PlanNo),
		zap.String("source_doc", entry.SourceNo),
		zap.String("material", string(entry.MaterialCode)),
		zap.String("bucket", key.String()),
		zap.String("hours", hours.String()),
		zap.String("bucket_hours", entry.DailyScheduledHours.String()))

	return bookStep{entry: &entry}, nil
}

func (s *Scheduler) scheduleUnschedulable(
	ctx context.Context,
	base entities.ScheduleEntry,
	line entities.ReplenishmentLine,
	scheduleDate time.Time,
) (*Outcome, error) {
	key := entities.NewBucketKey(base.Workshop, base.ProcessName, scheduleDate)

	unlock, err := s.locker.Lock(ctx, "bucket:"+key.String())
	if err != nil {
		return nil, fmt.Errorf("failed to lock bucket %s: %w", key, err)
	}
	defer unlock()

	existing, err := s.schedules.FindEntry(ctx, line.SourceDocNo, line.MaterialCode)
	if err == nil {
		return &Outcome{Entry: existing, Duplicate: true}, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing entry: %w", err)
	}

	booked, err := s.schedules.BucketHours(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket %s: %w", key, err)
	}

	planNo, err := s.schedules.NextPlanNo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve plan number: %w", err)
	}

	entry := base
	entry.PlanNo = planNo
	entry.SourceNo = line.SourceDocNo
	entry.ScheduleDate = key.Date
	entry.PlannedQty = decimal.Zero
	entry.RequiredWorkHours = decimal.Zero
	entry.DailyScheduledHours = booked
	entry.UnscheduledQty = line.ShortfallQty
	entry.Status = entities.Unschedulable
	entry.CreatedAt = s.now()

	if err := s.schedules.CreateEntry(ctx, &entry); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEntry) {
			winner, findErr := s.schedules.FindEntry(ctx, line.SourceDocNo, line.MaterialCode)
			if findErr != nil {
				return nil, fmt.Errorf("failed to reload duplicate entry: %w", findErr)
			}
			return &Outcome{Entry: winner, Duplicate: true}, nil
		}
		return nil, fmt.Errorf("failed to persist schedule entry: %w", err)
	}

	return &Outcome{Entry: &entry}, fmt.Errorf("process %s has standard work quota %s: %w",
		base.ProcessName, base.StandardWorkQuota, apperrors.ErrDivisionByZero)
}

// completionDate subtracts the process interval from the need-by date; with no rule the
// output is due on the need-by date itself
func (s *Scheduler) completionDate(ctx context.Context, needBy time.Time, process, successor string) (time.Time, error) {
	interval, found, err := s.intervals.Lookup(ctx, process, successor)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return needBy, nil
	}
	return needBy.Add(-interval), nil
}
