package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	th "github.com/vsinha/cascade-mrp/pkg/application/services/testhelpers"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/domain/repositories"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/locking"
)

func newScheduler(stores *th.Stores, maxCarryOver int) *Scheduler {
	return NewScheduler(
		stores.Schedules,
		stores.Process,
		NewIntervalTable(stores.Process),
		locking.NewKeyedMutex(),
		Config{MaxCarryOverDays: maxCarryOver},
		zap.NewNop(),
	).WithClock(th.Clock())
}

// droppedWrite fails the n-th CreateEntry call like a lost database connection
type droppedWrite struct {
	repositories.ScheduleRepository
	mu     sync.Mutex
	calls  int
	failOn int
}

func (d *droppedWrite) CreateEntry(ctx context.Context, entry *entities.ScheduleEntry) error {
	d.mu.Lock()
	d.calls++
	call := d.calls
	d.mu.Unlock()
	if call == d.failOn {
		return errors.New("connection reset by peer")
	}
	return d.ScheduleRepository.CreateEntry(ctx, entry)
}

func replenishment(source, material string, qty decimal.Decimal, needBy time.Time) entities.ReplenishmentLine {
	return entities.ReplenishmentLine{
		SourceDocNo:  source,
		MaterialCode: entities.MaterialCode(material),
		ShortfallQty: qty,
		NeedByDate:   needBy,
		SourceType:   entities.Make,
	}
}

func TestSchedule_RequiredHours(t *testing.T) {
	stores := th.NewStores().AddCapacity("WS1", "Assembly", 8, 10)
	scheduler := newScheduler(stores, 30)
	needBy := th.Day.AddDate(0, 0, 10)

	outcome, err := scheduler.Schedule(context.Background(), Request{
		Replenishment: replenishment("PS-1", "F", th.Qty(80), needBy),
		Process:       "Assembly",
	})
	require.NoError(t, err)
	require.False(t, outcome.Duplicate)

	entry := outcome.Entry
	assert.True(t, entry.RequiredWorkHours.Equal(decimal.NewFromInt(8)), "got %s", entry.RequiredWorkHours)
	assert.True(t, entry.DailyScheduledHours.Equal(decimal.NewFromInt(8)))
	assert.True(t, entry.PlannedQty.Equal(th.Qty(80)))
	assert.True(t, entry.UnscheduledQty.IsZero())
	assert.Equal(t, "WS1", entry.Workshop)
	assert.Equal(t, entities.Scheduled, entry.Status)
	assert.Empty(t, outcome.CarryOvers)

	// No plan start date: the entry lands on today's date
	assert.Equal(t, th.Day, entry.ScheduleDate)
	// No interval rule: completion falls on the need-by date
	assert.Equal(t, needBy, entry.CompletionDate)
}

func TestSchedule_CompletionDateUsesInterval(t *testing.T) {
	needBy := th.Day.AddDate(0, 0, 10)

	tests := []struct {
		name      string
		successor string
		expected  time.Time
	}{
		{"rule in days", "Assembly", needBy.AddDate(0, 0, -2)},
		{"rule in hours", "Painting", needBy.Add(-6 * time.Hour)},
		{"no rule", "Packing", needBy},
		{"no successor", "", needBy},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := th.NewStores().
				AddCapacity("WS2", "Cutting", 0, 5).
				AddInterval("Cutting", "Assembly", 2, entities.IntervalDays).
				AddInterval("Cutting", "Painting", 6, entities.IntervalHours)

			outcome, err := newScheduler(stores, 0).Schedule(context.Background(), Request{
				Replenishment:    replenishment(fmt.Sprintf("PP%d", i), "B", th.Qty(10), needBy),
				Process:          "Cutting",
				SuccessorProcess: tt.successor,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, outcome.Entry.CompletionDate)
		})
	}
}

func TestSchedule_PlanStartDateOverridesToday(t *testing.T) {
	stores := th.NewStores().AddCapacity("WS1", "Assembly", 8, 10)
	start := time.Date(2025, 7, 14, 15, 30, 0, 0, time.UTC)

	outcome, err := newScheduler(stores, 0).Schedule(context.Background(), Request{
		Replenishment: replenishment("PS-1", "F", th.Qty(10), start.AddDate(0, 0, 5)),
		Process:       "Assembly",
		PlanStartDate: &start,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), outcome.Entry.ScheduleDate)
}

func TestSchedule_DuplicateReturnsExisting(t *testing.T) {
	stores := th.NewStores().AddCapacity("WS1", "Assembly", 8, 10)
	scheduler := newScheduler(stores, 0)
	req := Request{Replenishment: replenishment("PS-1", "F", th.Qty(40), th.Day), Process: "Assembly"}

	first, err := scheduler.Schedule(context.Background(), req)
	require.NoError(t, err)

	second, err := scheduler.Schedule(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Entry.PlanNo, second.Entry.PlanNo)
	assert.Empty(t, second.Created())

	hours, err := scheduler.BucketHours(context.Background(), first.Entry.Bucket())
	require.NoError(t, err)
	assert.True(t, hours.Equal(decimal.NewFromInt(4)), "duplicate must not double hours, got %s", hours)
}

func TestSchedule_ZeroQuotaIsUnschedulable(t *testing.T) {
	for _, quota := range []int64{0, -5} {
		t.Run(fmt.Sprintf("quota %d", quota), func(t *testing.T) {
			stores := th.NewStores().AddCapacity("WS1", "Assembly", 8, quota)

			outcome, err := newScheduler(stores, 0).Schedule(context.Background(), Request{
				Replenishment: replenishment("PS-1", "F", th.Qty(40), th.Day),
				Process:       "Assembly",
			})
			require.ErrorIs(t, err, apperrors.ErrDivisionByZero)
			require.NotNil(t, outcome)

			entry := outcome.Entry
			assert.Equal(t, entities.Unschedulable, entry.Status)
			assert.True(t, entry.RequiredWorkHours.IsZero())
			assert.True(t, entry.UnscheduledQty.Equal(th.Qty(40)))

			stored, err := stores.Schedules.FindEntry(context.Background(), "PS-1", "F")
			require.NoError(t, err)
			assert.Equal(t, entities.Unschedulable, stored.Status)
		})
	}
}

func TestSchedule_MissingCapacityIsFatal(t *testing.T) {
	stores := th.NewStores()

	_, err := newScheduler(stores, 0).Schedule(context.Background(), Request{
		Replenishment: replenishment("PS-1", "F", th.Qty(40), th.Day),
		Process:       "Welding",
	})
	assert.ErrorIs(t, err, apperrors.ErrCapacityNotConfigured)
	assert.False(t, apperrors.IsBranchRecoverable(err))
}

func TestSchedule_OverflowCarriesToNextDate(t *testing.T) {
	stores := th.NewStores().AddCapacity("WS1", "Assembly", 8, 10)
	scheduler := newScheduler(stores, 30)
	ctx := context.Background()

	first, err := scheduler.Schedule(ctx, Request{Replenishment: replenishment("PP1", "A", th.Qty(60), th.Day.AddDate(0, 0, 9)), Process: "Assembly"})
	require.NoError(t, err)
	assert.True(t, first.Entry.RequiredWorkHours.Equal(decimal.NewFromInt(6)))

	second, err := scheduler.Schedule(ctx, Request{Replenishment: replenishment("PP1", "B", th.Qty(50), th.Day.AddDate(0, 0, 9)), Process: "Assembly"})
	require.NoError(t, err)

	// 2 hours fit today, 3 hours carry to tomorrow
	assert.True(t, second.Entry.RequiredWorkHours.Equal(decimal.NewFromInt(2)), "got %s", second.Entry.RequiredWorkHours)
	assert.True(t, second.Entry.UnscheduledQty.Equal(th.Qty(30)))
	assert.True(t, second.Entry.DailyScheduledHours.Equal(decimal.NewFromInt(8)))

	require.Len(t, second.CarryOvers, 1)
	carry := second.CarryOvers[0]
	assert.Equal(t, second.Entry.PlanNo, carry.SourceNo)
	assert.Equal(t, entities.MaterialCode("B"), carry.MaterialCode)
	assert.Equal(t, th.Day.AddDate(0, 0, 1), carry.ScheduleDate)
	assert.True(t, carry.RequiredWorkHours.Equal(decimal.NewFromInt(3)))
	assert.True(t, carry.PlannedQty.Equal(th.Qty(30)))
	assert.True(t, carry.UnscheduledQty.IsZero())

	state, err := scheduler.BucketState(ctx, entities.NewBucketKey("WS1", "Assembly", th.Day))
	require.NoError(t, err)
	assert.Equal(t, entities.BucketFull, state)

	next, err := scheduler.BucketState(ctx, entities.NewBucketKey("WS1", "Assembly", th.Day.AddDate(0, 0, 1)))
	require.NoError(t, err)
	assert.Equal(t, entities.BucketPartiallyBooked, next)
}

func TestSchedule_FullBucketStillClaimsEntry(t *testing.T) {
	stores := th.NewStores().AddCapacity("WS1", "Assembly", 8, 10)
	scheduler := newScheduler(stores, 30)
	ctx := context.Background()

	_, err := scheduler.Schedule(ctx, Request{Replenishment: replenishment("PP1", "A", th.Qty(80), th.Day), Process: "Assembly"})
	require.NoError(t, err)

	outcome, err := scheduler.Schedule(ctx, Request{Replenishment: replenishment("PP1", "B", th.Qty(20), th.Day), Process: "Assembly"})
	require.NoError(t, err)

	assert.True(t, outcome.Entry.RequiredWorkHours.IsZero())
	assert.True(t, outcome.Entry.UnscheduledQty.Equal(th.Qty(20)))
	require.Len(t, outcome.CarryOvers, 1)
	assert.True(t, outcome.CarryOvers[0].RequiredWorkHours.Equal(decimal.NewFromInt(2)))
}

func TestSchedule_CapacityExhausted(t *testing.T) {
	stores := th.NewStores().AddCapacity("WS1", "Assembly", 8, 10)

	outcome, err := newScheduler(stores, 2).Schedule(context.Background(), Request{
		Replenishment: replenishment("PP1", "A", th.Qty(400), th.Day),
		Process:       "Assembly",
	})
	require.ErrorIs(t, err, apperrors.ErrCapacityExhausted)
	assert.True(t, apperrors.IsBranchRecoverable(err))

	// Today plus two carry-over days of 8 hours each
	require.NotNil(t, outcome.Entry)
	assert.Len(t, outcome.Created(), 3)
}

func TestSchedule_NegativeHorizonBooksOnlyToday(t *testing.T) {
	stores := th.NewStores().AddCapacity("WS1", "Assembly", 8, 10)
	scheduler := newScheduler(stores, -1)
	ctx := context.Background()

	fits, err := scheduler.Schedule(ctx, Request{Replenishment: replenishment("PP1", "A", th.Qty(40), th.Day), Process: "Assembly"})
	require.NoError(t, err)
	require.NotNil(t, fits.Entry)
	assert.Equal(t, th.Day, fits.Entry.ScheduleDate)

	overflow, err := scheduler.Schedule(ctx, Request{Replenishment: replenishment("PP1", "B", th.Qty(60), th.Day), Process: "Assembly"})
	require.ErrorIs(t, err, apperrors.ErrCapacityExhausted)
	require.NotNil(t, overflow.Entry)
	assert.True(t, overflow.Entry.UnscheduledQty.Equal(th.Qty(20)))
	assert.Empty(t, overflow.CarryOvers)
}

func TestSchedule_RerunResumesInterruptedCarryOver(t *testing.T) {
	stores := th.NewStores().AddCapacity("WS1", "Assembly", 8, 10)
	ctx := context.Background()
	req := Request{Replenishment: replenishment("PS-1", "F", th.Qty(120), th.Day), Process: "Assembly"}

	interrupted := NewScheduler(
		&droppedWrite{ScheduleRepository: stores.Schedules, failOn: 2},
		stores.Process,
		NewIntervalTable(stores.Process),
		locking.NewKeyedMutex(),
		Config{MaxCarryOverDays: 30},
		zap.NewNop(),
	).WithClock(th.Clock())

	first, err := interrupted.Schedule(ctx, req)
	require.Error(t, err)
	assert.False(t, apperrors.IsBranchRecoverable(err))
	require.NotNil(t, first.Entry)
	assert.True(t, first.Entry.PlannedQty.Equal(th.Qty(80)))
	assert.True(t, first.Entry.UnscheduledQty.Equal(th.Qty(40)))
	assert.Empty(t, first.CarryOvers)

	second, err := newScheduler(stores, 30).Schedule(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Entry.PlanNo, second.Entry.PlanNo)

	created := second.Created()
	require.Len(t, created, 1)
	assert.Equal(t, first.Entry.PlanNo, created[0].SourceNo)
	assert.Equal(t, th.Day.AddDate(0, 0, 1), created[0].ScheduleDate)
	assert.True(t, created[0].PlannedQty.Equal(th.Qty(40)))
	assert.True(t, created[0].UnscheduledQty.IsZero())

	// A third run finds the whole chain and books nothing
	third, err := newScheduler(stores, 30).Schedule(ctx, req)
	require.NoError(t, err)
	assert.True(t, third.Duplicate)
	assert.Empty(t, third.Created())

	entries, err := stores.Schedules.ListEntries(ctx)
	require.NoError(t, err)
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.PlannedQty)
	}
	assert.True(t, total.Equal(th.Qty(120)), "got %s", total)
}

func TestSchedule_HoursBookedAtFixedScale(t *testing.T) {
	stores := th.NewStores().AddCapacity("WS1", "Assembly", 8, 3)
	scheduler := newScheduler(stores, 30)
	ctx := context.Background()

	first, err := scheduler.Schedule(ctx, Request{Replenishment: replenishment("PP1", "A", th.Qty(10), th.Day), Process: "Assembly"})
	require.NoError(t, err)
	assert.True(t, first.Entry.RequiredWorkHours.Equal(decimal.RequireFromString("3.333333")), "got %s", first.Entry.RequiredWorkHours)
	assert.True(t, first.Entry.PlannedQty.Equal(th.Qty(10)))

	second, err := scheduler.Schedule(ctx, Request{Replenishment: replenishment("PP1", "B", th.Qty(20), th.Day), Process: "Assembly"})
	require.NoError(t, err)
	assert.True(t, second.Entry.RequiredWorkHours.Equal(decimal.RequireFromString("4.666667")), "got %s", second.Entry.RequiredWorkHours)
	require.Len(t, second.CarryOvers, 1)

	for _, entry := range append(first.Created(), second.Created()...) {
		assert.GreaterOrEqual(t, entry.RequiredWorkHours.Exponent(), int32(-HourScale), "entry %s hours %s", entry.PlanNo, entry.RequiredWorkHours)
	}

	hours, err := scheduler.BucketHours(ctx, entities.NewBucketKey("WS1", "Assembly", th.Day))
	require.NoError(t, err)
	assert.True(t, hours.Equal(decimal.NewFromInt(8)), "got %s", hours)

	booked := first.Entry.PlannedQty.Add(second.Entry.PlannedQty).Add(second.CarryOvers[0].PlannedQty)
	assert.True(t, booked.Equal(th.Qty(30)), "got %s", booked)
}

func TestSchedule_SameProcessInTwoWorkshops(t *testing.T) {
	stores := th.NewStores().
		AddCapacity("WS1", "Assembly", 8, 10).
		AddCapacity("WS2", "Assembly", 4, 5)
	scheduler := newScheduler(stores, 30)
	ctx := context.Background()

	outcome, err := scheduler.Schedule(ctx, Request{
		Replenishment: replenishment("PP1", "A", th.Qty(10), th.Day),
		Process:       "Assembly",
		Workshop:      "WS2",
	})
	require.NoError(t, err)
	assert.Equal(t, "WS2", outcome.Entry.Workshop)
	assert.True(t, outcome.Entry.RequiredWorkHours.Equal(decimal.NewFromInt(2)))
	assert.True(t, outcome.Entry.StandardWorkQuota.Equal(th.Qty(5)))

	ws1, err := scheduler.BucketHours(ctx, entities.NewBucketKey("WS1", "Assembly", th.Day))
	require.NoError(t, err)
	assert.True(t, ws1.IsZero())

	state, err := scheduler.BucketState(ctx, entities.NewBucketKey("WS2", "Assembly", th.Day))
	require.NoError(t, err)
	assert.Equal(t, entities.BucketPartiallyBooked, state)

	_, err = scheduler.Schedule(ctx, Request{Replenishment: replenishment("PP1", "B", th.Qty(10), th.Day), Process: "Assembly"})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.True(t, apperrors.IsBranchRecoverable(err))

	_, err = scheduler.Schedule(ctx, Request{Replenishment: replenishment("PP1", "C", th.Qty(10), th.Day), Process: "Assembly", Workshop: "WS3"})
	assert.ErrorIs(t, err, apperrors.ErrCapacityNotConfigured)
}

func TestSchedule_UnconstrainedBucket(t *testing.T) {
	stores := th.NewStores().AddCapacity("WS9", "Outsourced", 0, 4)

	outcome, err := newScheduler(stores, 0).Schedule(context.Background(), Request{
		Replenishment: replenishment("PP1", "X", th.Qty(400), th.Day),
		Process:       "Outsourced",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Entry.RequiredWorkHours.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, outcome.CarryOvers)
}

func TestSchedule_ConcurrentSiblingsConserveCapacity(t *testing.T) {
	stores := th.NewStores().AddCapacity("WS1", "Assembly", 8, 10)
	scheduler := newScheduler(stores, 30)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := scheduler.Schedule(ctx, Request{
				Replenishment: replenishment("PP1", fmt.Sprintf("M%02d", i), th.Qty(30), th.Day.AddDate(0, 0, 20)),
				Process:       "Assembly",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries, err := stores.Schedules.ListEntries(ctx)
	require.NoError(t, err)

	perBucket := map[entities.BucketKey]decimal.Decimal{}
	totalQty := decimal.Zero
	for _, entry := range entries {
		perBucket[entry.Bucket()] = perBucket[entry.Bucket()].Add(entry.RequiredWorkHours)
		totalQty = totalQty.Add(entry.PlannedQty)
	}

	for key, hours := range perBucket {
		live, err := scheduler.BucketHours(ctx, key)
		require.NoError(t, err)
		assert.True(t, live.Equal(hours), "bucket %s: live %s vs entries %s", key, live, hours)
		assert.True(t, hours.LessThanOrEqual(decimal.NewFromInt(8)), "bucket %s over-booked: %s", key, hours)
	}
	// 12 × 30 units, nothing dropped
	assert.True(t, totalQty.Equal(th.Qty(360)), "got %s", totalQty)
}

func TestIntervalTable_Lookup(t *testing.T) {
	stores := th.NewStores().AddInterval("Cutting", "Assembly", 1, entities.IntervalDays)
	table := NewIntervalTable(stores.Process)

	d, found, err := table.Lookup(context.Background(), "Cutting", "Assembly")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 24*time.Hour, d)

	_, found, err = table.Lookup(context.Background(), "Assembly", "Cutting")
	require.NoError(t, err)
	assert.False(t, found)
}
