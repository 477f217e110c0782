package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

func newEntry(planNo, sourceNo string, code entities.MaterialCode, hours int64, date time.Time) *entities.ScheduleEntry {
	return &entities.ScheduleEntry{
		PlanNo:            planNo,
		SourceNo:          sourceNo,
		MaterialCode:      code,
		ProcessName:       "Assembly",
		Workshop:          "WS1",
		ScheduleDate:      date,
		RequiredWorkHours: decimal.NewFromInt(hours),
	}
}

func TestScheduleRepository_NextPlanNo(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository("PP")

	first, err := repo.NextPlanNo(ctx)
	require.NoError(t, err)
	second, err := repo.NextPlanNo(ctx)
	require.NoError(t, err)

	assert.Equal(t, "PP000001", first)
	assert.Equal(t, "PP000002", second)
}

func TestScheduleRepository_DuplicateGuard(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository("PP")
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateEntry(ctx, newEntry("PP1", "SRC", "F", 4, date)))

	err := repo.CreateEntry(ctx, newEntry("PP2", "SRC", "F", 4, date))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEntry)

	err = repo.CreateEntry(ctx, newEntry("PP1", "OTHER", "F", 4, date))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEntry)

	found, err := repo.FindEntry(ctx, "SRC", "F")
	require.NoError(t, err)
	assert.Equal(t, "PP1", found.PlanNo)

	_, err = repo.FindEntry(ctx, "SRC", "G")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestScheduleRepository_ConcurrentInsertSameKey(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository("PP")
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := repo.CreateEntry(ctx, newEntry(fmt.Sprintf("PP%d", i), "SRC", "F", 1, date)); err == nil {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
}

func TestScheduleRepository_BucketHours(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository("PP")
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateEntry(ctx, newEntry("PP1", "S1", "A", 3, day)))
	require.NoError(t, repo.CreateEntry(ctx, newEntry("PP2", "S2", "B", 4, day.Add(9*time.Hour))))
	require.NoError(t, repo.CreateEntry(ctx, newEntry("PP3", "S3", "C", 5, day.AddDate(0, 0, 1))))

	hours, err := repo.BucketHours(ctx, entities.NewBucketKey("WS1", "Assembly", day))
	require.NoError(t, err)
	assert.True(t, hours.Equal(decimal.NewFromInt(7)), "got %s", hours)

	other, err := repo.BucketHours(ctx, entities.NewBucketKey("WS2", "Assembly", day))
	require.NoError(t, err)
	assert.True(t, other.IsZero())
}

func TestScheduleRepository_Replenishments(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository("PP")

	line := &entities.ReplenishmentLine{SourceDocNo: "PP1", MaterialCode: "C", ShortfallQty: decimal.NewFromInt(160), SourceType: entities.Buy}
	require.NoError(t, repo.CreateReplenishment(ctx, line))
	assert.ErrorIs(t, repo.CreateReplenishment(ctx, line), apperrors.ErrDuplicateEntry)

	lines, err := repo.ListReplenishments(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].ShortfallQty.Equal(decimal.NewFromInt(160)))
}
