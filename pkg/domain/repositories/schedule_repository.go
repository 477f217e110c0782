package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

// ScheduleRepository stores schedule entries.
// Implementations enforce uniqueness of (SourceNo, MaterialCode) and report violations
// as apperrors.ErrDuplicateEntry.
type ScheduleRepository interface {
	// NextPlanNo reserves a new unique plan number
	NextPlanNo(ctx context.Context) (string, error)
	CreateEntry(ctx context.Context, entry *entities.ScheduleEntry) error
	// FindEntry returns apperrors.ErrNotFound when no entry exists for the pair
	FindEntry(ctx context.Context, sourceNo string, code entities.MaterialCode) (*entities.ScheduleEntry, error)
	// BucketHours sums RequiredWorkHours of all entries booked into the bucket
	BucketHours(ctx context.Context, key entities.BucketKey) (decimal.Decimal, error)
	ListEntries(ctx context.Context) ([]*entities.ScheduleEntry, error)
}

// ReplenishmentRepository stores procurement-facing replenishment lines with the same
// (SourceDocNo, MaterialCode) uniqueness as schedule entries
type ReplenishmentRepository interface {
	CreateReplenishment(ctx context.Context, line *entities.ReplenishmentLine) error
	ListReplenishments(ctx context.Context) ([]*entities.ReplenishmentLine, error)
}
