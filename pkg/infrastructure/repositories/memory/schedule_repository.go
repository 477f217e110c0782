package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/domain/repositories"
)

type sourceMaterialKey struct {
	sourceNo string
	material entities.MaterialCode
}

// ScheduleRepository stores schedule entries and replenishment lines in memory.
// Uniqueness checks and inserts happen under one mutex, so concurrent runs cannot both insert.
type ScheduleRepository struct {
	mu             sync.RWMutex
	prefix         string
	sequence       int64
	entries        []entities.ScheduleEntry
	planNos        map[string]struct{}
	bySource       map[sourceMaterialKey]int
	byBucket       map[entities.BucketKey][]int
	replenishments []entities.ReplenishmentLine
	replBySource   map[sourceMaterialKey]int
}

// NewScheduleRepository creates a schedule repository issuing plan numbers with the given prefix
func NewScheduleRepository(planNoPrefix string) *ScheduleRepository {
	return &ScheduleRepository{
		prefix:       planNoPrefix,
		planNos:      make(map[string]struct{}),
		bySource:     make(map[sourceMaterialKey]int),
		byBucket:     make(map[entities.BucketKey][]int),
		replBySource: make(map[sourceMaterialKey]int),
	}
}

// Verify interface compliance
var _ repositories.ScheduleRepository = (*ScheduleRepository)(nil)
var _ repositories.ReplenishmentRepository = (*ScheduleRepository)(nil)

// NextPlanNo reserves the next plan number
func (r *ScheduleRepository) NextPlanNo(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequence++
	return fmt.Sprintf("%s%06d", r.prefix, r.sequence), nil
}

// CreateEntry inserts an entry unless one already exists for its (SourceNo, MaterialCode)
func (r *ScheduleRepository) CreateEntry(_ context.Context, entry *entities.ScheduleEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sourceMaterialKey{entry.SourceNo, entry.MaterialCode}
	if _, exists := r.bySource[key]; exists {
		return fmt.Errorf("entry %s/%s: %w", entry.SourceNo, entry.MaterialCode, apperrors.ErrDuplicateEntry)
	}
	if _, exists := r.planNos[entry.PlanNo]; exists {
		return fmt.Errorf("plan number %s already used: %w", entry.PlanNo, apperrors.ErrDuplicateEntry)
	}

	index := len(r.entries)
	r.entries = append(r.entries, *entry)
	r.bySource[key] = index
	r.planNos[entry.PlanNo] = struct{}{}
	bucket := entry.Bucket()
	r.byBucket[bucket] = append(r.byBucket[bucket], index)
	return nil
}

// FindEntry returns the entry created for (sourceNo, code)
func (r *ScheduleRepository) FindEntry(_ context.Context, sourceNo string, code entities.MaterialCode) (*entities.ScheduleEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.bySource[sourceMaterialKey{sourceNo, code}]
	if !exists {
		return nil, fmt.Errorf("entry %s/%s: %w", sourceNo, code, apperrors.ErrNotFound)
	}
	entry := r.entries[index]
	return &entry, nil
}

// BucketHours sums the required work hours booked into a bucket
func (r *ScheduleRepository) BucketHours(_ context.Context, key entities.BucketKey) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := decimal.Zero
	for _, index := range r.byBucket[key] {
		total = total.Add(r.entries[index].RequiredWorkHours)
	}
	return total, nil
}

// ListEntries returns all entries ordered by plan number
func (r *ScheduleRepository) ListEntries(_ context.Context) ([]*entities.ScheduleEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*entities.ScheduleEntry, 0, len(r.entries))
	for i := range r.entries {
		entry := r.entries[i]
		entries = append(entries, &entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PlanNo < entries[j].PlanNo
	})
	return entries, nil
}

// CreateReplenishment inserts a procurement-facing line unless one exists for its (SourceDocNo, MaterialCode)
func (r *ScheduleRepository) CreateReplenishment(_ context.Context, line *entities.ReplenishmentLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sourceMaterialKey{line.SourceDocNo, line.MaterialCode}
	if _, exists := r.replBySource[key]; exists {
		return fmt.Errorf("replenishment %s/%s: %w", line.SourceDocNo, line.MaterialCode, apperrors.ErrDuplicateEntry)
	}
	r.replBySource[key] = len(r.replenishments)
	r.replenishments = append(r.replenishments, *line)
	return nil
}

// ListReplenishments returns all replenishment lines in insertion order
func (r *ScheduleRepository) ListReplenishments(_ context.Context) ([]*entities.ReplenishmentLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]*entities.ReplenishmentLine, 0, len(r.replenishments))
	for i := range r.replenishments {
		line := r.replenishments[i]
		lines = append(lines, &line)
	}
	return lines, nil
}
