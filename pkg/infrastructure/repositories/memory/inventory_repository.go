package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/domain/repositories"
)

// StockRepository provides in-memory stock snapshot storage
type StockRepository struct {
	mu        sync.RWMutex
	snapshots map[entities.MaterialCode][]entities.StockSnapshot
}

// NewStockRepository creates a new in-memory stock repository
func NewStockRepository() *StockRepository {
	return &StockRepository{
		snapshots: make(map[entities.MaterialCode][]entities.StockSnapshot),
	}
}

// Verify interface compliance
var _ repositories.StockRepository = (*StockRepository)(nil)

// LoadSnapshots loads stock snapshots into the repository
func (r *StockRepository) LoadSnapshots(snapshots []*entities.StockSnapshot) {
	for _, snap := range snapshots {
		r.AddSnapshot(*snap)
	}
}

// AddSnapshot records a snapshot, keeping each material's snapshots ordered by AsOfDate
func (r *StockRepository) AddSnapshot(snap entities.StockSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.snapshots[snap.MaterialCode], snap)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].AsOfDate.Before(list[j].AsOfDate)
	})
	r.snapshots[snap.MaterialCode] = list
}

// GetSnapshot returns the latest snapshot at or before asOf, or the earliest one
// when every recorded snapshot is later than asOf
func (r *StockRepository) GetSnapshot(_ context.Context, code entities.MaterialCode, asOf time.Time) (*entities.StockSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.snapshots[code]
	if len(list) == 0 {
		return nil, fmt.Errorf("stock for material %s: %w", code, apperrors.ErrNotFound)
	}

	selected := list[0]
	for _, snap := range list {
		if snap.AsOfDate.After(asOf) {
			break
		}
		selected = snap
	}
	return &selected, nil
}
