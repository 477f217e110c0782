package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/domain/repositories"
)

type intervalKey struct {
	from string
	to   string
}

type capacityKey struct {
	workshop string
	process  string
}

// ProcessRepository holds process-interval rules and process capacity configuration
type ProcessRepository struct {
	mu         sync.RWMutex
	intervals  map[intervalKey]entities.ProcessIntervalRule
	capacities map[capacityKey]entities.ProcessCapacity
}

// NewProcessRepository creates an empty process repository
func NewProcessRepository() *ProcessRepository {
	return &ProcessRepository{
		intervals:  make(map[intervalKey]entities.ProcessIntervalRule),
		capacities: make(map[capacityKey]entities.ProcessCapacity),
	}
}

// Verify interface compliance
var _ repositories.ProcessIntervalRepository = (*ProcessRepository)(nil)
var _ repositories.CapacityRepository = (*ProcessRepository)(nil)

// AddInterval adds or replaces the rule for a (from, to) pair
func (r *ProcessRepository) AddInterval(rule entities.ProcessIntervalRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intervals[intervalKey{rule.FromProcess, rule.ToProcess}] = rule
}

// AddCapacity adds or replaces the capacity configuration of a process in one workshop
func (r *ProcessRepository) AddCapacity(capacity entities.ProcessCapacity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capacities[capacityKey{capacity.Workshop, capacity.Process}] = capacity
}

// GetInterval returns the interval rule between two processes
func (r *ProcessRepository) GetInterval(_ context.Context, fromProcess, toProcess string) (*entities.ProcessIntervalRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.intervals[intervalKey{fromProcess, toProcess}]
	if !exists {
		return nil, fmt.Errorf("interval %s -> %s: %w", fromProcess, toProcess, apperrors.ErrNotFound)
	}
	return &rule, nil
}

// GetCapacity returns the capacity configuration of a process in one workshop
func (r *ProcessRepository) GetCapacity(_ context.Context, workshop, process string) (*entities.ProcessCapacity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	capacity, exists := r.capacities[capacityKey{workshop, process}]
	if !exists {
		return nil, fmt.Errorf("capacity for %s/%s: %w", workshop, process, apperrors.ErrNotFound)
	}
	return &capacity, nil
}

// ListCapacities returns the configurations of a process across all workshops
func (r *ProcessRepository) ListCapacities(_ context.Context, process string) ([]*entities.ProcessCapacity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	capacities := make([]*entities.ProcessCapacity, 0)
	for key, capacity := range r.capacities {
		if key.process == process {
			c := capacity
			capacities = append(capacities, &c)
		}
	}
	sort.Slice(capacities, func(i, j int) bool {
		return capacities[i].Workshop < capacities[j].Workshop
	})
	return capacities, nil
}
