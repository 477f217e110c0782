package repositories

import (
	"context"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

// ProcessIntervalRepository provides the static process-interval rule set
type ProcessIntervalRepository interface {
	// GetInterval returns apperrors.ErrNotFound when no rule exists for the pair
	GetInterval(ctx context.Context, fromProcess, toProcess string) (*entities.ProcessIntervalRule, error)
}

// CapacityRepository provides process capacity configuration, keyed by (workshop, process)
type CapacityRepository interface {
	// GetCapacity returns apperrors.ErrNotFound when the workshop does not run the process
	GetCapacity(ctx context.Context, workshop, process string) (*entities.ProcessCapacity, error)
	// ListCapacities returns every workshop configuration of a process, ordered by workshop
	ListCapacities(ctx context.Context, process string) ([]*entities.ProcessCapacity, error)
}
