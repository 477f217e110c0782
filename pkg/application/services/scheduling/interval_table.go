package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/repositories"
)

// IntervalTable answers minimum offsets between a process and its successor
type IntervalTable struct {
	repo repositories.ProcessIntervalRepository
}

func NewIntervalTable(repo repositories.ProcessIntervalRepository) *IntervalTable {
	return &IntervalTable{repo: repo}
}

// Lookup returns the interval between fromProcess finishing and toProcess needing its output.
// found is false when toProcess is empty or no rule exists; callers fall back to the same day.
func (t *IntervalTable) Lookup(ctx context.Context, fromProcess, toProcess string) (time.Duration, bool, error) {
	if fromProcess == "" || toProcess == "" {
		return 0, false, nil
	}

	rule, err := t.repo.GetInterval(ctx, fromProcess, toProcess)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to look up interval %s -> %s: %w", fromProcess, toProcess, err)
	}
	return rule.Duration(), true, nil
}
