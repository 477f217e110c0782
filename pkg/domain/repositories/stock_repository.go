package repositories

import (
	"context"
	"time"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

// StockRepository provides access to stock ledger snapshots
type StockRepository interface {
	// GetSnapshot returns the latest snapshot taken at or before asOf.
	// Returns apperrors.ErrNotFound when no snapshot was ever recorded for the material.
	GetSnapshot(ctx context.Context, code entities.MaterialCode, asOf time.Time) (*entities.StockSnapshot, error)
}
