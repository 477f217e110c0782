package repositories

import (
	"context"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

// BOMRepository provides access to Bill of Materials data
type BOMRepository interface {
	// GetBOMLines returns the immediate children of a material. An empty slice means a leaf;
	// a material unknown to the BOM store yields apperrors.ErrNotFound.
	GetBOMLines(ctx context.Context, parentCode entities.MaterialCode) ([]*entities.BOMLine, error)
	GetAllBOMLines(ctx context.Context) ([]*entities.BOMLine, error)
}
