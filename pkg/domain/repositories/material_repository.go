package repositories

import (
	"context"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

// MaterialRepository provides access to material master data
type MaterialRepository interface {
	// GetMaterial returns apperrors.ErrNotFound for unknown codes
	GetMaterial(ctx context.Context, code entities.MaterialCode) (*entities.Material, error)
}
