package bom

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/domain/repositories"
)

// Resolver expands a material into its immediate children
type Resolver struct {
	bomRepo repositories.BOMRepository
}

func NewResolver(bomRepo repositories.BOMRepository) *Resolver {
	return &Resolver{bomRepo: bomRepo}
}

// ResolveChildren returns the immediate components of materialCode with
// RequiredQty = UsagePerParent × parentQty, ordered by child code.
// A leaf yields an empty slice; an unknown material yields an error wrapping apperrors.ErrNotFound.
// Repeated lines for the same child are summed into one component.
func (r *Resolver) ResolveChildren(ctx context.Context, materialCode entities.MaterialCode, parentQty decimal.Decimal) ([]entities.BOMComponent, error) {
	lines, err := r.bomRepo.GetBOMLines(ctx, materialCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve children of %s: %w", materialCode, err)
	}

	components := make([]entities.BOMComponent, 0, len(lines))
	index := make(map[entities.MaterialCode]int, len(lines))

	for _, line := range lines {
		required := line.UsagePerParent.Mul(parentQty)
		if i, seen := index[line.ChildCode]; seen {
			components[i].RequiredQty = components[i].RequiredQty.Add(required)
			continue
		}
		index[line.ChildCode] = len(components)
		components = append(components, entities.BOMComponent{
			ChildCode:     line.ChildCode,
			ChildName:     line.ChildName,
			RequiredQty:   required,
			SourceType:    line.SourceType,
			OutputProcess: line.OutputProcess,
			Workshop:      line.Workshop,
		})
	}

	sort.Slice(components, func(i, j int) bool {
		return components[i].ChildCode < components[j].ChildCode
	})

	return components, nil
}
