package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/domain/repositories"
)

// BOMRepository provides in-memory material master and BOM storage.
// A material is known to the store once it is added as a material or referenced by any BOM line.
type BOMRepository struct {
	mu         sync.RWMutex
	materials  []entities.Material
	materialIx map[entities.MaterialCode]int
	bomLines   []entities.BOMLine
	bomIndexes map[entities.MaterialCode][]int
	known      map[entities.MaterialCode]struct{}
}

// NewBOMRepository creates a BOM repository sized for the expected data
func NewBOMRepository(expectedMaterials, expectedBOMLines int) *BOMRepository {
	return &BOMRepository{
		materials:  make([]entities.Material, 0, expectedMaterials),
		materialIx: make(map[entities.MaterialCode]int, expectedMaterials),
		bomLines:   make([]entities.BOMLine, 0, expectedBOMLines),
		bomIndexes: make(map[entities.MaterialCode][]int, expectedMaterials),
		known:      make(map[entities.MaterialCode]struct{}, expectedMaterials),
	}
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMRepository)(nil)
var _ repositories.MaterialRepository = (*BOMRepository)(nil)

// LoadBOMLines loads BOM lines into the repository
func (r *BOMRepository) LoadBOMLines(lines []*entities.BOMLine) {
	for _, line := range lines {
		r.AddBOMLine(*line)
	}
}

// LoadMaterials loads materials into the repository
func (r *BOMRepository) LoadMaterials(materials []*entities.Material) {
	for _, m := range materials {
		r.AddMaterial(*m)
	}
}

// AddMaterial adds or replaces a material master record
func (r *BOMRepository) AddMaterial(material entities.Material) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index, exists := r.materialIx[material.Code]; exists {
		r.materials[index] = material
		return
	}
	r.materialIx[material.Code] = len(r.materials)
	r.materials = append(r.materials, material)
	r.known[material.Code] = struct{}{}
}

// AddBOMLine adds a BOM line to the repository
func (r *BOMRepository) AddBOMLine(line entities.BOMLine) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := len(r.bomLines)
	r.bomLines = append(r.bomLines, line)
	r.bomIndexes[line.ParentCode] = append(r.bomIndexes[line.ParentCode], index)
	r.known[line.ParentCode] = struct{}{}
	r.known[line.ChildCode] = struct{}{}
}

// GetMaterial returns material master data for a code
func (r *BOMRepository) GetMaterial(_ context.Context, code entities.MaterialCode) (*entities.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.materialIx[code]
	if !exists {
		return nil, fmt.Errorf("material %s: %w", code, apperrors.ErrNotFound)
	}
	material := r.materials[index]
	return &material, nil
}

// GetBOMLines returns the immediate children of a material
func (r *BOMRepository) GetBOMLines(_ context.Context, parentCode entities.MaterialCode) ([]*entities.BOMLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.known[parentCode]; !exists {
		return nil, fmt.Errorf("bom for material %s: %w", parentCode, apperrors.ErrNotFound)
	}

	indexes := r.bomIndexes[parentCode]
	lines := make([]*entities.BOMLine, 0, len(indexes))
	for _, index := range indexes {
		line := r.bomLines[index]
		lines = append(lines, &line)
	}
	return lines, nil
}

// GetAllBOMLines returns all BOM lines
func (r *BOMRepository) GetAllBOMLines(_ context.Context) ([]*entities.BOMLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]*entities.BOMLine, 0, len(r.bomLines))
	for i := range r.bomLines {
		line := r.bomLines[i]
		lines = append(lines, &line)
	}
	return lines, nil
}
