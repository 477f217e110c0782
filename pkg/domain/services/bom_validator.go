package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

// BOMValidator checks the structural integrity of a whole BOM store
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles      bool
	CyclePaths     [][]entities.MaterialCode
	DuplicateLines []entities.BOMLine
	Errors         []string
}

// Valid reports whether no problems were found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateBOM scans all lines for cycles, duplicate parent/child pairs and
// make components that have no output process
func (v *BOMValidator) ValidateBOM(bomLines []entities.BOMLine) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:     make([][]entities.MaterialCode, 0),
		DuplicateLines: make([]entities.BOMLine, 0),
		Errors:         make([]string, 0),
	}

	adjacencyMap := v.buildAdjacencyMap(bomLines)

	cycles := v.detectCycles(adjacencyMap)
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles

	result.DuplicateLines = v.detectDuplicateLines(bomLines)

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}

	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate BOM lines", len(result.DuplicateLines)))
	}

	for _, line := range bomLines {
		if line.SourceType == entities.Make && line.OutputProcess == "" {
			result.Errors = append(result.Errors,
				fmt.Sprintf("make component %s under %s has no output process", line.ChildCode, line.ParentCode))
		}
	}

	return result
}

// buildAdjacencyMap creates a parent -> sorted, distinct children map
func (v *BOMValidator) buildAdjacencyMap(bomLines []entities.BOMLine) map[entities.MaterialCode][]entities.MaterialCode {
	seen := make(map[entities.MaterialCode]map[entities.MaterialCode]struct{})
	adjacencyMap := make(map[entities.MaterialCode][]entities.MaterialCode)

	for _, line := range bomLines {
		children, exists := seen[line.ParentCode]
		if !exists {
			children = make(map[entities.MaterialCode]struct{})
			seen[line.ParentCode] = children
		}
		if _, dup := children[line.ChildCode]; dup {
			continue
		}
		children[line.ChildCode] = struct{}{}
		adjacencyMap[line.ParentCode] = append(adjacencyMap[line.ParentCode], line.ChildCode)
	}

	for parent := range adjacencyMap {
		sortCodes(adjacencyMap[parent])
	}

	return adjacencyMap
}

// detectCycles runs a DFS from every parent in code order so results are stable
func (v *BOMValidator) detectCycles(adjacencyMap map[entities.MaterialCode][]entities.MaterialCode) [][]entities.MaterialCode {
	visited := make(map[entities.MaterialCode]bool)
	onStack := make(map[entities.MaterialCode]bool)
	cycles := make([][]entities.MaterialCode, 0)

	parents := make([]entities.MaterialCode, 0, len(adjacencyMap))
	for parent := range adjacencyMap {
		parents = append(parents, parent)
	}
	sortCodes(parents)

	for _, parent := range parents {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacencyMap, visited, onStack, nil, &cycles)
		}
	}

	return cycles
}

func (v *BOMValidator) dfsDetectCycle(
	current entities.MaterialCode,
	adjacencyMap map[entities.MaterialCode][]entities.MaterialCode,
	visited map[entities.MaterialCode]bool,
	onStack map[entities.MaterialCode]bool,
	path []entities.MaterialCode,
	cycles *[][]entities.MaterialCode,
) {
	visited[current] = true
	onStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, onStack, path, cycles)
			continue
		}
		if !onStack[child] {
			continue
		}
		for i, code := range path {
			if code == child {
				cycle := make([]entities.MaterialCode, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				cycle = append(cycle, child)
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	onStack[current] = false
}

// detectDuplicateLines finds lines sharing the same parent and child
func (v *BOMValidator) detectDuplicateLines(bomLines []entities.BOMLine) []entities.BOMLine {
	seen := make(map[string]entities.BOMLine)
	duplicates := make([]entities.BOMLine, 0)

	for _, line := range bomLines {
		key := fmt.Sprintf("%s|%s", line.ParentCode, line.ChildCode)
		if existing, exists := seen[key]; exists {
			duplicates = append(duplicates, existing, line)
			continue
		}
		seen[key] = line
	}

	return duplicates
}

func sortCodes(codes []entities.MaterialCode) {
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
}
