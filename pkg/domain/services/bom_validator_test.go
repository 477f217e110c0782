package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

func line(parent, child entities.MaterialCode) entities.BOMLine {
	return entities.BOMLine{
		ParentCode:     parent,
		ChildCode:      child,
		UsagePerParent: decimal.NewFromInt(1),
		SourceType:     entities.Buy,
	}
}

func TestBOMValidator_DetectSimpleCycle(t *testing.T) {
	result := NewBOMValidator().ValidateBOM([]entities.BOMLine{
		line("A", "B"),
		line("B", "A"),
	})

	if !result.HasCycles {
		t.Fatal("Expected cycle to be detected")
	}
	if len(result.CyclePaths) != 1 {
		t.Fatalf("Expected one cycle path, got %v", result.CyclePaths)
	}
	path := result.CyclePaths[0]
	if path[0] != "A" || path[len(path)-1] != "A" {
		t.Errorf("Expected closed cycle starting at A, got %v", path)
	}
	if result.Valid() {
		t.Error("Expected validation errors for cycles")
	}
}

func TestBOMValidator_DetectLongerCycle(t *testing.T) {
	result := NewBOMValidator().ValidateBOM([]entities.BOMLine{
		line("A", "B"),
		line("B", "C"),
		line("C", "A"),
	})

	if !result.HasCycles {
		t.Fatal("Expected cycle to be detected")
	}
	if got := len(result.CyclePaths[0]); got != 4 {
		t.Errorf("Expected A -> B -> C -> A, got %v", result.CyclePaths[0])
	}
}

func TestBOMValidator_DiamondIsNotACycle(t *testing.T) {
	// A uses B and C, both of which use D
	result := NewBOMValidator().ValidateBOM([]entities.BOMLine{
		line("A", "B"),
		line("A", "C"),
		line("B", "D"),
		line("C", "D"),
	})

	if result.HasCycles {
		t.Errorf("Shared components must not be reported as cycles: %v", result.CyclePaths)
	}
	if !result.Valid() {
		t.Errorf("Unexpected errors: %v", result.Errors)
	}
}

func TestBOMValidator_DuplicateLines(t *testing.T) {
	result := NewBOMValidator().ValidateBOM([]entities.BOMLine{
		line("A", "B"),
		line("A", "B"),
		line("A", "C"),
	})

	if len(result.DuplicateLines) != 2 {
		t.Errorf("Expected duplicate pair, got %d lines", len(result.DuplicateLines))
	}
	if result.HasCycles {
		t.Error("Duplicates are not cycles")
	}
}

func TestBOMValidator_MakeWithoutProcess(t *testing.T) {
	makeLine := line("A", "B")
	makeLine.SourceType = entities.Make

	result := NewBOMValidator().ValidateBOM([]entities.BOMLine{makeLine})

	if result.Valid() {
		t.Error("Expected error for make component without output process")
	}
}
