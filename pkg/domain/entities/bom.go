package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BOMLine represents a single line in a Bill of Materials.
// UsagePerParent is expressed per one unit of the immediate parent. Workshop routes the
// child to one workshop running OutputProcess; it may stay empty while that process runs
// in a single workshop.
type BOMLine struct {
	ParentCode     MaterialCode
	ChildCode      MaterialCode
	ChildName      string
	UsagePerParent decimal.Decimal
	SourceType     SourceType
	OutputProcess  string
	Workshop       string
	Level          int
}

// NewBOMLine creates a validated BOMLine
func NewBOMLine(
	parentCode, childCode MaterialCode,
	childName string,
	usagePerParent decimal.Decimal,
	sourceType SourceType,
	outputProcess string,
	level int,
) (*BOMLine, error) {
	if string(parentCode) == "" {
		return nil, fmt.Errorf("parent material code cannot be empty")
	}
	if string(childCode) == "" {
		return nil, fmt.Errorf("child material code cannot be empty")
	}
	if parentCode == childCode {
		return nil, fmt.Errorf("parent and child material codes cannot be the same: %s", parentCode)
	}
	if usagePerParent.IsNegative() {
		return nil, fmt.Errorf("usage per parent cannot be negative, got %s", usagePerParent)
	}
	if level < 0 {
		return nil, fmt.Errorf("level cannot be negative, got %d", level)
	}
	if sourceType == Make && outputProcess == "" {
		return nil, fmt.Errorf("make component %s requires an output process", childCode)
	}

	return &BOMLine{
		ParentCode:     parentCode,
		ChildCode:      childCode,
		ChildName:      childName,
		UsagePerParent: usagePerParent,
		SourceType:     sourceType,
		OutputProcess:  outputProcess,
		Level:          level,
	}, nil
}

// BOMComponent is one resolved child of a parent for a given parent quantity
type BOMComponent struct {
	ChildCode     MaterialCode
	ChildName     string
	RequiredQty   decimal.Decimal
	SourceType    SourceType
	OutputProcess string
	Workshop      string
}
