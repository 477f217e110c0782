package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProductionTrigger is the production-schedule record whose creation or update starts a propagation run
type ProductionTrigger struct {
	SourceDocNo      string
	MaterialCode     MaterialCode
	Quantity         decimal.Decimal
	NeedByDate       time.Time
	ProcessName      string
	Workshop         string
	SuccessorProcess string
	PlanStartDate    *time.Time
}

// Validate checks the trigger at the boundary where it enters the engine
func (t ProductionTrigger) Validate() error {
	if t.SourceDocNo == "" {
		return fmt.Errorf("source document number cannot be empty")
	}
	if string(t.MaterialCode) == "" {
		return fmt.Errorf("material code cannot be empty")
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be positive, got %s", t.Quantity)
	}
	if t.NeedByDate.IsZero() {
		return fmt.Errorf("need-by date cannot be empty")
	}
	if t.ProcessName == "" {
		return fmt.Errorf("process name cannot be empty")
	}
	return nil
}

// RootDemand converts the trigger into the level-0 demand line
func (t ProductionTrigger) RootDemand() DemandLine {
	return DemandLine{
		SourceDocNo:      t.SourceDocNo,
		MaterialCode:     t.MaterialCode,
		DemandQty:        t.Quantity,
		NeedByDate:       t.NeedByDate,
		Level:            0,
		SourceType:       Make,
		OutputProcess:    t.ProcessName,
		Workshop:         t.Workshop,
		SuccessorProcess: t.SuccessorProcess,
		PlanStartDate:    t.PlanStartDate,
	}
}

// DemandLine is the unit of work flowing through the engine. It is never persisted.
type DemandLine struct {
	SourceDocNo      string
	MaterialCode     MaterialCode
	DemandQty        decimal.Decimal
	NeedByDate       time.Time
	Level            int
	SourceType       SourceType
	OutputProcess    string
	Workshop         string
	SuccessorProcess string
	PlanStartDate    *time.Time

	// Ancestors holds the material codes from the root down to the immediate parent
	Ancestors []MaterialCode
}

// InAncestry reports whether the line's material already appears in its own ancestor chain
func (d DemandLine) InAncestry() bool {
	for _, code := range d.Ancestors {
		if code == d.MaterialCode {
			return true
		}
	}
	return false
}

// Chain returns the ancestor chain including the line's own material
func (d DemandLine) Chain() []MaterialCode {
	chain := make([]MaterialCode, 0, len(d.Ancestors)+1)
	chain = append(chain, d.Ancestors...)
	return append(chain, d.MaterialCode)
}

// ReplenishmentLine is the netting result for one demand line
type ReplenishmentLine struct {
	SourceDocNo  string          `json:"source_doc_no"`
	MaterialCode MaterialCode    `json:"material_code"`
	ShortfallQty decimal.Decimal `json:"shortfall_qty"`
	NeedByDate   time.Time       `json:"need_by_date"`
	SourceType   SourceType      `json:"source_type"`
	Level        int             `json:"level"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IsZero reports whether the line terminates propagation for its material
func (r ReplenishmentLine) IsZero() bool {
	return !r.ShortfallQty.IsPositive()
}
