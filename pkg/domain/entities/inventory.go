package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StockSnapshot is the stock ledger balance of one material as of a point in time
type StockSnapshot struct {
	MaterialCode     MaterialCode
	OnHand           decimal.Decimal
	InTransit        decimal.Decimal
	Reserved         decimal.Decimal
	ProjectedBalance decimal.Decimal
	AsOfDate         time.Time
}

// NewStockSnapshot creates a validated StockSnapshot
func NewStockSnapshot(code MaterialCode, onHand, inTransit, reserved, projected decimal.Decimal, asOf time.Time) (*StockSnapshot, error) {
	if string(code) == "" {
		return nil, fmt.Errorf("material code cannot be empty")
	}
	if onHand.IsNegative() {
		return nil, fmt.Errorf("on-hand quantity cannot be negative, got %s", onHand)
	}
	if inTransit.IsNegative() {
		return nil, fmt.Errorf("in-transit quantity cannot be negative, got %s", inTransit)
	}
	if reserved.IsNegative() {
		return nil, fmt.Errorf("reserved quantity cannot be negative, got %s", reserved)
	}

	return &StockSnapshot{
		MaterialCode:     code,
		OnHand:           onHand,
		InTransit:        inTransit,
		Reserved:         reserved,
		ProjectedBalance: projected,
		AsOfDate:         asOf,
	}, nil
}

// Available returns on-hand plus in-transit minus reserved, never below zero.
// Projected balance is advisory and deliberately left out.
func (s StockSnapshot) Available() decimal.Decimal {
	available := s.OnHand.Add(s.InTransit).Sub(s.Reserved)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}
