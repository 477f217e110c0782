package netting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

// AvailabilityReader supplies available stock for netting
type AvailabilityReader interface {
	AvailableQty(ctx context.Context, materialCode entities.MaterialCode, asOf time.Time) (decimal.Decimal, error)
}

// Engine nets demand lines against available stock
type Engine struct {
	stock AvailabilityReader
	now   func() time.Time
}

func NewEngine(stock AvailabilityReader) *Engine {
	return &Engine{stock: stock, now: time.Now}
}

// WithClock replaces the clock used to stamp replenishment lines
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Net returns the replenishment line for a demand: shortfall = max(0, demand − available),
// with availability read as of the demand's need-by date. Netting the same demand against
// the same stock always yields the same shortfall.
func (e *Engine) Net(ctx context.Context, demand entities.DemandLine) (entities.ReplenishmentLine, error) {
	available, err := e.stock.AvailableQty(ctx, demand.MaterialCode, demand.NeedByDate)
	if err != nil {
		return entities.ReplenishmentLine{}, fmt.Errorf("failed to net %s: %w", demand.MaterialCode, err)
	}

	shortfall := demand.DemandQty.Sub(available)
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}

	return entities.ReplenishmentLine{
		SourceDocNo:  demand.SourceDocNo,
		MaterialCode: demand.MaterialCode,
		ShortfallQty: shortfall,
		NeedByDate:   demand.NeedByDate,
		SourceType:   demand.SourceType,
		Level:        demand.Level,
		CreatedAt:    e.now(),
	}, nil
}
