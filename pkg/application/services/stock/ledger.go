package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/domain/repositories"
)

// Ledger reads available stock from the stock ledger
type Ledger struct {
	stockRepo repositories.StockRepository
}

func NewLedger(stockRepo repositories.StockRepository) *Ledger {
	return &Ledger{stockRepo: stockRepo}
}

// AvailableQty returns onHand + inTransit − reserved as of the given date, never below zero.
// A material with no recorded stock has zero available.
func (l *Ledger) AvailableQty(ctx context.Context, materialCode entities.MaterialCode, asOf time.Time) (decimal.Decimal, error) {
	snap, err := l.stockRepo.GetSnapshot(ctx, materialCode, asOf)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to read stock for %s: %w", materialCode, err)
	}
	return snap.Available(), nil
}
