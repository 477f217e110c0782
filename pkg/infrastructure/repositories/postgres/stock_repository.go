package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

// StockRepository reads stock ledger snapshots from PostgreSQL
type StockRepository struct {
	pool *pgxpool.Pool
}

func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

func (r *StockRepository) UpsertSnapshot(ctx context.Context, snap entities.StockSnapshot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO stock_snapshots (material_code, as_of_date, on_hand, in_transit, reserved, projected_balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (material_code, as_of_date) DO UPDATE SET
			on_hand = EXCLUDED.on_hand,
			in_transit = EXCLUDED.in_transit,
			reserved = EXCLUDED.reserved,
			projected_balance = EXCLUDED.projected_balance`,
		string(snap.MaterialCode), snap.AsOfDate, snap.OnHand, snap.InTransit, snap.Reserved, snap.ProjectedBalance)
	if err != nil {
		return fmt.Errorf("failed to upsert stock snapshot for %s: %w", snap.MaterialCode, err)
	}
	return nil
}

// GetSnapshot returns the latest snapshot at or before asOf, falling back to the
// earliest snapshot when every snapshot is later
func (r *StockRepository) GetSnapshot(ctx context.Context, code entities.MaterialCode, asOf time.Time) (*entities.StockSnapshot, error) {
	var snap entities.StockSnapshot
	err := r.pool.QueryRow(ctx, `
		SELECT as_of_date, on_hand, in_transit, reserved, projected_balance
		FROM stock_snapshots
		WHERE material_code = $1
		ORDER BY (as_of_date <= $2) DESC,
			CASE WHEN as_of_date <= $2 THEN as_of_date END DESC,
			as_of_date ASC
		LIMIT 1`, string(code), asOf).
		Scan(&snap.AsOfDate, &snap.OnHand, &snap.InTransit, &snap.Reserved, &snap.ProjectedBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("stock for %s: %w", code, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get stock snapshot for %s: %w", code, err)
	}
	snap.MaterialCode = code
	return &snap, nil
}
