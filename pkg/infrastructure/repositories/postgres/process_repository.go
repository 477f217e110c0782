package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

// ProcessRepository reads process interval rules and capacities from PostgreSQL
type ProcessRepository struct {
	pool *pgxpool.Pool
}

func NewProcessRepository(pool *pgxpool.Pool) *ProcessRepository {
	return &ProcessRepository{pool: pool}
}

func (r *ProcessRepository) UpsertInterval(ctx context.Context, rule entities.ProcessIntervalRule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO process_intervals (from_process, to_process, interval_value, interval_unit)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (from_process, to_process) DO UPDATE SET
			interval_value = EXCLUDED.interval_value,
			interval_unit = EXCLUDED.interval_unit`,
		rule.FromProcess, rule.ToProcess, rule.IntervalValue, string(rule.IntervalUnit))
	if err != nil {
		return fmt.Errorf("failed to upsert interval %s -> %s: %w", rule.FromProcess, rule.ToProcess, err)
	}
	return nil
}

func (r *ProcessRepository) UpsertCapacity(ctx context.Context, capacity entities.ProcessCapacity) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO process_capacities (workshop, process, daily_available_hours, standard_work_quota)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workshop, process) DO UPDATE SET
			daily_available_hours = EXCLUDED.daily_available_hours,
			standard_work_quota = EXCLUDED.standard_work_quota`,
		capacity.Workshop, capacity.Process, capacity.DailyAvailableHours, capacity.StandardWorkQuota)
	if err != nil {
		return fmt.Errorf("failed to upsert capacity for %s/%s: %w", capacity.Workshop, capacity.Process, err)
	}
	return nil
}

func (r *ProcessRepository) GetInterval(ctx context.Context, fromProcess, toProcess string) (*entities.ProcessIntervalRule, error) {
	rule := entities.ProcessIntervalRule{FromProcess: fromProcess, ToProcess: toProcess}
	var unit string
	err := r.pool.QueryRow(ctx, `
		SELECT interval_value, interval_unit FROM process_intervals
		WHERE from_process = $1 AND to_process = $2`, fromProcess, toProcess).
		Scan(&rule.IntervalValue, &unit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("interval %s -> %s: %w", fromProcess, toProcess, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get interval %s -> %s: %w", fromProcess, toProcess, err)
	}
	parsed, err := entities.ParseIntervalUnit(unit)
	if err != nil {
		return nil, fmt.Errorf("interval %s -> %s: %w", fromProcess, toProcess, err)
	}
	rule.IntervalUnit = parsed
	return &rule, nil
}

func (r *ProcessRepository) GetCapacity(ctx context.Context, workshop, process string) (*entities.ProcessCapacity, error) {
	capacity := entities.ProcessCapacity{Workshop: workshop, Process: process}
	err := r.pool.QueryRow(ctx, `
		SELECT daily_available_hours, standard_work_quota FROM process_capacities
		WHERE workshop = $1 AND process = $2`, workshop, process).
		Scan(&capacity.DailyAvailableHours, &capacity.StandardWorkQuota)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("capacity for %s/%s: %w", workshop, process, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get capacity for %s/%s: %w", workshop, process, err)
	}
	return &capacity, nil
}

func (r *ProcessRepository) ListCapacities(ctx context.Context, process string) ([]*entities.ProcessCapacity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT workshop, daily_available_hours, standard_work_quota FROM process_capacities
		WHERE process = $1
		ORDER BY workshop`, process)
	if err != nil {
		return nil, fmt.Errorf("failed to query capacities for %s: %w", process, err)
	}
	defer rows.Close()

	capacities := make([]*entities.ProcessCapacity, 0)
	for rows.Next() {
		capacity := entities.ProcessCapacity{Process: process}
		if err := rows.Scan(&capacity.Workshop, &capacity.DailyAvailableHours, &capacity.StandardWorkQuota); err != nil {
			return nil, fmt.Errorf("failed to scan capacity: %w", err)
		}
		capacities = append(capacities, &capacity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate capacities: %w", err)
	}
	return capacities, nil
}
