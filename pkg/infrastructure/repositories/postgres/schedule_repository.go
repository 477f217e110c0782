package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vsinha/cascade-mrp/pkg/apperrors"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

const entryColumns = `plan_no, source_no, material_code, process_name, workshop, schedule_date,
	standard_work_quota, planned_qty, required_work_hours, daily_scheduled_hours, unscheduled_qty,
	completion_date, status, level, created_at`

// ScheduleRepository persists schedule entries and replenishment lines.
// Uniqueness of (source, material) is enforced by table constraints.
type ScheduleRepository struct {
	pool         *pgxpool.Pool
	planNoPrefix string
}

func NewScheduleRepository(pool *pgxpool.Pool, planNoPrefix string) *ScheduleRepository {
	return &ScheduleRepository{pool: pool, planNoPrefix: planNoPrefix}
}

func (r *ScheduleRepository) NextPlanNo(ctx context.Context) (string, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('plan_no_seq')`).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to reserve plan number: %w", err)
	}
	return fmt.Sprintf("%s%06d", r.planNoPrefix, seq), nil
}

func (r *ScheduleRepository) CreateEntry(ctx context.Context, entry *entities.ScheduleEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO schedule_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		entry.PlanNo,
		entry.SourceNo,
		string(entry.MaterialCode),
		entry.ProcessName,
		entry.Workshop,
		entities.DateOf(entry.ScheduleDate),
		entry.StandardWorkQuota,
		entry.PlannedQty,
		entry.RequiredWorkHours,
		entry.DailyScheduledHours,
		entry.UnscheduledQty,
		entry.CompletionDate,
		entry.Status.String(),
		entry.Level,
		entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("entry %s/%s: %w", entry.SourceNo, entry.MaterialCode, apperrors.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create schedule entry: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) FindEntry(ctx context.Context, sourceNo string, code entities.MaterialCode) (*entities.ScheduleEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+` FROM schedule_entries
		WHERE source_no = $1 AND material_code = $2`, sourceNo, string(code))

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entry %s/%s: %w", sourceNo, code, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find schedule entry: %w", err)
	}
	return entry, nil
}

func (r *ScheduleRepository) BucketHours(ctx context.Context, key entities.BucketKey) (decimal.Decimal, error) {
	var hours decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(required_work_hours), 0) FROM schedule_entries
		WHERE workshop = $1 AND process_name = $2 AND schedule_date = $3`,
		key.Workshop, key.Process, key.Date).Scan(&hours)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum bucket %s: %w", key, err)
	}
	return hours, nil
}

func (r *ScheduleRepository) ListEntries(ctx context.Context) ([]*entities.ScheduleEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM schedule_entries ORDER BY plan_no`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*entities.ScheduleEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedule entries: %w", err)
	}
	return entries, nil
}

func (r *ScheduleRepository) CreateReplenishment(ctx context.Context, line *entities.ReplenishmentLine) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO replenishment_lines (source_doc_no, material_code, shortfall_qty, need_by_date, source_type, level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		line.SourceDocNo, string(line.MaterialCode), line.ShortfallQty, line.NeedByDate,
		line.SourceType.String(), line.Level, line.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("replenishment %s/%s: %w", line.SourceDocNo, line.MaterialCode, apperrors.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create replenishment line: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) ListReplenishments(ctx context.Context) ([]*entities.ReplenishmentLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT source_doc_no, material_code, shortfall_qty, need_by_date, source_type, level, created_at
		FROM replenishment_lines
		ORDER BY source_doc_no, material_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list replenishment lines: %w", err)
	}
	defer rows.Close()

	lines := make([]*entities.ReplenishmentLine, 0)
	for rows.Next() {
		var line entities.ReplenishmentLine
		var code, sourceType string
		if err := rows.Scan(&line.SourceDocNo, &code, &line.ShortfallQty, &line.NeedByDate, &sourceType, &line.Level, &line.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan replenishment line: %w", err)
		}
		st, err := entities.ParseSourceType(sourceType)
		if err != nil {
			return nil, err
		}
		line.MaterialCode = entities.MaterialCode(code)
		line.SourceType = st
		lines = append(lines, &line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replenishment lines: %w", err)
	}
	return lines, nil
}

func scanEntry(row pgx.Row) (*entities.ScheduleEntry, error) {
	var entry entities.ScheduleEntry
	var code, status string
	err := row.Scan(
		&entry.PlanNo,
		&entry.SourceNo,
		&code,
		&entry.ProcessName,
		&entry.Workshop,
		&entry.ScheduleDate,
		&entry.StandardWorkQuota,
		&entry.PlannedQty,
		&entry.RequiredWorkHours,
		&entry.DailyScheduledHours,
		&entry.UnscheduledQty,
		&entry.CompletionDate,
		&status,
		&entry.Level,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	parsed, err := entities.ParseEntryStatus(status)
	if err != nil {
		return nil, err
	}
	entry.MaterialCode = entities.MaterialCode(code)
	entry.Status = parsed
	return &entry, nil
}
