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

// BOMRepository reads materials and BOM lines from PostgreSQL
type BOMRepository struct {
	pool *pgxpool.Pool
}

func NewBOMRepository(pool *pgxpool.Pool) *BOMRepository {
	return &BOMRepository{pool: pool}
}

// UpsertMaterial inserts or renames a material
func (r *BOMRepository) UpsertMaterial(ctx context.Context, material entities.Material) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO materials (code, name, unit) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, unit = EXCLUDED.unit`,
		string(material.Code), material.Name, material.Unit)
	if err != nil {
		return fmt.Errorf("failed to upsert material %s: %w", material.Code, err)
	}
	return nil
}

// UpsertBOMLine inserts or replaces the line for a parent/child pair.
// Both materials are registered so they count as known.
func (r *BOMRepository) UpsertBOMLine(ctx context.Context, line entities.BOMLine) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	for _, code := range []entities.MaterialCode{line.ParentCode, line.ChildCode} {
		if _, err := tx.Exec(ctx, `INSERT INTO materials (code) VALUES ($1) ON CONFLICT (code) DO NOTHING`, string(code)); err != nil {
			return fmt.Errorf("failed to register material %s: %w", code, err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bom_lines (parent_code, child_code, child_name, usage_per_parent, source_type, output_process, workshop, level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (parent_code, child_code) DO UPDATE SET
			child_name = EXCLUDED.child_name,
			usage_per_parent = EXCLUDED.usage_per_parent,
			source_type = EXCLUDED.source_type,
			output_process = EXCLUDED.output_process,
			workshop = EXCLUDED.workshop,
			level = EXCLUDED.level`,
		string(line.ParentCode), string(line.ChildCode), line.ChildName, line.UsagePerParent,
		line.SourceType.String(), line.OutputProcess, line.Workshop, line.Level)
	if err != nil {
		return fmt.Errorf("failed to upsert bom line %s -> %s: %w", line.ParentCode, line.ChildCode, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *BOMRepository) GetMaterial(ctx context.Context, code entities.MaterialCode) (*entities.Material, error) {
	var material entities.Material
	var rawCode string
	err := r.pool.QueryRow(ctx, `SELECT code, name, unit FROM materials WHERE code = $1`, string(code)).
		Scan(&rawCode, &material.Name, &material.Unit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("material %s: %w", code, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get material %s: %w", code, err)
	}
	material.Code = entities.MaterialCode(rawCode)
	return &material, nil
}

func (r *BOMRepository) GetBOMLines(ctx context.Context, parentCode entities.MaterialCode) ([]*entities.BOMLine, error) {
	if _, err := r.GetMaterial(ctx, parentCode); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT parent_code, child_code, child_name, usage_per_parent, source_type, output_process, workshop, level
		FROM bom_lines
		WHERE parent_code = $1
		ORDER BY child_code`, string(parentCode))
	if err != nil {
		return nil, fmt.Errorf("failed to query bom lines for %s: %w", parentCode, err)
	}
	return scanBOMLines(rows)
}

func (r *BOMRepository) GetAllBOMLines(ctx context.Context) ([]*entities.BOMLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT parent_code, child_code, child_name, usage_per_parent, source_type, output_process, workshop, level
		FROM bom_lines
		ORDER BY parent_code, child_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bom lines: %w", err)
	}
	return scanBOMLines(rows)
}

func scanBOMLines(rows pgx.Rows) ([]*entities.BOMLine, error) {
	defer rows.Close()

	lines := make([]*entities.BOMLine, 0)
	for rows.Next() {
		var line entities.BOMLine
		var parent, child, sourceType string
		if err := rows.Scan(&parent, &child, &line.ChildName, &line.UsagePerParent, &sourceType, &line.OutputProcess, &line.Workshop, &line.Level); err != nil {
			return nil, fmt.Errorf("failed to scan bom line: %w", err)
		}
		st, err := entities.ParseSourceType(sourceType)
		if err != nil {
			return nil, fmt.Errorf("bom line %s -> %s: %w", parent, child, err)
		}
		line.ParentCode = entities.MaterialCode(parent)
		line.ChildCode = entities.MaterialCode(child)
		line.SourceType = st
		lines = append(lines, &line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bom lines: %w", err)
	}
	return lines, nil
}
