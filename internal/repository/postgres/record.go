package postgres

import (
	"context"
	"fmt"

	"github.com/optiplus/clinic-api/internal/model"
	"github.com/optiplus/clinic-api/internal/repository"
)

const defaultRecordLimit = 50

type recordRepository struct {
	BaseRepository
}

func NewRecordRepository(base BaseRepository) repository.RecordRepository {
	return &recordRepository{base}
}

// List joins each patient with its latest examination and sale, newest
// patients first.
func (r *recordRepository) List(ctx context.Context, filters *model.RecordFilters) ([]*model.PatientRecord, error) {
	query := `
		SELECT
			p.*,
			e.right_sph, e.right_cyl, e.right_axis, e.right_add, e.right_va, e.right_ipd,
			e.left_sph, e.left_cyl, e.left_axis, e.left_add, e.left_va, e.left_ipd,
			e.clinical_history, e.optometrist_name,
			s.brand, s.model, s.color, s.amount, s.total, s.advance, s.balance,
			s.reference_number
		FROM patients p
		LEFT JOIN LATERAL (
			SELECT * FROM examinations
			WHERE patient_id = p.id
			ORDER BY created_at DESC LIMIT 1
		) e ON true
		LEFT JOIN LATERAL (
			SELECT * FROM sales
			WHERE patient_id = p.id
			ORDER BY created_at DESC LIMIT 1
		) s ON true
	`
	args := []interface{}{}

	if filters == nil {
		filters = &model.RecordFilters{}
	}
	where := ""
	if filters.Status != "" {
		args = append(args, filters.Status)
		where = fmt.Sprintf(" WHERE p.status = $%d", len(args))
	}
	if !filters.StartDate.IsZero() {
		args = append(args, filters.StartDate)
		where = appendCond(where, fmt.Sprintf("p.created_at >= $%d", len(args)))
	}
	if !filters.EndDate.IsZero() {
		args = append(args, filters.EndDate)
		where = appendCond(where, fmt.Sprintf("p.created_at <= $%d", len(args)))
	}

	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = defaultRecordLimit
	}
	args = append(args, limit)

	query += where + fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d", len(args))

	var records []*model.PatientRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

func appendCond(where, cond string) string {
	if where == "" {
		return " WHERE " + cond
	}
	return where + " AND " + cond
}
