package postgres

import (
	"context"
	"fmt"

	"github.com/intisalud/hospital-api/internal/model"
)

const medicationColumns = `
	id, code, name, generic_name, form, concentration, active,
	created_at, updated_at, deleted_at
`

const examTypeColumns = `
	id, code, name, category, needs_fasting, fasting_hours, active,
	created_at, updated_at, deleted_at
`

func (r *catalogRepository) SearchMedications(ctx context.Context, query string, limit int) ([]*model.Medication, error) {
	q := `
		SELECT ` + medicationColumns + `
		FROM medications
		WHERE active = TRUE AND deleted_at IS NULL
		AND (name ILIKE $1 OR generic_name ILIKE $1 OR code ILIKE $1)
		ORDER BY name
		LIMIT $2
	`
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var meds []*model.Medication
	if err := r.db.SelectContext(ctx, &meds, q, "%"+query+"%", limit); err != nil {
		return nil, fmt.Errorf("failed to search medications: %w", err)
	}
	return meds, nil
}

func (r *catalogRepository) GetMedicationByCode(ctx context.Context, code string) (*model.Medication, error) {
	q := `SELECT ` + medicationColumns + ` FROM medications WHERE code = $1 AND deleted_at IS NULL`

	var med model.Medication
	if err := r.db.GetContext(ctx, &med, q, code); err != nil {
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}
	return &med, nil
}

func (r *catalogRepository) SearchExamTypes(ctx context.Context, query string, category model.LineCategory, limit int) ([]*model.ExamType, error) {
	q := `
		SELECT ` + examTypeColumns + `
		FROM exam_types
		WHERE active = TRUE AND deleted_at IS NULL
	`
	args := []interface{}{}
	argCount := 1

	if query != "" {
		q += fmt.Sprintf(" AND (name ILIKE $%d OR code ILIKE $%d)", argCount, argCount)
		args = append(args, "%"+query+"%")
		argCount++
	}
	if category != "" {
		q += fmt.Sprintf(" AND category = $%d", argCount)
		args = append(args, category)
		argCount++
	}

	if limit <= 0 || limit > 100 {
		limit = 25
	}
	q += fmt.Sprintf(" ORDER BY name LIMIT $%d", argCount)
	args = append(args, limit)

	var exams []*model.ExamType
	if err := r.db.SelectContext(ctx, &exams, q, args...); err != nil {
		return nil, fmt.Errorf("failed to search exam types: %w", err)
	}
	return exams, nil
}

func (r *catalogRepository) GetExamTypeByCode(ctx context.Context, code string) (*model.ExamType, error) {
	q := `SELECT ` + examTypeColumns + ` FROM exam_types WHERE code = $1 AND deleted_at IS NULL`

	var exam model.ExamType
	if err := r.db.GetContext(ctx, &exam, q, code); err != nil {
		return nil, fmt.Errorf("failed to get exam type: %w", err)
	}
	return &exam, nil
}

func (r *catalogRepository) ListExamCategories(ctx context.Context) ([]string, error) {
	q := `
		SELECT DISTINCT category
		FROM exam_types
		WHERE active = TRUE AND deleted_at IS NULL
		ORDER BY category
	`
	var categories []string
	if err := r.db.SelectContext(ctx, &categories, q); err != nil {
		return nil, fmt.Errorf("failed to list exam categories: %w", err)
	}
	return categories, nil
}
