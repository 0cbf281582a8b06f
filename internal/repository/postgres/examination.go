package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/optiplus/clinic-api/internal/model"
	"github.com/optiplus/clinic-api/internal/repository"
	apperrors "github.com/optiplus/clinic-api/pkg/errors"
)

type examinationRepository struct {
	BaseRepository
}

func NewExaminationRepository(base BaseRepository) repository.ExaminationRepository {
	return &examinationRepository{base}
}

// Complete moves the patient to examination_complete and inserts the
// examination row and outbox event in the same transaction. The status guard
// makes a repeated completion a precondition error instead of a second row.
func (r *examinationRepository) Complete(ctx context.Context, exam *model.Examination) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := transitionPatientTx(ctx, tx, exam.PatientID,
			model.PatientStatusPendingExamination,
			model.PatientStatusExaminationComplete,
		); err != nil {
			return err
		}

		query := `
			INSERT INTO examinations (
				patient_id,
				right_sph, right_cyl, right_axis, right_add, right_va, right_ipd,
				left_sph, left_cyl, left_axis, left_add, left_va, left_ipd,
				clinical_history, optometrist_name, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING id
		`
		exam.CreatedAt = time.Now()
		if err := tx.QueryRowContext(ctx, query,
			exam.PatientID,
			exam.RightSph, exam.RightCyl, exam.RightAxis, exam.RightAdd, exam.RightVA, exam.RightIPD,
			exam.LeftSph, exam.LeftCyl, exam.LeftAxis, exam.LeftAdd, exam.LeftVA, exam.LeftIPD,
			exam.ClinicalHistory,
			exam.OptometristName,
			exam.CreatedAt,
		).Scan(&exam.ID); err != nil {
			return fmt.Errorf("failed to create examination: %w", err)
		}

		payload, err := json.Marshal(exam)
		if err != nil {
			return fmt.Errorf("failed to marshal examination for event: %w", err)
		}
		return createOutboxEventTx(ctx, tx, model.EventExaminationCompleted, payload)
	})
}

func (r *examinationRepository) GetByPatient(ctx context.Context, patientID int64) (*model.Examination, error) {
	query := `SELECT * FROM examinations WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`
	var exam model.Examination
	err := r.db.GetContext(ctx, &exam, query, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("examination", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get examination: %w", err)
	}
	return &exam, nil
}
