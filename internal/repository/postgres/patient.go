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

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

// Register inserts the patient row, its "new patient" notification and the
// outbox event in one transaction. The store assigns the id.
func (r *patientRepository) Register(ctx context.Context, patient *model.Patient) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO patients (
				name, date_of_birth, mobile, occupation, gender, email,
				pobox_no, pin_code, area, previous_rx, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		`
		patient.CreatedAt = time.Now()
		patient.UpdatedAt = patient.CreatedAt

		if err := tx.QueryRowContext(ctx, query,
			patient.Name,
			patient.DateOfBirth,
			patient.Mobile,
			patient.Occupation,
			patient.Gender,
			patient.Email,
			patient.PoboxNo,
			patient.PinCode,
			patient.Area,
			patient.PreviousRx,
			patient.Status,
			patient.CreatedAt,
			patient.UpdatedAt,
		).Scan(&patient.ID); err != nil {
			return fmt.Errorf("failed to create patient: %w", err)
		}

		notificationQuery := `
			INSERT INTO notifications (patient_id, message, type, created_at)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, notificationQuery,
			patient.ID,
			fmt.Sprintf("New patient: %s", patient.Name),
			model.NotificationTypeNewPatient,
			time.Now(),
		); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}

		payload, err := json.Marshal(patient)
		if err != nil {
			return fmt.Errorf("failed to marshal patient for event: %w", err)
		}
		return createOutboxEventTx(ctx, tx, model.EventPatientRegistered, payload)
	})
}

func (r *patientRepository) Get(ctx context.Context, id int64) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

// Delete hard-deletes the patient row. Examination, sale and notification
// rows go with it via the schema's cascade.
func (r *patientRepository) Delete(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete patient: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return apperrors.NotFound("patient", sql.ErrNoRows)
		}

		payload, err := json.Marshal(map[string]int64{"id": id})
		if err != nil {
			return fmt.Errorf("failed to marshal patient id for event: %w", err)
		}
		return createOutboxEventTx(ctx, tx, model.EventPatientDeleted, payload)
	})
}

// ListActive loads every patient still in the active workflow states with
// the examination joined in, ordered by arrival. Used to rebuild the
// in-memory projection at startup.
func (r *patientRepository) ListActive(ctx context.Context) ([]*model.ActiveExamination, error) {
	query := `
		SELECT
			p.*,
			e.right_sph, e.right_cyl, e.right_axis, e.right_add, e.right_va, e.right_ipd,
			e.left_sph, e.left_cyl, e.left_axis, e.left_add, e.left_va, e.left_ipd,
			e.clinical_history, e.optometrist_name
		FROM patients p
		LEFT JOIN examinations e ON p.id = e.patient_id
		WHERE p.status IN ($1, $2)
		ORDER BY p.created_at ASC, p.id ASC
	`
	var rows []*model.PatientRecord
	err := r.db.SelectContext(ctx, &rows, query,
		model.PatientStatusPendingExamination,
		model.PatientStatusExaminationComplete,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active patients: %w", err)
	}

	entries := make([]*model.ActiveExamination, 0, len(rows))
	for _, row := range rows {
		entry := model.NewActiveExamination(&row.Patient)
		if row.Status == model.PatientStatusExaminationComplete {
			entry.ApplyExamination(&model.Examination{
				PatientID:       row.ID,
				RightSph:        deref(row.RightSph),
				RightCyl:        deref(row.RightCyl),
				RightAxis:       deref(row.RightAxis),
				RightAdd:        deref(row.RightAdd),
				RightVA:         deref(row.RightVA),
				RightIPD:        deref(row.RightIPD),
				LeftSph:         deref(row.LeftSph),
				LeftCyl:         deref(row.LeftCyl),
				LeftAxis:        deref(row.LeftAxis),
				LeftAdd:         deref(row.LeftAdd),
				LeftVA:          deref(row.LeftVA),
				LeftIPD:         deref(row.LeftIPD),
				ClinicalHistory: deref(row.ClinicalHistory),
				OptometristName: deref(row.OptometristName),
			})
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
