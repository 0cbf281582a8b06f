package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/optiplus/clinic-api/internal/model"
	apperrors "github.com/optiplus/clinic-api/pkg/errors"
)

// transitionPatientTx moves a patient from one workflow status to the next,
// guarding the precondition inside the transaction. A patient in any other
// status leaves the row untouched and yields a precondition error.
func transitionPatientTx(ctx context.Context, tx *sqlx.Tx, patientID int64, from, to model.PatientStatus) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE patients SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, time.Now(), patientID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var current model.PatientStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM patients WHERE id = $1`, patientID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("patient", err)
	}
	if err != nil {
		return fmt.Errorf("failed to read patient status: %w", err)
	}
	return apperrors.Precondition(fmt.Sprintf("patient %d is %s, expected %s", patientID, current, from))
}
