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

type saleRepository struct {
	BaseRepository
}

func NewSaleRepository(base BaseRepository) repository.SaleRepository {
	return &saleRepository{base}
}

// Complete moves the patient to completed and inserts the sale row and
// outbox event in the same transaction.
func (r *saleRepository) Complete(ctx context.Context, sale *model.Sale) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := transitionPatientTx(ctx, tx, sale.PatientID,
			model.PatientStatusExaminationComplete,
			model.PatientStatusCompleted,
		); err != nil {
			return err
		}

		query := `
			INSERT INTO sales (
				patient_id, brand, model, color, quantity,
				amount, total, advance, balance,
				fitting_instructions, order_booked_by, delivery_date,
				reference_number, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id
		`
		sale.CreatedAt = time.Now()
		if err := tx.QueryRowContext(ctx, query,
			sale.PatientID,
			sale.Brand,
			sale.Model,
			sale.Color,
			sale.Quantity,
			sale.Amount,
			sale.Total,
			sale.Advance,
			sale.Balance,
			sale.FittingInstructions,
			sale.OrderBookedBy,
			sale.DeliveryDate,
			sale.ReferenceNumber,
			sale.CreatedAt,
		).Scan(&sale.ID); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		payload, err := json.Marshal(sale)
		if err != nil {
			return fmt.Errorf("failed to marshal sale for event: %w", err)
		}
		return createOutboxEventTx(ctx, tx, model.EventSaleCompleted, payload)
	})
}

func (r *saleRepository) GetByPatient(ctx context.Context, patientID int64) (*model.Sale, error) {
	query := `SELECT * FROM sales WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`
	var sale model.Sale
	err := r.db.GetContext(ctx, &sale, query, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("sale", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return &sale, nil
}
