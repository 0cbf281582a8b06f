package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/optiplus/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// PatientRepository handles the patient lifecycle. Register persists the
	// patient together with its "new patient" notification and outbox event
	// in a single transaction.
	PatientRepository interface {
		Register(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id int64) (*model.Patient, error)
		Delete(ctx context.Context, id int64) error
		ListActive(ctx context.Context) ([]*model.ActiveExamination, error)
	}

	// ExaminationRepository persists the doctor's results. Complete guards
	// the pending_examination -> examination_complete transition and applies
	// it atomically with the insert.
	ExaminationRepository interface {
		Complete(ctx context.Context, exam *model.Examination) error
		GetByPatient(ctx context.Context, patientID int64) (*model.Examination, error)
	}

	// SaleRepository persists the closing order. Complete guards the
	// examination_complete -> completed transition.
	SaleRepository interface {
		Complete(ctx context.Context, sale *model.Sale) error
		GetByPatient(ctx context.Context, patientID int64) (*model.Sale, error)
	}

	// RecordRepository serves the admin read surface.
	RecordRepository interface {
		List(ctx context.Context, filters *model.RecordFilters) ([]*model.PatientRecord, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
