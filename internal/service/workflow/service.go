package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/optiplus/clinic-api/internal/cache"
	"github.com/optiplus/clinic-api/internal/model"
	"github.com/optiplus/clinic-api/internal/repository"
	apperrors "github.com/optiplus/clinic-api/pkg/errors"
	"github.com/optiplus/clinic-api/pkg/metrics"
)

// Sender is the slice of the hub the workflow needs: fan-out to everyone,
// to doctors, or to one client.
type Sender interface {
	Broadcast(payload []byte)
	NotifyDoctors(payload []byte)
	SendTo(clientID string, payload []byte) bool
	MarkDoctor(clientID string) bool
	Unregister(clientID string)
}

// Service is the examination-state broker. It owns the active-examination
// cache and is the only writer to it: every workflow command commits to the
// store first, then mutates the cache and fans the new snapshot out.
type Service struct {
	patients repository.PatientRepository
	exams    repository.ExaminationRepository
	sales    repository.SaleRepository
	active   *cache.ActiveExaminations
	sender   Sender
	validate *validator.Validate
	metrics  *metrics.Metrics

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewService(
	patients repository.PatientRepository,
	exams repository.ExaminationRepository,
	sales repository.SaleRepository,
	active *cache.ActiveExaminations,
	sender Sender,
	m *metrics.Metrics,
) *Service {
	return &Service{
		patients: patients,
		exams:    exams,
		sales:    sales,
		active:   active,
		sender:   sender,
		validate: validator.New(),
		metrics:  m,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// lockPatient serializes commands per patient id. Two commands for the same
// patient can otherwise both pass the status guard check before either
// commits.
func (s *Service) lockPatient(id int64) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Rebuild reloads the active-examination cache from the store. Called once
// at startup so a restart does not blank the panels.
func (s *Service) Rebuild(ctx context.Context) error {
	entries, err := s.patients.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild active examinations: %w", err)
	}
	for _, entry := range entries {
		s.active.Put(entry)
	}
	s.metrics.ActiveEntries.Set(float64(s.active.Len()))
	log.Info().Int("entries", len(entries)).Msg("active examination cache rebuilt")
	return nil
}

// RegisterDoctor flags the client as a doctor and sends it the current
// snapshot, so a late-joining doctor sees every patient still in flight.
func (s *Service) RegisterDoctor(clientID string) error {
	if !s.sender.MarkDoctor(clientID) {
		return apperrors.Validation("unknown client", nil)
	}
	payload, err := encode(model.EventUpdateExaminations, s.active.Snapshot())
	if err != nil {
		return err
	}
	s.sender.SendTo(clientID, payload)
	s.metrics.WorkflowEvents.WithLabelValues(model.EventRegisterAsDoctor, "ok").Inc()
	return nil
}

// SubmitNewPatient validates and persists a registration, then creates the
// cache entry, notifies doctors and broadcasts the snapshot. Nothing is
// mutated in memory unless the store write committed.
func (s *Service) SubmitNewPatient(ctx context.Context, req *model.NewPatientRequest) (*model.Patient, error) {
	if err := s.validate.Struct(req); err != nil {
		s.metrics.WorkflowEvents.WithLabelValues(model.EventNewPatient, "invalid").Inc()
		return nil, apperrors.Validation("invalid patient registration", err)
	}

	patient := req.ToPatient()
	if err := s.patients.Register(ctx, patient); err != nil {
		s.metrics.WorkflowEvents.WithLabelValues(model.EventNewPatient, "error").Inc()
		return nil, apperrors.Persistence("failed to register patient", err)
	}

	entry := model.NewActiveExamination(patient)
	s.active.Put(entry)
	s.metrics.ActiveEntries.Set(float64(s.active.Len()))

	if payload, err := encode(model.EventNewPatientNotification, &model.NewPatientNotification{
		Patient: entry,
		Message: fmt.Sprintf("New patient: %s", patient.Name),
	}); err == nil {
		s.sender.NotifyDoctors(payload)
	} else {
		log.Error().Err(err).Msg("failed to encode new patient notification")
	}

	s.broadcastSnapshot()
	s.metrics.WorkflowEvents.WithLabelValues(model.EventNewPatient, "ok").Inc()
	log.Info().Int64("patient_id", patient.ID).Str("name", patient.Name).Msg("patient registered")
	return patient, nil
}

// SubmitExaminationComplete records the doctor's results for a patient in
// pending_examination, patches the cache entry and broadcasts.
func (s *Service) SubmitExaminationComplete(ctx context.Context, req *model.ExaminationCompleteRequest) error {
	if err := s.validate.Struct(req); err != nil {
		s.metrics.WorkflowEvents.WithLabelValues(model.EventExaminationComplete, "invalid").Inc()
		return apperrors.Validation("invalid examination payload", err)
	}

	unlock := s.lockPatient(req.PatientID)
	defer unlock()

	exam := req.ExaminationData.ToExamination(req.PatientID)
	if err := s.exams.Complete(ctx, exam); err != nil {
		s.metrics.WorkflowEvents.WithLabelValues(model.EventExaminationComplete, "error").Inc()
		return err
	}

	if !s.active.Patch(req.PatientID, func(e *model.ActiveExamination) {
		e.ApplyExamination(exam)
	}) {
		// Entry can be missing if the patient predates the last rebuild.
		patient, err := s.patients.Get(ctx, req.PatientID)
		if err != nil {
			log.Error().Err(err).Int64("patient_id", req.PatientID).Msg("cache entry missing and patient reload failed")
		} else {
			entry := model.NewActiveExamination(patient)
			entry.ApplyExamination(exam)
			s.active.Put(entry)
		}
	}

	s.broadcastSnapshot()
	s.metrics.WorkflowEvents.WithLabelValues(model.EventExaminationComplete, "ok").Inc()
	log.Info().Int64("patient_id", req.PatientID).Str("optometrist", exam.OptometristName).Msg("examination completed")
	return nil
}

// SubmitSaleComplete books the closing order for a patient in
// examination_complete, evicts the cache entry and broadcasts.
func (s *Service) SubmitSaleComplete(ctx context.Context, req *model.SalesCompleteRequest) error {
	if err := s.validate.Struct(req); err != nil {
		s.metrics.WorkflowEvents.WithLabelValues(model.EventSalesComplete, "invalid").Inc()
		return apperrors.Validation("invalid sale payload", err)
	}

	unlock := s.lockPatient(req.PatientID)
	defer unlock()

	sale := req.SalesData.ToSale(req.PatientID)
	if err := s.sales.Complete(ctx, sale); err != nil {
		s.metrics.WorkflowEvents.WithLabelValues(model.EventSalesComplete, "error").Inc()
		return err
	}

	s.active.Remove(req.PatientID)
	s.metrics.ActiveEntries.Set(float64(s.active.Len()))

	s.broadcastSnapshot()
	s.metrics.WorkflowEvents.WithLabelValues(model.EventSalesComplete, "ok").Inc()
	log.Info().Int64("patient_id", req.PatientID).Str("reference", sale.ReferenceNumber).Float64("balance", sale.Balance).Msg("sale completed")
	return nil
}

// Disconnect drops the client from the hub. Active examinations are shared
// state, so nothing else changes: the visit stays in flight.
func (s *Service) Disconnect(clientID string) {
	s.sender.Unregister(clientID)
}

// Snapshot returns the current active entries in arrival order.
func (s *Service) Snapshot() []*model.ActiveExamination {
	return s.active.Snapshot()
}

func (s *Service) broadcastSnapshot() {
	timer := prometheus.NewTimer(s.metrics.BroadcastLatency)
	defer timer.ObserveDuration()

	payload, err := encode(model.EventUpdateExaminations, s.active.Snapshot())
	if err != nil {
		log.Error().Err(err).Msg("failed to encode snapshot")
		return
	}
	s.sender.Broadcast(payload)
}

func encode(event string, data interface{}) ([]byte, error) {
	env, err := model.NewEnvelope(event, data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	return json.Marshal(env)
}
