package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiplus/clinic-api/internal/cache"
	"github.com/optiplus/clinic-api/internal/model"
	apperrors "github.com/optiplus/clinic-api/pkg/errors"
	"github.com/optiplus/clinic-api/pkg/metrics"
)

// fakeDB backs the repository fakes with the same transition guards the
// postgres layer enforces.
type fakeDB struct {
	mu            sync.Mutex
	patients      map[int64]*model.Patient
	exams         map[int64]*model.Examination
	sales         map[int64]*model.Sale
	notifications int
	nextID        int64
	err           error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		patients: make(map[int64]*model.Patient),
		exams:    make(map[int64]*model.Examination),
		sales:    make(map[int64]*model.Sale),
	}
}

type fakePatientRepo struct{ db *fakeDB }

func (r *fakePatientRepo) Register(ctx context.Context, patient *model.Patient) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.err != nil {
		return r.db.err
	}
	r.db.nextID++
	patient.ID = r.db.nextID
	cp := *patient
	r.db.patients[patient.ID] = &cp
	r.db.notifications++
	return nil
}

func (r *fakePatientRepo) Get(ctx context.Context, id int64) (*model.Patient, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", sql.ErrNoRows)
	}
	cp := *p
	return &cp, nil
}

func (r *fakePatientRepo) Delete(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.patients, id)
	return nil
}

func (r *fakePatientRepo) ListActive(ctx context.Context) ([]*model.ActiveExamination, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.ActiveExamination
	for id := int64(1); id <= r.db.nextID; id++ {
		p, ok := r.db.patients[id]
		if !ok || !p.Status.IsActive() {
			continue
		}
		entry := model.NewActiveExamination(p)
		if exam, ok := r.db.exams[id]; ok {
			entry.ApplyExamination(exam)
		}
		out = append(out, entry)
	}
	return out, nil
}

type fakeExamRepo struct{ db *fakeDB }

func (r *fakeExamRepo) Complete(ctx context.Context, exam *model.Examination) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.err != nil {
		return r.db.err
	}
	p, ok := r.db.patients[exam.PatientID]
	if !ok {
		return apperrors.NotFound("patient", sql.ErrNoRows)
	}
	if p.Status != model.PatientStatusPendingExamination {
		return apperrors.Precondition("patient is not pending examination")
	}
	p.Status = model.PatientStatusExaminationComplete
	cp := *exam
	r.db.exams[exam.PatientID] = &cp
	return nil
}

func (r *fakeExamRepo) GetByPatient(ctx context.Context, patientID int64) (*model.Examination, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	exam, ok := r.db.exams[patientID]
	if !ok {
		return nil, apperrors.NotFound("examination", sql.ErrNoRows)
	}
	cp := *exam
	return &cp, nil
}

type fakeSaleRepo struct{ db *fakeDB }

func (r *fakeSaleRepo) Complete(ctx context.Context, sale *model.Sale) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.err != nil {
		return r.db.err
	}
	p, ok := r.db.patients[sale.PatientID]
	if !ok {
		return apperrors.NotFound("patient", sql.ErrNoRows)
	}
	if p.Status != model.PatientStatusExaminationComplete {
		return apperrors.Precondition("patient examination is not complete")
	}
	p.Status = model.PatientStatusCompleted
	cp := *sale
	r.db.sales[sale.PatientID] = &cp
	return nil
}

func (r *fakeSaleRepo) GetByPatient(ctx context.Context, patientID int64) (*model.Sale, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	sale, ok := r.db.sales[patientID]
	if !ok {
		return nil, apperrors.NotFound("sale", sql.ErrNoRows)
	}
	cp := *sale
	return &cp, nil
}

// fakeSender records what the workflow fans out.
type fakeSender struct {
	mu         sync.Mutex
	clients    map[string]bool // id -> doctor
	broadcasts [][]byte
	doctorMsgs [][]byte
	direct     map[string][][]byte
}

func newFakeSender(clientIDs ...string) *fakeSender {
	s := &fakeSender{
		clients: make(map[string]bool),
		direct:  make(map[string][][]byte),
	}
	for _, id := range clientIDs {
		s.clients[id] = false
	}
	return s
}

func (s *fakeSender) Broadcast(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcasts = append(s.broadcasts, payload)
}

func (s *fakeSender) NotifyDoctors(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctorMsgs = append(s.doctorMsgs, payload)
}

func (s *fakeSender) SendTo(clientID string, payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[clientID]; !ok {
		return false
	}
	s.direct[clientID] = append(s.direct[clientID], payload)
	return true
}

func (s *fakeSender) MarkDoctor(clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[clientID]; !ok {
		return false
	}
	s.clients[clientID] = true
	return true
}

func (s *fakeSender) Unregister(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, clientID)
}

func (s *fakeSender) lastBroadcast(t *testing.T) []*model.ActiveExamination {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.broadcasts)
	return decodeSnapshot(t, s.broadcasts[len(s.broadcasts)-1])
}

func decodeSnapshot(t *testing.T, payload []byte) []*model.ActiveExamination {
	t.Helper()
	var env model.Envelope
	require.NoError(t, json.Unmarshal(payload, &env))
	require.Equal(t, model.EventUpdateExaminations, env.Event)
	var entries []*model.ActiveExamination
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	return entries
}

func newTestService(db *fakeDB, sender *fakeSender) *Service {
	return NewService(
		&fakePatientRepo{db: db},
		&fakeExamRepo{db: db},
		&fakeSaleRepo{db: db},
		cache.NewActiveExaminations(),
		sender,
		metrics.New("test"),
	)
}

func registerPatient(t *testing.T, svc *Service, name, mobile string) *model.Patient {
	t.Helper()
	patient, err := svc.SubmitNewPatient(context.Background(), &model.NewPatientRequest{
		Name:   name,
		Mobile: mobile,
	})
	require.NoError(t, err)
	return patient
}

func TestSubmitNewPatient(t *testing.T) {
	db := newFakeDB()
	sender := newFakeSender("doc")
	svc := newTestService(db, sender)
	require.NoError(t, svc.RegisterDoctor("doc"))

	patient := registerPatient(t, svc, "A", "0700000000")

	assert.Equal(t, int64(1), patient.ID)
	assert.Equal(t, model.PatientStatusPendingExamination, patient.Status)
	assert.Equal(t, 1, db.notifications)

	// What went in comes back out, modulo the assigned id.
	stored, err := (&fakePatientRepo{db: db}).Get(context.Background(), patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Name)
	assert.Equal(t, "0700000000", stored.Mobile)

	// Doctor-role clients get the targeted notification.
	require.Len(t, sender.doctorMsgs, 1)
	var env model.Envelope
	require.NoError(t, json.Unmarshal(sender.doctorMsgs[0], &env))
	assert.Equal(t, model.EventNewPatientNotification, env.Event)
	var notif model.NewPatientNotification
	require.NoError(t, json.Unmarshal(env.Data, &notif))
	assert.Equal(t, "New patient: A", notif.Message)
	assert.Equal(t, int64(1), notif.Patient.ID)

	// Everyone gets the snapshot.
	snap := sender.lastBroadcast(t)
	require.Len(t, snap, 1)
	assert.Equal(t, "A", snap[0].Name)
	assert.Equal(t, model.PatientStatusPendingExamination, snap[0].Status)
}

func TestValidationRejectsMissingContact(t *testing.T) {
	db := newFakeDB()
	sender := newFakeSender()
	svc := newTestService(db, sender)

	_, err := svc.SubmitNewPatient(context.Background(), &model.NewPatientRequest{Name: "A"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	// Rejected before any store write or cache mutation.
	assert.Empty(t, db.patients)
	assert.Empty(t, svc.Snapshot())
	assert.Empty(t, sender.broadcasts)
}

func TestPersistenceFailureLeavesCacheUntouched(t *testing.T) {
	db := newFakeDB()
	sender := newFakeSender()
	svc := newTestService(db, sender)
	registerPatient(t, svc, "A", "0700000000")
	broadcastsBefore := len(sender.broadcasts)

	db.err = sql.ErrConnDone
	_, err := svc.SubmitNewPatient(context.Background(), &model.NewPatientRequest{
		Name:   "B",
		Mobile: "0711111111",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrPersistence, apperrors.CodeOf(err))

	assert.Len(t, svc.Snapshot(), 1)
	assert.Len(t, sender.broadcasts, broadcastsBefore)
}

func TestFullWorkflowScenario(t *testing.T) {
	db := newFakeDB()
	sender := newFakeSender("doc")
	svc := newTestService(db, sender)
	require.NoError(t, svc.RegisterDoctor("doc"))

	patient := registerPatient(t, svc, "A", "0700000000")
	require.Equal(t, int64(1), patient.ID)

	err := svc.SubmitExaminationComplete(context.Background(), &model.ExaminationCompleteRequest{
		PatientID: patient.ID,
		ExaminationData: model.ExaminationRequest{
			RightSph:        "+1.25",
			LeftSph:         "+1.00",
			OptometristName: "Dr. Otieno",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.PatientStatusExaminationComplete, db.patients[1].Status)
	snap := sender.lastBroadcast(t)
	require.Len(t, snap, 1)
	assert.Equal(t, model.PatientStatusExaminationComplete, snap[0].Status)
	assert.Equal(t, "+1.25", snap[0].RightSph)
	assert.Equal(t, "Dr. Otieno", snap[0].OptometristName)

	err = svc.SubmitSaleComplete(context.Background(), &model.SalesCompleteRequest{
		PatientID: patient.ID,
		SalesData: model.SaleRequest{
			Amount:        5000,
			Total:         5000,
			Advance:       2000,
			OrderBookedBy: "Grace",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.PatientStatusCompleted, db.patients[1].Status)
	assert.Equal(t, float64(3000), db.sales[1].Balance)
	assert.Empty(t, sender.lastBroadcast(t))
	assert.Empty(t, svc.Snapshot())
}

func TestExaminationCompleteIsNotRepeatable(t *testing.T) {
	db := newFakeDB()
	sender := newFakeSender()
	svc := newTestService(db, sender)
	patient := registerPatient(t, svc, "A", "0700000000")

	req := &model.ExaminationCompleteRequest{
		PatientID:       patient.ID,
		ExaminationData: model.ExaminationRequest{OptometristName: "Dr. Otieno"},
	}
	require.NoError(t, svc.SubmitExaminationComplete(context.Background(), req))

	err := svc.SubmitExaminationComplete(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrPrecondition, apperrors.CodeOf(err))
}

func TestSaleRequiresCompletedExamination(t *testing.T) {
	db := newFakeDB()
	sender := newFakeSender()
	svc := newTestService(db, sender)
	patient := registerPatient(t, svc, "A", "0700000000")

	err := svc.SubmitSaleComplete(context.Background(), &model.SalesCompleteRequest{
		PatientID: patient.ID,
		SalesData: model.SaleRequest{Amount: 100, OrderBookedBy: "Grace"},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrPrecondition, apperrors.CodeOf(err))

	// Failed transition must not evict the entry.
	assert.Len(t, svc.Snapshot(), 1)
}

func TestExaminationForUnknownPatient(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, newFakeSender())

	err := svc.SubmitExaminationComplete(context.Background(), &model.ExaminationCompleteRequest{
		PatientID:       42,
		ExaminationData: model.ExaminationRequest{OptometristName: "Dr. Otieno"},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestRegisterDoctorReceivesOnlyActiveEntries(t *testing.T) {
	db := newFakeDB()
	sender := newFakeSender("late-doc")
	svc := newTestService(db, sender)

	sold := registerPatient(t, svc, "Sold", "0700000001")
	registerPatient(t, svc, "B", "0700000002")
	registerPatient(t, svc, "C", "0700000003")
	registerPatient(t, svc, "D", "0700000004")

	require.NoError(t, svc.SubmitExaminationComplete(context.Background(), &model.ExaminationCompleteRequest{
		PatientID:       sold.ID,
		ExaminationData: model.ExaminationRequest{OptometristName: "Dr. Otieno"},
	}))
	require.NoError(t, svc.SubmitSaleComplete(context.Background(), &model.SalesCompleteRequest{
		PatientID: sold.ID,
		SalesData: model.SaleRequest{Amount: 100, OrderBookedBy: "Grace"},
	}))

	require.NoError(t, svc.RegisterDoctor("late-doc"))

	msgs := sender.direct["late-doc"]
	require.Len(t, msgs, 1)
	snap := decodeSnapshot(t, msgs[0])
	require.Len(t, snap, 3)
	assert.Equal(t, "B", snap[0].Name)
	assert.Equal(t, "C", snap[1].Name)
	assert.Equal(t, "D", snap[2].Name)
}

func TestRebuildRestoresActiveEntries(t *testing.T) {
	db := newFakeDB()
	db.nextID = 3
	db.patients[1] = &model.Patient{ID: 1, Name: "A", Status: model.PatientStatusExaminationComplete}
	db.patients[2] = &model.Patient{ID: 2, Name: "B", Status: model.PatientStatusCompleted}
	db.patients[3] = &model.Patient{ID: 3, Name: "C", Status: model.PatientStatusPendingExamination}
	db.exams[1] = &model.Examination{PatientID: 1, RightSph: "-0.50", OptometristName: "Dr. Otieno"}

	svc := newTestService(db, newFakeSender())
	require.NoError(t, svc.Rebuild(context.Background()))

	snap := svc.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(1), snap[0].ID)
	assert.Equal(t, model.PatientStatusExaminationComplete, snap[0].Status)
	assert.Equal(t, "-0.50", snap[0].RightSph)
	assert.Equal(t, int64(3), snap[1].ID)
}
