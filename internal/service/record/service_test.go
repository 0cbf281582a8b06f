package record

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiplus/clinic-api/internal/model"
	apperrors "github.com/optiplus/clinic-api/pkg/errors"
)

type fakeRecordRepo struct {
	records []*model.PatientRecord
	filters *model.RecordFilters
	err     error
}

func (r *fakeRecordRepo) List(ctx context.Context, filters *model.RecordFilters) ([]*model.PatientRecord, error) {
	r.filters = filters
	return r.records, r.err
}

type fakePatientRepo struct {
	patients map[int64]*model.Patient
	gets     int
	deletes  int
}

func (r *fakePatientRepo) Register(ctx context.Context, patient *model.Patient) error { return nil }

func (r *fakePatientRepo) Get(ctx context.Context, id int64) (*model.Patient, error) {
	r.gets++
	p, ok := r.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", sql.ErrNoRows)
	}
	return p, nil
}

func (r *fakePatientRepo) Delete(ctx context.Context, id int64) error {
	r.deletes++
	if _, ok := r.patients[id]; !ok {
		return apperrors.NotFound("patient", sql.ErrNoRows)
	}
	delete(r.patients, id)
	return nil
}

func (r *fakePatientRepo) ListActive(ctx context.Context) ([]*model.ActiveExamination, error) {
	return nil, nil
}

func TestListReturnsEmptySliceNotNil(t *testing.T) {
	svc := NewService(&fakeRecordRepo{}, &fakePatientRepo{})

	records, err := svc.List(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestGetCachesPatient(t *testing.T) {
	patients := &fakePatientRepo{patients: map[int64]*model.Patient{
		1: {ID: 1, Name: "A"},
	}}
	svc := NewService(&fakeRecordRepo{}, patients)

	first, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, patients.gets)
}

func TestGetNotFound(t *testing.T) {
	svc := NewService(&fakeRecordRepo{}, &fakePatientRepo{patients: map[int64]*model.Patient{}})

	_, err := svc.Get(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestDeleteInvalidatesCache(t *testing.T) {
	patients := &fakePatientRepo{patients: map[int64]*model.Patient{
		1: {ID: 1, Name: "A"},
	}}
	svc := NewService(&fakeRecordRepo{}, patients)

	_, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 1))

	_, err = svc.Get(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
	assert.Equal(t, 2, patients.gets)
}
