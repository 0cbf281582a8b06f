package record

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/optiplus/clinic-api/internal/model"
	"github.com/optiplus/clinic-api/internal/repository"
)

const (
	patientCacheTTL     = 5 * time.Minute
	patientCacheCleanup = 10 * time.Minute
)

// Service serves the read side: aggregated records for the admin panel and
// patient lookups for reception. Lookups are cached briefly since admins
// refresh far more often than rows change.
type Service struct {
	records  repository.RecordRepository
	patients repository.PatientRepository
	cache    *gocache.Cache
}

func NewService(records repository.RecordRepository, patients repository.PatientRepository) *Service {
	return &Service{
		records:  records,
		patients: patients,
		cache:    gocache.New(patientCacheTTL, patientCacheCleanup),
	}
}

// List returns each patient joined with the latest examination and sale,
// newest first.
func (s *Service) List(ctx context.Context, filters *model.RecordFilters) ([]*model.PatientRecord, error) {
	records, err := s.records.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*model.PatientRecord{}
	}
	return records, nil
}

// Get returns a single patient row, served from cache when fresh.
func (s *Service) Get(ctx context.Context, id int64) (*model.Patient, error) {
	key := cacheKey(id)
	if cached, found := s.cache.Get(key); found {
		if patient, ok := cached.(*model.Patient); ok {
			return patient, nil
		}
	}

	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, patient, gocache.DefaultExpiration)
	return patient, nil
}

// Delete removes the patient row and drops it from the cache. Examinations
// and sales for the patient are removed by the schema's cascade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.patients.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(cacheKey(id))
	log.Info().Int64("patient_id", id).Msg("patient record deleted")
	return nil
}

func cacheKey(id int64) string {
	return fmt.Sprintf("patient:%d", id)
}
