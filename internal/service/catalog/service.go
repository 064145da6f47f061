package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/internal/repository"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
)

const defaultTTL = 15 * time.Minute

// Service serves the medication and exam catalogs. Code lookups sit on the
// document creation path, so they run through an in-process TTL cache;
// catalog rows change rarely and staleness here is harmless, unlike bed or
// document state which is never cached.
type Service struct {
	repo  repository.CatalogRepository
	cache *cache.Cache
}

func NewService(repo repository.CatalogRepository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Service{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (s *Service) SearchMedications(ctx context.Context, query string, limit int) ([]*model.Medication, error) {
	if query == "" {
		return nil, apperrors.NewValidation("search query is required")
	}
	meds, err := s.repo.SearchMedications(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search medications: %w", err)
	}
	return meds, nil
}

func (s *Service) GetMedicationByCode(ctx context.Context, code string) (*model.Medication, error) {
	key := "medication:" + code
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.Medication), nil
	}

	med, err := s.repo.GetMedicationByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundf("medication %s", code)
		}
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}

	s.cache.Set(key, med, cache.DefaultExpiration)
	return med, nil
}

func (s *Service) SearchExamTypes(ctx context.Context, query string, category model.LineCategory, limit int) ([]*model.ExamType, error) {
	if query == "" && category == "" {
		return nil, apperrors.NewValidation("search query or category is required")
	}
	exams, err := s.repo.SearchExamTypes(ctx, query, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search exam types: %w", err)
	}
	return exams, nil
}

func (s *Service) GetExamTypeByCode(ctx context.Context, code string) (*model.ExamType, error) {
	key := "exam:" + code
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.ExamType), nil
	}

	exam, err := s.repo.GetExamTypeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundf("exam type %s", code)
		}
		return nil, fmt.Errorf("failed to get exam type: %w", err)
	}

	s.cache.Set(key, exam, cache.DefaultExpiration)
	return exam, nil
}

func (s *Service) ListExamCategories(ctx context.Context) ([]string, error) {
	const key = "exam:categories"
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]string), nil
	}

	categories, err := s.repo.ListExamCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list exam categories: %w", err)
	}

	s.cache.Set(key, categories, cache.DefaultExpiration)
	return categories, nil
}

// MedicationName resolves a code for document line enrichment; unknown codes
// return "" so the caller can decide how strict to be.
func (s *Service) MedicationName(ctx context.Context, code string) (string, error) {
	med, err := s.GetMedicationByCode(ctx, code)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if !med.Active {
		return "", nil
	}
	return med.Name, nil
}

// ExamName resolves an exam code the same way MedicationName does.
func (s *Service) ExamName(ctx context.Context, code string) (string, error) {
	exam, err := s.GetExamTypeByCode(ctx, code)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if !exam.Active {
		return "", nil
	}
	return exam.Name, nil
}
