package pharmacy

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

type Service struct {
	repo    Repository
	metrics *Metrics
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) CreateMedicine(ctx context.Context, m *Medicine) error {
	if err := normalize(m); err != nil {
		return err
	}
	return s.repo.Create(ctx, m)
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateMedicine(ctx context.Context, m *Medicine) error {
	if err := normalize(m); err != nil {
		return err
	}
	return s.repo.Update(ctx, m)
}

func (s *Service) DeleteMedicine(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListMedicines(ctx context.Context, f ListFilter, limit, offset int) ([]*Medicine, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// UpdateMedicineQuantity applies delta to the stock. A result below zero
// is rejected and nothing is written.
func (s *Service) UpdateMedicineQuantity(ctx context.Context, id uuid.UUID, delta int) (*Medicine, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Quantity+delta < 0 {
		s.metrics.rejected()
		return nil, apperr.Validation("quantity cannot go below zero: have %d, change %d", current.Quantity, delta)
	}
	m, err := s.repo.AdjustQuantity(ctx, id, delta)
	if apperr.IsValidation(err) {
		s.metrics.rejected()
	}
	return m, err
}

func (s *Service) SetMedicineQuantity(ctx context.Context, id uuid.UUID, quantity int) (*Medicine, error) {
	if quantity < 0 {
		s.metrics.rejected()
		return nil, apperr.Validation("quantity cannot be negative")
	}
	return s.repo.SetQuantity(ctx, id, quantity)
}

func normalize(m *Medicine) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Diagnosis = strings.TrimSpace(m.Diagnosis)
	m.PatientSafety = strings.TrimSpace(m.PatientSafety)
	if m.Name == "" {
		return apperr.Validation("name is required")
	}
	if m.Quantity < 0 {
		return apperr.Validation("quantity cannot be negative")
	}
	return nil
}
