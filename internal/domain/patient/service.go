package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/pkg/civil"
)

var validGenders = map[string]Gender{
	"male":   GenderMale,
	"female": GenderFemale,
	"other":  GenderOther,
}

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := normalize(p); err != nil {
		return err
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := normalize(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

// UpdateAllergy replaces the allergy note. A blank note clears it.
func (s *Service) UpdateAllergy(ctx context.Context, id uuid.UUID, allergy string) (*Patient, error) {
	var note *string
	if trimmed := strings.TrimSpace(allergy); trimmed != "" {
		note = &trimmed
	}
	return s.patients.UpdateAllergy(ctx, id, note)
}

func (s *Service) ListPatients(ctx context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, filter, limit, offset)
}

func normalize(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperr.Validation("name is required")
	}
	g, ok := validGenders[strings.ToLower(strings.TrimSpace(string(p.Gender)))]
	if !ok {
		return apperr.Validation("gender must be Male, Female or Other")
	}
	p.Gender = g
	if p.DateOfBirth.IsZero() {
		return apperr.Validation("date_of_birth is required")
	}
	if p.DateOfBirth.After(civil.Today()) {
		return apperr.Validation("date_of_birth cannot be in the future")
	}
	if p.Allergy != nil {
		if trimmed := strings.TrimSpace(*p.Allergy); trimmed == "" {
			p.Allergy = nil
		} else {
			p.Allergy = &trimmed
		}
	}
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
	return nil
}
