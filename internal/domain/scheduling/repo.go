package scheduling

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Appointment, int, error)
	// ListByPatient returns every appointment of the patient, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
}
