package clinical

import (
	"context"

	"github.com/google/uuid"
)

type VitalsRepository interface {
	Create(ctx context.Context, v *VitalSigns) error
	Update(ctx context.Context, v *VitalSigns) error
	// FindByAppointment reports found=false, not an error, when the
	// appointment has no vitals yet.
	FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*VitalSigns, bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*VitalSigns, error)
}

type DiagnosisRepository interface {
	Create(ctx context.Context, d *Diagnosis) error
	GetByID(ctx context.Context, id uuid.UUID) (*Diagnosis, error)
	Update(ctx context.Context, d *Diagnosis) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f RecordFilter, limit, offset int) ([]*Diagnosis, int, error)
	ListAll(ctx context.Context, f RecordFilter) ([]*Diagnosis, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f RecordFilter, limit, offset int) ([]*Prescription, int, error)
	ListAll(ctx context.Context, f RecordFilter) ([]*Prescription, error)
}
