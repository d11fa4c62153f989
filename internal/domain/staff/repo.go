package staff

import (
	"context"

	"github.com/google/uuid"
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	// Update leaves the stored credential untouched when d.Credential is empty.
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Availability) (*Doctor, error)
}

type NurseRepository interface {
	Create(ctx context.Context, n *Nurse) error
	GetByID(ctx context.Context, id uuid.UUID) (*Nurse, error)
	GetByEmail(ctx context.Context, email string) (*Nurse, error)
	Update(ctx context.Context, n *Nurse) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Nurse, int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Availability) (*Nurse, error)
}
