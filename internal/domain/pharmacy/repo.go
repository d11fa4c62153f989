package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)
	Update(ctx context.Context, m *Medicine) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Medicine, int, error)
	// AdjustQuantity adds delta in a single statement and fails with a
	// validation error, leaving the row untouched, if the result would be
	// negative.
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*Medicine, error)
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int) (*Medicine, error)
}
