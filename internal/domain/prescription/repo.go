package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Search(ctx context.Context, f Filter, limit, offset int) ([]*Prescription, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, status string) error
}
