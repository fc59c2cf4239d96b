package vitals

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *VitalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*VitalRecord, error)
	Search(ctx context.Context, f Filter, limit, offset int) ([]*VitalRecord, int, error)
}
