package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Search(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
	// UpdateStatus writes status only if the row still holds expected, so
	// two concurrent transitions cannot both succeed.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, status string) error
	// ListApprovedOverlapping returns approved appointments whose
	// [start_time, end_time] intersects [from, to].
	ListApprovedOverlapping(ctx context.Context, from, to time.Time) ([]*Appointment, error)
}
