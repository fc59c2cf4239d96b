package consultation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts c. When the appointment already has a consultation it
	// returns a ConflictError carrying the existing id.
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Consultation, error)
	Search(ctx context.Context, f Filter, limit, offset int) ([]*Consultation, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Consultation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, status string) error
}
