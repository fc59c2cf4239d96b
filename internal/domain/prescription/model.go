package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Prescription statuses.
const (
	StatusActive    = "active"
	StatusDispensed = "dispensed"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

type Prescription struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConsultationID uuid.UUID  `db:"consultation_id" json:"consultationId"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Medicines      []Medicine `db:"medicines" json:"medicines"`
	FollowUpDate   *string    `db:"follow_up_date" json:"follow_up_date,omitempty"`
	Instructions   *string    `db:"instructions" json:"instructions,omitempty"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *Prescription) IsParticipant(user uuid.UUID) bool {
	return user != uuid.Nil && (p.PatientID == user || p.DoctorID == user)
}

type Filter struct {
	PatientID      *uuid.UUID
	DoctorID       *uuid.UUID
	ConsultationID *uuid.UUID
	Status         *string
}
