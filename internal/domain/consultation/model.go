package consultation

import (
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/apperr"
)

type Consultation struct {
	ID               uuid.UUID `db:"id" json:"id"`
	AppointmentID    uuid.UUID `db:"appointment_id" json:"appointment_id"`
	PatientID        uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID         uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Status           string    `db:"consultation_status" json:"consultation_status"`
	Symptoms         []string  `db:"symptoms" json:"symptoms"`
	Diagnosis        *string   `db:"diagnosis" json:"diagnosis,omitempty"`
	DoctorNotes      *string   `db:"doctor_notes" json:"doctor_notes,omitempty"`
	RecommendedTests []string  `db:"recommended_tests" json:"recommended_tests"`
	ConsultationDate time.Time `db:"consultation_date" json:"consultation_date"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

func (c *Consultation) IsParticipant(user uuid.UUID) bool {
	return user != uuid.Nil && (c.PatientID == user || c.DoctorID == user)
}

// Location is the API path of the consultation.
func Location(id uuid.UUID) string { return "/api/v1/consultations/" + id.String() }

// Duplicate is the conflict returned when the appointment already has a
// consultation; clients follow Location to it.
func Duplicate(existing *Consultation) error {
	return &apperr.ConflictError{
		Message:    "a consultation already exists for this appointment",
		ExistingID: existing.ID.String(),
		Location:   Location(existing.ID),
	}
}

type CreateRequest struct {
	AppointmentID    uuid.UUID `json:"appointment_id" validate:"required"`
	Symptoms         []string  `json:"symptoms" validate:"omitempty,dive,max=500"`
	Diagnosis        *string   `json:"diagnosis" validate:"omitempty,max=4000"`
	DoctorNotes      *string   `json:"doctor_notes" validate:"omitempty,max=8000"`
	RecommendedTests []string  `json:"recommended_tests" validate:"omitempty,dive,max=500"`
}

type StatusRequest struct {
	Status string `json:"consultation_status" validate:"required"`
}

type Filter struct {
	PatientID     *uuid.UUID
	DoctorID      *uuid.UUID
	AppointmentID *uuid.UUID
	// Status matches the normalized consultation_status.
	Status *string
}
