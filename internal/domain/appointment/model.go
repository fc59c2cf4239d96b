package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a patient or doctor reference. Name and the other details
// are present when the referenced record exists.
type Participant struct {
	ID             uuid.UUID `json:"id"`
	Name           *string   `json:"name,omitempty"`
	Specialization *string   `json:"specialization,omitempty"`
	Age            *int      `json:"age,omitempty"`
	Gender         *string   `json:"gender,omitempty"`
}

type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"-"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"-"`
	// Date is the calendar day, YYYY-MM-DD.
	Date *string `db:"date" json:"date,omitempty"`
	// Time is the free-text slot carried by legacy rows.
	Time           *string    `db:"time" json:"time,omitempty"`
	StartTime      *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndTime        *time.Time `db:"end_time" json:"end_time,omitempty"`
	Status         string     `db:"status" json:"status"`
	ReasonForVisit *string    `db:"reason_for_visit" json:"reason_for_visit,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	Patient Participant `json:"patient"`
	Doctor  Participant `json:"doctor"`
}

// View is what the API returns: the stored record plus its canonical status
// and gate output at the time of the request.
type View struct {
	*Appointment
	CanonicalStatus Status      `json:"canonical_status"`
	Eligibility     Eligibility `json:"eligibility"`
}

func NewView(a *Appointment, now time.Time) *View {
	return &View{
		Appointment:     a,
		CanonicalStatus: Normalize(a.Status),
		Eligibility:     Evaluate(a.StartTime, a.EndTime, now),
	}
}

// IsParticipant reports whether user is the patient or doctor of a.
func (a *Appointment) IsParticipant(user uuid.UUID) bool {
	return user != uuid.Nil && (a.PatientID == user || a.DoctorID == user)
}

// Counterpart returns the other participant of user.
func (a *Appointment) Counterpart(user uuid.UUID) uuid.UUID {
	if a.PatientID == user {
		return a.DoctorID
	}
	return a.PatientID
}

type BookRequest struct {
	// PatientID defaults to the caller for patient sessions.
	PatientID      *uuid.UUID `json:"patient_id"`
	DoctorID       uuid.UUID  `json:"doctor_id" validate:"required"`
	Date           *string    `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime      *time.Time `json:"start_time" validate:"required"`
	EndTime        *time.Time `json:"end_time" validate:"required"`
	ReasonForVisit *string    `json:"reason_for_visit" validate:"omitempty,max=2000"`
}

// Filter narrows appointment listings.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
}

// CallTicket is what a participant needs to place the call once joining is
// allowed.
type CallTicket struct {
	Room        string    `json:"room"`
	TargetID    uuid.UUID `json:"target_id"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func RoomName(id uuid.UUID) string { return "appointment:" + id.String() }
