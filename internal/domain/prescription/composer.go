package prescription

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/apperr"
)

// MedicineInput is one row as entered on the prescription form.
type MedicineInput struct {
	MedicineName string  `json:"medicine_name" validate:"max=200"`
	Dosage       string  `json:"dosage" validate:"max=200"`
	Frequency    string  `json:"frequency" validate:"max=200"`
	Duration     string  `json:"duration" validate:"max=200"`
	Instructions *string `json:"instructions,omitempty" validate:"omitempty,max=1000"`
}

// Medicine is a complete row. Instructions is always present, possibly empty.
type Medicine struct {
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

// Draft is the unvalidated prescription form.
type Draft struct {
	ConsultationID *uuid.UUID      `json:"consultationId"`
	Medicines      []MedicineInput `json:"medicines" validate:"max=50,dive"`
	FollowUpDate   *string         `json:"follow_up_date"`
	Instructions   *string         `json:"instructions" validate:"omitempty,max=4000"`
}

// Payload is a validated prescription ready to be stored.
type Payload struct {
	ConsultationID uuid.UUID  `json:"consultationId"`
	Medicines      []Medicine `json:"medicines"`
	FollowUpDate   *string    `json:"follow_up_date,omitempty"`
	Instructions   *string    `json:"instructions,omitempty"`
}

const (
	msgNoConsultation = "select a consultation"
	msgNoMedicines    = "at least one complete medicine entry required"
)

// Compose validates d and assembles the payload. Incomplete medicine rows are
// dropped; today bounds the follow-up date.
func Compose(d Draft, today time.Time) (Payload, error) {
	if d.ConsultationID == nil || *d.ConsultationID == uuid.Nil {
		return Payload{}, apperr.Validation(msgNoConsultation)
	}

	meds := make([]Medicine, 0, len(d.Medicines))
	for _, in := range d.Medicines {
		m := Medicine{
			MedicineName: strings.TrimSpace(in.MedicineName),
			Dosage:       strings.TrimSpace(in.Dosage),
			Frequency:    strings.TrimSpace(in.Frequency),
			Duration:     strings.TrimSpace(in.Duration),
		}
		if m.MedicineName == "" || m.Dosage == "" || m.Frequency == "" || m.Duration == "" {
			continue
		}
		if in.Instructions != nil {
			m.Instructions = strings.TrimSpace(*in.Instructions)
		}
		meds = append(meds, m)
	}
	if len(meds) == 0 {
		return Payload{}, apperr.Validation(msgNoMedicines)
	}

	p := Payload{ConsultationID: *d.ConsultationID, Medicines: meds}

	if d.FollowUpDate != nil {
		if raw := strings.TrimSpace(*d.FollowUpDate); raw != "" {
			day, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				return Payload{}, apperr.Validation("follow_up_date must be YYYY-MM-DD")
			}
			if raw < today.Format(time.DateOnly) {
				return Payload{}, apperr.Validation("follow_up_date cannot be in the past")
			}
			normalized := day.Format(time.DateOnly)
			p.FollowUpDate = &normalized
		}
	}
	if d.Instructions != nil {
		if v := strings.TrimSpace(*d.Instructions); v != "" {
			p.Instructions = &v
		}
	}
	return p, nil
}
