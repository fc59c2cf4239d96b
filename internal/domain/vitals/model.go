package vitals

import (
	"time"

	"github.com/google/uuid"
)

// VitalRecord maps to the vital_record table.
type VitalRecord struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PatientID        uuid.UUID `db:"patient_id" json:"patient_id"`
	RecordedBy       uuid.UUID `db:"recorded_by" json:"recorded_by"`
	HeartRate        *int      `db:"heart_rate" json:"heart_rate,omitempty"`
	Systolic         *int      `db:"systolic" json:"systolic,omitempty"`
	Diastolic        *int      `db:"diastolic" json:"diastolic,omitempty"`
	Temperature      *float64  `db:"temperature" json:"temperature,omitempty"`
	OxygenSaturation *int      `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	Weight           *float64  `db:"weight" json:"weight,omitempty"`
	Height           *float64  `db:"height" json:"height,omitempty"`
	Notes            *string   `db:"notes" json:"notes,omitempty"`
	AlertLevel       string    `db:"alert_level" json:"alert_level"`
	AlertReasons     []string  `db:"-" json:"alert_reasons,omitempty"`
	RecordedAt       time.Time `db:"recorded_at" json:"recorded_at"`
}

// RecordRequest carries one set of readings. Ranges reject values no device
// would produce, not clinically abnormal ones.
type RecordRequest struct {
	PatientID        uuid.UUID  `json:"patient_id" validate:"required"`
	HeartRate        *int       `json:"heart_rate" validate:"omitempty,min=10,max=300"`
	Systolic         *int       `json:"systolic" validate:"omitempty,min=40,max=300"`
	Diastolic        *int       `json:"diastolic" validate:"omitempty,min=20,max=200"`
	Temperature      *float64   `json:"temperature" validate:"omitempty,min=25,max=45"`
	OxygenSaturation *int       `json:"oxygen_saturation" validate:"omitempty,min=0,max=100"`
	Weight           *float64   `json:"weight" validate:"omitempty,gt=0,max=500"`
	Height           *float64   `json:"height" validate:"omitempty,gt=0,max=300"`
	Notes            *string    `json:"notes" validate:"omitempty,max=2000"`
	RecordedAt       *time.Time `json:"recorded_at"`
}

func (r RecordRequest) hasMeasurement() bool {
	return r.HeartRate != nil || r.Systolic != nil || r.Diastolic != nil || r.Temperature != nil ||
		r.OxygenSaturation != nil || r.Weight != nil || r.Height != nil
}

type Filter struct {
	PatientID  *uuid.UUID
	AlertLevel *string
}
