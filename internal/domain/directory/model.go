package directory

import (
	"time"

	"github.com/google/uuid"
)

// Patient and Doctor ids are the account ids of the users they belong to, so
// a session's UserID addresses its own record directly.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Age       *int      `db:"age" json:"age,omitempty"`
	Gender    *string   `db:"gender" json:"gender,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type CreatePatientRequest struct {
	ID     *uuid.UUID `json:"id"`
	Name   string     `json:"name" validate:"required,max=200"`
	Age    *int       `json:"age" validate:"omitempty,min=0,max=150"`
	Gender *string    `json:"gender" validate:"omitempty,oneof=male female other"`
	Phone  *string    `json:"phone" validate:"omitempty,max=32"`
}

type CreateDoctorRequest struct {
	ID             *uuid.UUID `json:"id"`
	Name           string     `json:"name" validate:"required,max=200"`
	Specialization *string    `json:"specialization" validate:"omitempty,max=120"`
}
