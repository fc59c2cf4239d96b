package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/carelink/internal/platform/apperr"
	"github.com/carelink/carelink/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const apptCols = `a.id, a.patient_id, a.doctor_id, to_char(a.date, 'YYYY-MM-DD'), a.time,
	a.start_time, a.end_time, a.status, a.reason_for_visit, a.created_at, a.updated_at,
	p.name, p.age, p.gender, d.name, d.specialization`

const apptFrom = ` FROM appointment a
	LEFT JOIN patient p ON p.id = a.patient_id
	LEFT JOIN doctor d ON d.id = a.doctor_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.Time,
		&a.StartTime, &a.EndTime, &a.Status, &a.ReasonForVisit, &a.CreatedAt, &a.UpdatedAt,
		&a.Patient.Name, &a.Patient.Age, &a.Patient.Gender, &a.Doctor.Name, &a.Doctor.Specialization)
	a.Patient.ID = a.PatientID
	a.Doctor.ID = a.DoctorID
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()

	var date *time.Time
	if a.Date != nil {
		d, err := time.Parse(time.DateOnly, *a.Date)
		if err != nil {
			return apperr.Validation("date must be YYYY-MM-DD")
		}
		date = &d
	}

	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, doctor_id, date, time, start_time, end_time,
			status, reason_for_visit)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, date, a.Time, a.StartTime, a.EndTime,
		a.Status, a.ReasonForVisit).Scan(&a.CreatedAt, &a.UpdatedAt)
	switch {
	case db.IsForeignKeyViolation(err):
		return apperr.Validation("unknown patient or doctor")
	case db.IsCheckViolation(err):
		return apperr.Validation("start_time must not be after end_time")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+apptFrom+` WHERE a.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("appointment", id.String())
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		where += fmt.Sprintf(` AND a.patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.DoctorID != nil {
		where += fmt.Sprintf(` AND a.doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.Status != nil {
		// filter on the normalized spelling so legacy rows match
		if *f.Status == StatusUnknown {
			where += fmt.Sprintf(` AND NOT (lower(trim(a.status)) = ANY($%d))`, idx)
			args = append(args, AllRawValues())
		} else {
			where += fmt.Sprintf(` AND lower(trim(a.status)) = ANY($%d)`, idx)
			args = append(args, f.Status.RawValues())
		}
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + apptFrom + where +
		fmt.Sprintf(` ORDER BY a.start_time DESC NULLS LAST, a.created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	items, err := r.collect(ctx, query, args...)
	return items, total, err
}

func (r *repoPG) collect(ctx context.Context, query string, args ...interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, expected, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, expected, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &apperr.ConflictError{Message: "appointment status changed concurrently"}
	}
	return nil
}

func (r *repoPG) ListApprovedOverlapping(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	return r.collect(ctx, `SELECT `+apptCols+apptFrom+`
		WHERE lower(trim(a.status)) = ANY($1)
		  AND a.start_time <= $3 AND a.end_time >= $2
		ORDER BY a.start_time`,
		StatusApproved.RawValues(), from, to)
}
