package consultation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/carelink/internal/platform/apperr"
	"github.com/carelink/carelink/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const consultationCols = `id, appointment_id, patient_id, doctor_id, consultation_status,
	COALESCE(symptoms, '{}'), diagnosis, doctor_notes, COALESCE(recommended_tests, '{}'),
	consultation_date, created_at, updated_at`

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.AppointmentID, &c.PatientID, &c.DoctorID, &c.Status,
		&c.Symptoms, &c.Diagnosis, &c.DoctorNotes, &c.RecommendedTests,
		&c.ConsultationDate, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *repoPG) Create(ctx context.Context, c *Consultation) error {
	c.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultation (id, appointment_id, patient_id, doctor_id, consultation_status,
			symptoms, diagnosis, doctor_notes, recommended_tests, consultation_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (appointment_id) DO NOTHING
		RETURNING created_at, updated_at`,
		c.ID, c.AppointmentID, c.PatientID, c.DoctorID, c.Status,
		nonNil(c.Symptoms), c.Diagnosis, c.DoctorNotes, nonNil(c.RecommendedTests),
		c.ConsultationDate).Scan(&c.CreatedAt, &c.UpdatedAt)
	if db.IsNoRows(err) {
		existing, lookupErr := r.GetByAppointment(ctx, c.AppointmentID)
		if lookupErr != nil {
			return fmt.Errorf("resolve existing consultation: %w", lookupErr)
		}
		return Duplicate(existing)
	}
	if db.IsForeignKeyViolation(err) {
		return apperr.Validation("unknown appointment, patient or doctor")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := scanConsultation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+consultationCols+` FROM consultation WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("consultation", id.String())
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Consultation, error) {
	c, err := scanConsultation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+consultationCols+` FROM consultation WHERE appointment_id = $1`, appointmentID))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("consultation for appointment", appointmentID.String())
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*Consultation, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.DoctorID != nil {
		where += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.AppointmentID != nil {
		where += fmt.Sprintf(` AND appointment_id = $%d`, idx)
		args = append(args, *f.AppointmentID)
		idx++
	}
	if f.Status != nil {
		where += fmt.Sprintf(` AND upper(trim(consultation_status)) = $%d`, idx)
		args = append(args, NormalizeStatus(*f.Status))
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consultation`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + consultationCols + ` FROM consultation` + where +
		fmt.Sprintf(` ORDER BY consultation_date DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	items, err := r.collect(ctx, query, args...)
	return items, total, err
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Consultation, error) {
	return r.collect(ctx, `SELECT `+consultationCols+` FROM consultation
		WHERE doctor_id = $1 ORDER BY consultation_date DESC`, doctorID)
}

func (r *repoPG) collect(ctx context.Context, query string, args ...interface{}) ([]*Consultation, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, expected, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE consultation SET consultation_status = $3, updated_at = NOW()
		WHERE id = $1 AND consultation_status = $2`,
		id, expected, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &apperr.ConflictError{Message: "consultation status changed concurrently"}
	}
	return nil
}
