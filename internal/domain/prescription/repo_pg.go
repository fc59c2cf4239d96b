package prescription

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

const prescriptionCols = `id, consultation_id, patient_id, doctor_id, medicines,
	to_char(follow_up_date, 'YYYY-MM-DD'), instructions, status, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.ConsultationID, &p.PatientID, &p.DoctorID, &p.Medicines,
		&p.FollowUpDate, &p.Instructions, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()

	var followUp *time.Time
	if p.FollowUpDate != nil {
		d, err := time.Parse(time.DateOnly, *p.FollowUpDate)
		if err != nil {
			return apperr.Validation("follow_up_date must be YYYY-MM-DD")
		}
		followUp = &d
	}

	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription (id, consultation_id, patient_id, doctor_id, medicines,
			follow_up_date, instructions, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		p.ID, p.ConsultationID, p.PatientID, p.DoctorID, p.Medicines,
		followUp, p.Instructions, p.Status).Scan(&p.CreatedAt, &p.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return apperr.Validation("unknown consultation")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("prescription", id.String())
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*Prescription, int, error) {
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
	if f.ConsultationID != nil {
		where += fmt.Sprintf(` AND consultation_id = $%d`, idx)
		args = append(args, *f.ConsultationID)
		idx++
	}
	if f.Status != nil {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, *f.Status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescription`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + prescriptionCols + ` FROM prescription` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, expected, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, expected, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &apperr.ConflictError{Message: "prescription status changed concurrently"}
	}
	return nil
}
