package vitals

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

const vitalCols = `id, patient_id, recorded_by, heart_rate, systolic, diastolic, temperature,
	oxygen_saturation, weight, height, notes, alert_level, recorded_at`

func scanVital(row pgx.Row) (*VitalRecord, error) {
	var v VitalRecord
	err := row.Scan(&v.ID, &v.PatientID, &v.RecordedBy, &v.HeartRate, &v.Systolic, &v.Diastolic,
		&v.Temperature, &v.OxygenSaturation, &v.Weight, &v.Height, &v.Notes, &v.AlertLevel, &v.RecordedAt)
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *VitalRecord) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vital_record (id, patient_id, recorded_by, heart_rate, systolic, diastolic,
			temperature, oxygen_saturation, weight, height, notes, alert_level, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		v.ID, v.PatientID, v.RecordedBy, v.HeartRate, v.Systolic, v.Diastolic,
		v.Temperature, v.OxygenSaturation, v.Weight, v.Height, v.Notes, v.AlertLevel, v.RecordedAt)
	if db.IsForeignKeyViolation(err) {
		return apperr.Validation("unknown patient")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*VitalRecord, error) {
	v, err := scanVital(r.conn(ctx).QueryRow(ctx, `SELECT `+vitalCols+` FROM vital_record WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("vital record", id.String())
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *repoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*VitalRecord, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.AlertLevel != nil {
		where += fmt.Sprintf(` AND alert_level = $%d`, idx)
		args = append(args, *f.AlertLevel)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vital_record`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + vitalCols + ` FROM vital_record` + where +
		fmt.Sprintf(` ORDER BY recorded_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*VitalRecord
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}
