package scheduling

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const (
	apptFrom = `appointment a JOIN patient p ON p.id = a.patient_id`
	apptCols = `a.id, a.patient_id, p.name, a.doctor_id, a.doctor_name, a.date, a.time, a.reason, a.status, a.created_at, a.updated_at`
	apptOrder = `a.date DESC, a.time DESC, a.id`
)

func (r *repoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.DoctorID, &a.DoctorName, &a.Date.Time,
		&a.Time, &a.Reason, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, db.Classify("appointment", err)
	}
	return &a, nil
}

// Writes return the joined row through a data-modifying CTE so the
// patient name is populated in one round trip.

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	got, err := r.scanAppointment(r.conn(ctx).QueryRow(ctx, `
		WITH a AS (
			INSERT INTO appointment (id, patient_id, doctor_id, doctor_name, date, time, reason, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING *
		)
		SELECT `+apptCols+` FROM a JOIN patient p ON p.id = a.patient_id`,
		a.ID, a.PatientID, a.DoctorID, a.DoctorName, a.Date.Time, a.Time, a.Reason, a.Status))
	if err != nil {
		return err
	}
	*a = *got
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM `+apptFrom+` WHERE a.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	got, err := r.scanAppointment(r.conn(ctx).QueryRow(ctx, `
		WITH a AS (
			UPDATE appointment SET patient_id=$2, doctor_id=$3, doctor_name=$4, date=$5, time=$6,
				reason=$7, status=$8, updated_at=NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+apptCols+` FROM a JOIN patient p ON p.id = a.patient_id`,
		a.ID, a.PatientID, a.DoctorID, a.DoctorName, a.Date.Time, a.Time, a.Reason, a.Status))
	if err != nil {
		return err
	}
	*a = *got
	return nil
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, `
		WITH a AS (
			UPDATE appointment SET status=$2, updated_at=NOW() WHERE id = $1 RETURNING *
		)
		SELECT `+apptCols+` FROM a JOIN patient p ON p.id = a.patient_id`, id, status))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	q := db.NewQuery(apptFrom, apptCols).OrderBy(apptOrder)
	if f.PatientID != nil {
		q.Eq("a.patient_id", *f.PatientID)
	}
	if f.DoctorID != nil {
		q.Eq("a.doctor_id", *f.DoctorID)
	}
	if name := strings.TrimSpace(f.DoctorName); name != "" {
		q.Contains("a.doctor_name", name)
	}
	if f.Status != "" {
		q.Eq("a.status", f.Status)
	}
	if !f.Date.IsZero() {
		q.Eq("a.date", f.Date.Time)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, apperr.Unavailable("count appointments", err)
	}
	items, err := r.collect(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	q := db.NewQuery(apptFrom, apptCols).Eq("a.patient_id", patientID).OrderBy(apptOrder)
	return r.collect(ctx, q.SQL(), q.Args()...)
}

func (r *repoPG) collect(ctx context.Context, sql string, args ...interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Unavailable("list appointments", err)
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("list appointments", err)
	}
	return items, nil
}
