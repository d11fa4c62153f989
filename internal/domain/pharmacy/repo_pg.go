package pharmacy

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

const medicineCols = `id, name, diagnosis, patient_safety, quantity, created_at, updated_at`

func (r *repoPG) scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Diagnosis, &m.PatientSafety, &m.Quantity, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, db.Classify("medicine", err)
	}
	return &m, nil
}

func (r *repoPG) Create(ctx context.Context, m *Medicine) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medicine (id, name, diagnosis, patient_safety, quantity)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		m.ID, m.Name, m.Diagnosis, m.PatientSafety, m.Quantity,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	return db.Classify("medicine", err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return r.scanMedicine(r.conn(ctx).QueryRow(ctx, `SELECT `+medicineCols+` FROM medicine WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *Medicine) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medicine SET name=$2, diagnosis=$3, patient_safety=$4, quantity=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		m.ID, m.Name, m.Diagnosis, m.PatientSafety, m.Quantity,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	return db.Classify("medicine", err)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medicine WHERE id = $1`, id)
	if err != nil {
		return db.Classify("medicine", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("medicine")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Medicine, int, error) {
	q := db.NewQuery("medicine", medicineCols).OrderBy("lower(name), id")
	if name := strings.TrimSpace(filter.Name); name != "" {
		q.Contains("name", name)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, apperr.Unavailable("count medicines", err)
	}
	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, apperr.Unavailable("list medicines", err)
	}
	defer rows.Close()
	var items []*Medicine
	for rows.Next() {
		m, err := r.scanMedicine(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Unavailable("list medicines", err)
	}
	return items, total, nil
}

func (r *repoPG) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*Medicine, error) {
	m, err := r.scanMedicine(r.conn(ctx).QueryRow(ctx, `
		UPDATE medicine SET quantity = quantity + $2, updated_at=NOW()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING `+medicineCols, id, delta))
	if !apperr.IsNotFound(err) {
		return m, err
	}
	// No row matched: either the medicine is gone or the guard held.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, apperr.Validation("quantity cannot go below zero")
}

func (r *repoPG) SetQuantity(ctx context.Context, id uuid.UUID, quantity int) (*Medicine, error) {
	return r.scanMedicine(r.conn(ctx).QueryRow(ctx, `
		UPDATE medicine SET quantity=$2, updated_at=NOW() WHERE id = $1
		RETURNING `+medicineCols, id, quantity))
}
