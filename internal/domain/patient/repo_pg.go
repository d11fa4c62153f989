package patient

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

const patientCols = `id, name, gender, date_of_birth, phone, address, allergy, created_at, updated_at`

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Gender, &p.DateOfBirth.Time, &p.Phone, &p.Address,
		&p.Allergy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.Classify("patient", err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, name, gender, date_of_birth, phone, address, allergy)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Gender, p.DateOfBirth.Time, p.Phone, p.Address, p.Allergy,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.Classify("patient", err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET name=$2, gender=$3, date_of_birth=$4, phone=$5, address=$6, allergy=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Gender, p.DateOfBirth.Time, p.Phone, p.Address, p.Allergy,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.Classify("patient", err)
}

func (r *repoPG) UpdateAllergy(ctx context.Context, id uuid.UUID, allergy *string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET allergy=$2, updated_at=NOW() WHERE id = $1
		RETURNING `+patientCols, id, allergy))
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	q := db.NewQuery("patient", patientCols).OrderBy("name, id")
	if name := strings.TrimSpace(filter.Name); name != "" {
		q.Contains("name", name)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, apperr.Unavailable("count patients", err)
	}

	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, apperr.Unavailable("list patients", err)
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Unavailable("list patients", err)
	}
	return items, total, nil
}
