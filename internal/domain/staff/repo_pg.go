package staff

import (
	"context"

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

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const doctorCols = `id, name, email, specialization, phone, status, credential, created_at, updated_at`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Specialization, &d.Phone, &d.Status, &d.Credential,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, db.Classify("doctor", err)
	}
	d.DisplayName = DisplayName(d.Name)
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor (id, name, email, specialization, phone, status, credential)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Email, d.Specialization, d.Phone, d.Status, d.Credential,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return db.Classify("doctor", err)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE lower(email) = lower($1)`, email))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE doctor SET name=$2, email=$3, specialization=$4, phone=$5, status=$6,
			credential=COALESCE(NULLIF($7, ''), credential), updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Email, d.Specialization, d.Phone, d.Status, d.Credential,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return db.Classify("doctor", err)
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor WHERE id = $1`, id)
	if err != nil {
		return db.Classify("doctor", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor")
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor`).Scan(&total); err != nil {
		return nil, 0, apperr.Unavailable("count doctors", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+` FROM doctor ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, apperr.Unavailable("list doctors", err)
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *doctorRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status Availability) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `
		UPDATE doctor SET status=$2, updated_at=NOW() WHERE id = $1
		RETURNING `+doctorCols, id, status))
}

// =========== Nurse Repository ===========

type nurseRepoPG struct{ pool *pgxpool.Pool }

func NewNurseRepoPG(pool *pgxpool.Pool) NurseRepository {
	return &nurseRepoPG{pool: pool}
}

func (r *nurseRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const nurseCols = `id, name, email, phone, status, credential, created_at, updated_at`

func (r *nurseRepoPG) scanNurse(row pgx.Row) (*Nurse, error) {
	var n Nurse
	err := row.Scan(&n.ID, &n.Name, &n.Email, &n.Phone, &n.Status, &n.Credential, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, db.Classify("nurse", err)
	}
	return &n, nil
}

func (r *nurseRepoPG) Create(ctx context.Context, n *Nurse) error {
	n.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO nurse (id, name, email, phone, status, credential)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		n.ID, n.Name, n.Email, n.Phone, n.Status, n.Credential,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	return db.Classify("nurse", err)
}

func (r *nurseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Nurse, error) {
	return r.scanNurse(r.conn(ctx).QueryRow(ctx, `SELECT `+nurseCols+` FROM nurse WHERE id = $1`, id))
}

func (r *nurseRepoPG) GetByEmail(ctx context.Context, email string) (*Nurse, error) {
	return r.scanNurse(r.conn(ctx).QueryRow(ctx, `SELECT `+nurseCols+` FROM nurse WHERE lower(email) = lower($1)`, email))
}

func (r *nurseRepoPG) Update(ctx context.Context, n *Nurse) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE nurse SET name=$2, email=$3, phone=$4, status=$5,
			credential=COALESCE(NULLIF($6, ''), credential), updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		n.ID, n.Name, n.Email, n.Phone, n.Status, n.Credential,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	return db.Classify("nurse", err)
}

func (r *nurseRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM nurse WHERE id = $1`, id)
	if err != nil {
		return db.Classify("nurse", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("nurse")
	}
	return nil
}

func (r *nurseRepoPG) List(ctx context.Context, limit, offset int) ([]*Nurse, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM nurse`).Scan(&total); err != nil {
		return nil, 0, apperr.Unavailable("count nurses", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+nurseCols+` FROM nurse ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, apperr.Unavailable("list nurses", err)
	}
	defer rows.Close()
	var items []*Nurse
	for rows.Next() {
		n, err := r.scanNurse(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *nurseRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status Availability) (*Nurse, error) {
	return r.scanNurse(r.conn(ctx).QueryRow(ctx, `
		UPDATE nurse SET status=$2, updated_at=NOW() WHERE id = $1
		RETURNING `+nurseCols, id, status))
}
