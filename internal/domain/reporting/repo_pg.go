package reporting

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/civil"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
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

func (r *repoPG) DiseaseTrendRaw(ctx context.Context) ([]RawDiseaseRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT diagnosis, COUNT(*) FROM diagnosis
		GROUP BY diagnosis
		ORDER BY MIN(created_at), diagnosis`)
	if err != nil {
		return nil, apperr.Unavailable("disease trends", err)
	}
	defer rows.Close()
	var result []RawDiseaseRow
	for rows.Next() {
		var row RawDiseaseRow
		var n int64
		if err := rows.Scan(&row.Diagnosis, &n); err != nil {
			return nil, apperr.Unavailable("disease trends", err)
		}
		row.Count = Count(n)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("disease trends", err)
	}
	return result, nil
}

func (r *repoPG) Dashboard(ctx context.Context, today civil.Date) (*Dashboard, error) {
	var d Dashboard
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patient),
			(SELECT COUNT(*) FROM doctor),
			(SELECT COUNT(*) FROM nurse),
			(SELECT COUNT(*) FROM appointment WHERE date = $1),
			(SELECT COUNT(*) FROM appointment WHERE date = $1 AND status = 'Check-in'),
			(SELECT COUNT(*) FROM medicine WHERE quantity < $2)`,
		today.Time, LowStockThreshold,
	).Scan(&d.Patients, &d.Doctors, &d.Nurses, &d.AppointmentsToday, &d.CheckedInToday, &d.LowStockMedicines)
	if err != nil {
		return nil, apperr.Unavailable("dashboard", err)
	}
	return &d, nil
}

// Evaluate runs a measure and returns its rows keyed by column name.
func (r *repoPG) Evaluate(ctx context.Context, m *MeasureDefinition) ([]map[string]interface{}, error) {
	rows, err := r.conn(ctx).Query(ctx, m.SQL)
	if err != nil {
		return nil, apperr.Unavailable("measure "+m.ID, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, apperr.Unavailable("measure "+m.ID, err)
		}
		row := make(map[string]interface{}, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("measure "+m.ID, err)
	}
	return results, nil
}
