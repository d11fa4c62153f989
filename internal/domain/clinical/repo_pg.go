package clinical

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

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// -- Vital Signs --

type vitalsRepoPG struct{ pool *pgxpool.Pool }

func NewVitalsRepoPG(pool *pgxpool.Pool) VitalsRepository {
	return &vitalsRepoPG{pool: pool}
}

func (r *vitalsRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const vitalsCols = `v.id, v.appointment_id, v.height, v.weight, v.blood_pressure, v.heart_rate,
	v.temperature, v.spo2, v.recorded_by, v.recorded_at`

func scanVitals(row pgx.Row) (*VitalSigns, error) {
	var v VitalSigns
	err := row.Scan(&v.ID, &v.AppointmentID, &v.Height, &v.Weight, &v.BloodPressure, &v.HeartRate,
		&v.Temperature, &v.SpO2, &v.RecordedBy, &v.RecordedAt)
	if err != nil {
		return nil, db.Classify("vital signs", err)
	}
	return &v, nil
}

// Create inserts the appointment's vitals. A concurrent insert for the same
// appointment turns into an update of the existing row, whose id is returned.
func (r *vitalsRepoPG) Create(ctx context.Context, v *VitalSigns) error {
	v.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vital_signs (id, appointment_id, height, weight, blood_pressure, heart_rate,
			temperature, spo2, recorded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (appointment_id) DO UPDATE SET
			height=EXCLUDED.height, weight=EXCLUDED.weight, blood_pressure=EXCLUDED.blood_pressure,
			heart_rate=EXCLUDED.heart_rate, temperature=EXCLUDED.temperature, spo2=EXCLUDED.spo2,
			recorded_by=EXCLUDED.recorded_by, recorded_at=NOW()
		RETURNING id, recorded_at`,
		v.ID, v.AppointmentID, v.Height, v.Weight, v.BloodPressure, v.HeartRate,
		v.Temperature, v.SpO2, v.RecordedBy,
	).Scan(&v.ID, &v.RecordedAt)
	return db.Classify("vital signs", err)
}

func (r *vitalsRepoPG) Update(ctx context.Context, v *VitalSigns) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE vital_signs SET height=$2, weight=$3, blood_pressure=$4, heart_rate=$5,
			temperature=$6, spo2=$7, recorded_by=$8, recorded_at=NOW()
		WHERE id = $1
		RETURNING appointment_id, recorded_at`,
		v.ID, v.Height, v.Weight, v.BloodPressure, v.HeartRate, v.Temperature, v.SpO2, v.RecordedBy,
	).Scan(&v.AppointmentID, &v.RecordedAt)
	return db.Classify("vital signs", err)
}

func (r *vitalsRepoPG) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*VitalSigns, bool, error) {
	v, err := scanVitals(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vitalsCols+` FROM vital_signs v WHERE v.appointment_id = $1`, appointmentID))
	if apperr.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *vitalsRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*VitalSigns, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+vitalsCols+`
		FROM vital_signs v JOIN appointment a ON a.id = v.appointment_id
		WHERE a.patient_id = $1
		ORDER BY v.recorded_at DESC`, patientID)
	if err != nil {
		return nil, apperr.Unavailable("list vital signs", err)
	}
	defer rows.Close()
	var items []*VitalSigns
	for rows.Next() {
		v, err := scanVitals(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("list vital signs", err)
	}
	return items, nil
}

// recordQuery builds the listing shared by diagnoses and prescriptions.
func recordQuery(table, cols string, f RecordFilter) *db.Query {
	q := db.NewQuery(table+` r JOIN appointment a ON a.id = r.appointment_id`, cols).
		OrderBy("a.date DESC, a.time DESC, r.created_at, r.id")
	if f.PatientID != nil {
		q.Eq("a.patient_id", *f.PatientID)
	}
	if f.AppointmentID != nil {
		q.Eq("r.appointment_id", *f.AppointmentID)
	}
	return q
}

func deleteByID(ctx context.Context, conn queryable, table, entity string, id uuid.UUID) error {
	tag, err := conn.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return db.Classify(entity, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}

// -- Diagnosis --

type diagnosisRepoPG struct{ pool *pgxpool.Pool }

func NewDiagnosisRepoPG(pool *pgxpool.Pool) DiagnosisRepository {
	return &diagnosisRepoPG{pool: pool}
}

func (r *diagnosisRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const diagnosisCols = `r.id, r.appointment_id, r.doctor_id, r.diagnosis, r.created_at, r.updated_at`

func scanDiagnosis(row pgx.Row) (*Diagnosis, error) {
	var d Diagnosis
	if err := row.Scan(&d.ID, &d.AppointmentID, &d.DoctorID, &d.Diagnosis, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, db.Classify("diagnosis", err)
	}
	return &d, nil
}

func (r *diagnosisRepoPG) Create(ctx context.Context, d *Diagnosis) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO diagnosis (id, appointment_id, doctor_id, diagnosis)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		d.ID, d.AppointmentID, d.DoctorID, d.Diagnosis,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return db.Classify("diagnosis", err)
}

func (r *diagnosisRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Diagnosis, error) {
	return scanDiagnosis(r.conn(ctx).QueryRow(ctx, `SELECT `+diagnosisCols+` FROM diagnosis r WHERE r.id = $1`, id))
}

func (r *diagnosisRepoPG) Update(ctx context.Context, d *Diagnosis) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE diagnosis SET appointment_id=$2, doctor_id=$3, diagnosis=$4, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		d.ID, d.AppointmentID, d.DoctorID, d.Diagnosis,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return db.Classify("diagnosis", err)
}

func (r *diagnosisRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.conn(ctx), "diagnosis", "diagnosis", id)
}

func (r *diagnosisRepoPG) List(ctx context.Context, f RecordFilter, limit, offset int) ([]*Diagnosis, int, error) {
	q := recordQuery("diagnosis", diagnosisCols, f)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, apperr.Unavailable("count diagnoses", err)
	}
	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, apperr.Unavailable("list diagnoses", err)
	}
	defer rows.Close()
	var items []*Diagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Unavailable("list diagnoses", err)
	}
	return items, total, nil
}

// -- Prescription --

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const prescriptionCols = `r.id, r.appointment_id, r.doctor_id, r.treatment, r.created_at, r.updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	if err := row.Scan(&p.ID, &p.AppointmentID, &p.DoctorID, &p.Treatment, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, db.Classify("prescription", err)
	}
	return &p, nil
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription (id, appointment_id, doctor_id, treatment)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		p.ID, p.AppointmentID, p.DoctorID, p.Treatment,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.Classify("prescription", err)
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescription r WHERE r.id = $1`, id))
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE prescription SET appointment_id=$2, doctor_id=$3, treatment=$4, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.AppointmentID, p.DoctorID, p.Treatment,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.Classify("prescription", err)
}

func (r *prescriptionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.conn(ctx), "prescription", "prescription", id)
}

func (r *prescriptionRepoPG) List(ctx context.Context, f RecordFilter, limit, offset int) ([]*Prescription, int, error) {
	q := recordQuery("prescription", prescriptionCols, f)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, apperr.Unavailable("count prescriptions", err)
	}
	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, apperr.Unavailable("list prescriptions", err)
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
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Unavailable("list prescriptions", err)
	}
	return items, total, nil
}

func (r *diagnosisRepoPG) ListAll(ctx context.Context, f RecordFilter) ([]*Diagnosis, error) {
	q := recordQuery("diagnosis", diagnosisCols, f)
	rows, err := r.conn(ctx).Query(ctx, q.SQL(), q.Args()...)
	if err != nil {
		return nil, apperr.Unavailable("list diagnoses", err)
	}
	defer rows.Close()
	var items []*Diagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("list diagnoses", err)
	}
	return items, nil
}

func (r *prescriptionRepoPG) ListAll(ctx context.Context, f RecordFilter) ([]*Prescription, error) {
	q := recordQuery("prescription", prescriptionCols, f)
	rows, err := r.conn(ctx).Query(ctx, q.SQL(), q.Args()...)
	if err != nil {
		return nil, apperr.Unavailable("list prescriptions", err)
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("list prescriptions", err)
	}
	return items, nil
}
