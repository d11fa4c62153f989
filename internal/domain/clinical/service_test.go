package clinical

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

// -- Mock Repositories --

type mockVitalsRepo struct {
	byID      map[uuid.UUID]*VitalSigns
	patientOf map[uuid.UUID]uuid.UUID
	missing   map[uuid.UUID]bool
	findErr   error
	writeErr  error
}

// missingAppointment is what the store reports when a row references an
// appointment that does not exist.
func missingAppointment(entity, table string) error {
	return db.Classify(entity, &pgconn.PgError{
		Code:           "23503",
		Message:        `insert or update on table "` + table + `" violates foreign key constraint`,
		TableName:      table,
		ConstraintName: table + "_appointment_id_fkey",
	})
}

func newMockVitalsRepo() *mockVitalsRepo {
	return &mockVitalsRepo{byID: make(map[uuid.UUID]*VitalSigns), patientOf: make(map[uuid.UUID]uuid.UUID)}
}

func (m *mockVitalsRepo) Create(_ context.Context, v *VitalSigns) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.missing[v.AppointmentID] {
		return missingAppointment("vital signs", "vital_signs")
	}
	for _, existing := range m.byID {
		if existing.AppointmentID == v.AppointmentID {
			return apperr.Validation("duplicate vitals for appointment")
		}
	}
	v.ID = uuid.New()
	v.RecordedAt = time.Now()
	cp := *v
	m.byID[v.ID] = &cp
	return nil
}

func (m *mockVitalsRepo) Update(_ context.Context, v *VitalSigns) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.byID[v.ID]; !ok {
		return apperr.NotFound("vital signs")
	}
	v.RecordedAt = time.Now()
	cp := *v
	m.byID[v.ID] = &cp
	return nil
}

func (m *mockVitalsRepo) FindByAppointment(_ context.Context, appointmentID uuid.UUID) (*VitalSigns, bool, error) {
	if m.findErr != nil {
		return nil, false, m.findErr
	}
	for _, v := range m.byID {
		if v.AppointmentID == appointmentID {
			cp := *v
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func (m *mockVitalsRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*VitalSigns, error) {
	var result []*VitalSigns
	for _, v := range m.byID {
		if m.patientOf[v.AppointmentID] == patientID {
			result = append(result, v)
		}
	}
	return result, nil
}

type mockDiagnosisRepo struct {
	records map[uuid.UUID]*Diagnosis
	missing map[uuid.UUID]bool
}

func (m *mockDiagnosisRepo) Create(_ context.Context, d *Diagnosis) error {
	if m.missing[d.AppointmentID] {
		return missingAppointment("diagnosis", "diagnosis")
	}
	d.ID = uuid.New()
	cp := *d
	m.records[d.ID] = &cp
	return nil
}

func (m *mockDiagnosisRepo) GetByID(_ context.Context, id uuid.UUID) (*Diagnosis, error) {
	d, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("diagnosis")
	}
	return d, nil
}

func (m *mockDiagnosisRepo) Update(_ context.Context, d *Diagnosis) error {
	if _, ok := m.records[d.ID]; !ok {
		return apperr.NotFound("diagnosis")
	}
	cp := *d
	m.records[d.ID] = &cp
	return nil
}

func (m *mockDiagnosisRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.records[id]; !ok {
		return apperr.NotFound("diagnosis")
	}
	delete(m.records, id)
	return nil
}

func (m *mockDiagnosisRepo) List(ctx context.Context, f RecordFilter, limit, offset int) ([]*Diagnosis, int, error) {
	items, _ := m.ListAll(ctx, f)
	return items, len(items), nil
}

func (m *mockDiagnosisRepo) ListAll(_ context.Context, f RecordFilter) ([]*Diagnosis, error) {
	var result []*Diagnosis
	for _, d := range m.records {
		if f.AppointmentID != nil && d.AppointmentID != *f.AppointmentID {
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

type mockPrescriptionRepo struct {
	records map[uuid.UUID]*Prescription
}

func (m *mockPrescriptionRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	cp := *p
	m.records[p.ID] = &cp
	return nil
}

func (m *mockPrescriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	p, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("prescription")
	}
	return p, nil
}

func (m *mockPrescriptionRepo) Update(_ context.Context, p *Prescription) error {
	if _, ok := m.records[p.ID]; !ok {
		return apperr.NotFound("prescription")
	}
	cp := *p
	m.records[p.ID] = &cp
	return nil
}

func (m *mockPrescriptionRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.records[id]; !ok {
		return apperr.NotFound("prescription")
	}
	delete(m.records, id)
	return nil
}

func (m *mockPrescriptionRepo) List(ctx context.Context, f RecordFilter, limit, offset int) ([]*Prescription, int, error) {
	items, _ := m.ListAll(ctx, f)
	return items, len(items), nil
}

func (m *mockPrescriptionRepo) ListAll(_ context.Context, f RecordFilter) ([]*Prescription, error) {
	var result []*Prescription
	for _, p := range m.records {
		if f.AppointmentID != nil && p.AppointmentID != *f.AppointmentID {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func newTestService() (*Service, *mockVitalsRepo) {
	vitals := newMockVitalsRepo()
	svc := NewService(vitals,
		&mockDiagnosisRepo{records: make(map[uuid.UUID]*Diagnosis)},
		&mockPrescriptionRepo{records: make(map[uuid.UUID]*Prescription)})
	return svc, vitals
}

func ptr[T any](v T) *T { return &v }

func TestRecordOrUpdateVitals_KeepsOneRecord(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	appt := uuid.New()

	first, err := svc.RecordOrUpdateVitals(ctx, appt, &VitalSigns{HeartRate: ptr(72), SpO2: ptr(97)})
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.RecordOrUpdateVitals(ctx, appt, &VitalSigns{HeartRate: ptr(88), Temperature: ptr(37.2)})
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if len(repo.byID) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(repo.byID))
	}
	if second.ID != first.ID {
		t.Error("expected the existing record to be updated in place")
	}
	got, err := svc.GetVitals(ctx, appt)
	if err != nil {
		t.Fatal(err)
	}
	if *got.HeartRate != 88 || *got.Temperature != 37.2 {
		t.Errorf("expected latest values, got %+v", got)
	}
	if got.SpO2 != nil {
		t.Errorf("expected spo2 from the first call to be replaced, got %d", *got.SpO2)
	}
}

func TestRecordOrUpdateVitals_Validation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	tests := []struct {
		name string
		in   *VitalSigns
	}{
		{"empty", &VitalSigns{}},
		{"spo2 over 100", &VitalSigns{SpO2: ptr(101)}},
		{"negative weight", &VitalSigns{Weight: ptr(-3.0)}},
		{"fahrenheit", &VitalSigns{Temperature: ptr(98.6)}},
		{"bad blood pressure", &VitalSigns{BloodPressure: ptr("high")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.RecordOrUpdateVitals(ctx, uuid.New(), tt.in); !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
	if len(repo.byID) != 0 {
		t.Errorf("rejected input must not be stored, got %d records", len(repo.byID))
	}
}

func TestRecordOrUpdateVitals_TemperatureIsCelsius(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.RecordOrUpdateVitals(ctx, uuid.New(), &VitalSigns{Temperature: ptr(98.6)})
	if !apperr.IsValidation(err) || !strings.Contains(err.Error(), "Celsius") {
		t.Fatalf("expected a Celsius validation error for 98.6, got %v", err)
	}
	v, err := svc.RecordOrUpdateVitals(ctx, uuid.New(), &VitalSigns{Temperature: ptr(37.0)})
	if err != nil {
		t.Fatalf("expected 37.0 to be accepted, got %v", err)
	}
	if *v.Temperature != 37.0 {
		t.Errorf("expected temperature 37.0, got %v", *v.Temperature)
	}
}

func TestRecordOrUpdateVitals_NormalizesBloodPressure(t *testing.T) {
	svc, _ := newTestService()
	v, err := svc.RecordOrUpdateVitals(context.Background(), uuid.New(), &VitalSigns{BloodPressure: ptr(" 120 / 80 ")})
	if err != nil {
		t.Fatal(err)
	}
	if *v.BloodPressure != "120/80" {
		t.Errorf("expected 120/80, got %q", *v.BloodPressure)
	}
}

func TestRecordOrUpdateVitals_StoreFailureSurfaces(t *testing.T) {
	svc, repo := newTestService()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	svc.WithMetrics(m)

	repo.writeErr = apperr.Unavailable("vital signs", errors.New("timeout"))
	if _, err := svc.RecordOrUpdateVitals(context.Background(), uuid.New(), &VitalSigns{HeartRate: ptr(60)}); !apperr.IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if got := testutil.ToFloat64(m.upserts.WithLabelValues("failed")); got != 1 {
		t.Errorf("expected failed counter 1, got %v", got)
	}

	repo.writeErr = nil
	appt := uuid.New()
	_, _ = svc.RecordOrUpdateVitals(context.Background(), appt, &VitalSigns{HeartRate: ptr(60)})
	_, _ = svc.RecordOrUpdateVitals(context.Background(), appt, &VitalSigns{HeartRate: ptr(61)})
	if got := testutil.ToFloat64(m.upserts.WithLabelValues("created")); got != 1 {
		t.Errorf("expected created counter 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.upserts.WithLabelValues("updated")); got != 1 {
		t.Errorf("expected updated counter 1, got %v", got)
	}
}

func TestGetVitals_NotFound(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.GetVitals(context.Background(), uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDiagnosis_CRUD(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	appt := uuid.New()

	d := &Diagnosis{AppointmentID: appt, Diagnosis: "  Influenza "}
	if err := svc.CreateDiagnosis(ctx, d); err != nil {
		t.Fatal(err)
	}
	if d.Diagnosis != "Influenza" {
		t.Errorf("expected trimmed text, got %q", d.Diagnosis)
	}

	d.Diagnosis = "Common cold"
	if err := svc.UpdateDiagnosis(ctx, d); err != nil {
		t.Fatal(err)
	}
	items, total, _ := svc.ListDiagnoses(ctx, RecordFilter{AppointmentID: &appt}, 20, 0)
	if total != 1 || items[0].Diagnosis != "Common cold" {
		t.Errorf("unexpected listing %+v", items)
	}

	if err := svc.DeleteDiagnosis(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetDiagnosis(ctx, d.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestRecords_RequireTextAndAppointment(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if err := svc.CreateDiagnosis(ctx, &Diagnosis{AppointmentID: uuid.New(), Diagnosis: "   "}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for blank diagnosis, got %v", err)
	}
	if err := svc.CreatePrescription(ctx, &Prescription{Treatment: "Rest"}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for missing appointment, got %v", err)
	}
}

func TestPrescription_CRUD(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p := &Prescription{AppointmentID: uuid.New(), Treatment: "Paracetamol 500mg"}
	if err := svc.CreatePrescription(ctx, p); err != nil {
		t.Fatal(err)
	}
	p.Treatment = "Ibuprofen 200mg"
	if err := svc.UpdatePrescription(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.GetPrescription(ctx, p.ID)
	if got.Treatment != "Ibuprofen 200mg" {
		t.Errorf("expected updated treatment, got %q", got.Treatment)
	}
	if err := svc.DeletePrescription(ctx, uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
