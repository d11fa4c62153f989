package history

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/clinical"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/pkg/civil"
)

func appt(t *testing.T, date, clock string) *scheduling.Appointment {
	t.Helper()
	d, err := civil.ParseDate(date)
	if err != nil {
		t.Fatal(err)
	}
	return &scheduling.Appointment{ID: uuid.New(), Date: d, Time: clock, Status: scheduling.StatusScheduled}
}

func TestBuildPatientHistory_NestsRecords(t *testing.T) {
	p := &patient.Patient{ID: uuid.New(), Name: "Ada"}
	older := appt(t, "2024-01-10", "09:00")
	newer := appt(t, "2024-03-02", "11:30")
	diag := &clinical.Diagnosis{ID: uuid.New(), AppointmentID: older.ID, Diagnosis: "Flu"}

	h := BuildPatientHistory(p, []*scheduling.Appointment{older, newer}, []*clinical.Diagnosis{diag}, nil, nil)

	if len(h.Appointments) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(h.Appointments))
	}
	if h.Appointments[0].ID != newer.ID {
		t.Error("expected most recent appointment first")
	}
	if got := h.Appointments[0].Diagnoses; got == nil || len(got) != 0 {
		t.Errorf("expected empty, non-nil diagnoses for newer appointment, got %v", got)
	}
	if got := h.Appointments[1].Diagnoses; len(got) != 1 || got[0].ID != diag.ID {
		t.Errorf("expected the diagnosis under its own appointment, got %v", got)
	}
	if h.Appointments[1].Prescriptions == nil {
		t.Error("expected empty prescriptions slice, not nil")
	}
}

func TestBuildPatientHistory_EmptyListsEncodeAsArrays(t *testing.T) {
	h := BuildPatientHistory(&patient.Patient{Name: "Ada"}, []*scheduling.Appointment{appt(t, "2024-01-10", "09:00")}, nil, nil, nil)
	b, err := json.Marshal(h)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{`"diagnoses":[]`, `"prescriptions":[]`, `"vitals":null`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
}

func TestBuildPatientHistory_NoAppointments(t *testing.T) {
	p := &patient.Patient{Name: "Ada"}
	h := BuildPatientHistory(p, nil, nil, nil, nil)
	if h.Patient != p {
		t.Error("expected demographics to be present")
	}
	if h.Appointments == nil || len(h.Appointments) != 0 {
		t.Errorf("expected empty appointment list, got %v", h.Appointments)
	}
}

func TestBuildPatientHistory_OrdersByDateThenTimeStable(t *testing.T) {
	a := appt(t, "2024-05-01", "09:00")
	b := appt(t, "2024-05-01", "14:00")
	c := appt(t, "2024-05-01", "09:00")
	d := appt(t, "2023-12-31", "23:59")

	h := BuildPatientHistory(&patient.Patient{}, []*scheduling.Appointment{d, a, b, c}, nil, nil, nil)
	want := []uuid.UUID{b.ID, a.ID, c.ID, d.ID}
	for i, id := range want {
		if h.Appointments[i].ID != id {
			t.Fatalf("position %d: unexpected appointment order", i)
		}
	}
}

func TestBuildPatientHistory_AttachesVitals(t *testing.T) {
	a := appt(t, "2024-05-01", "09:00")
	hr := 70
	v := &clinical.VitalSigns{ID: uuid.New(), AppointmentID: a.ID, HeartRate: &hr}
	h := BuildPatientHistory(&patient.Patient{}, []*scheduling.Appointment{a}, nil, nil, []*clinical.VitalSigns{v})
	if h.Appointments[0].Vitals != v {
		t.Error("expected vitals attached to their appointment")
	}
}

// -- Service --

type fakeSources struct {
	patient *patient.Patient
	appts   []*scheduling.Appointment
	diags   []*clinical.Diagnosis
	failing map[string]bool
}

var errDown = apperr.Unavailable("read", errors.New("connection refused"))

func (f *fakeSources) GetPatient(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	if f.patient == nil || f.patient.ID != id {
		return nil, apperr.NotFound("patient")
	}
	return f.patient, nil
}

func (f *fakeSources) ListByPatient(context.Context, uuid.UUID) ([]*scheduling.Appointment, error) {
	if f.failing["appointments"] {
		return nil, errDown
	}
	return f.appts, nil
}

func (f *fakeSources) DiagnosesForPatient(context.Context, uuid.UUID) ([]*clinical.Diagnosis, error) {
	if f.failing["diagnoses"] {
		return nil, errDown
	}
	return f.diags, nil
}

func (f *fakeSources) PrescriptionsForPatient(context.Context, uuid.UUID) ([]*clinical.Prescription, error) {
	if f.failing["prescriptions"] {
		return nil, errDown
	}
	return nil, nil
}

func (f *fakeSources) VitalsForPatient(context.Context, uuid.UUID) ([]*clinical.VitalSigns, error) {
	if f.failing["vitals"] {
		return nil, errDown
	}
	return nil, nil
}

func TestService_PatientHistory_Degrades(t *testing.T) {
	a := appt(t, "2024-05-01", "09:00")
	src := &fakeSources{
		patient: &patient.Patient{ID: uuid.New(), Name: "Ada"},
		appts:   []*scheduling.Appointment{a},
		diags:   []*clinical.Diagnosis{{AppointmentID: a.ID, Diagnosis: "Flu"}},
		failing: map[string]bool{"diagnoses": true, "vitals": true},
	}
	svc := NewService(src, src, src)

	h, err := svc.PatientHistory(context.Background(), src.patient.ID)
	if err != nil {
		t.Fatalf("expected partial result, got %v", err)
	}
	if len(h.Appointments) != 1 {
		t.Fatalf("expected appointments to survive, got %d", len(h.Appointments))
	}
	if len(h.Appointments[0].Diagnoses) != 0 {
		t.Error("expected failed diagnoses slice to render empty")
	}
	if len(h.Degraded) != 2 || h.Degraded[0] != "diagnoses" || h.Degraded[1] != "vitals" {
		t.Errorf("unexpected degraded list %v", h.Degraded)
	}
}

func TestService_PatientHistory_AppointmentsFailure(t *testing.T) {
	src := &fakeSources{
		patient: &patient.Patient{ID: uuid.New()},
		failing: map[string]bool{"appointments": true},
	}
	h, err := NewService(src, src, src).PatientHistory(context.Background(), src.patient.ID)
	if err != nil {
		t.Fatal(err)
	}
	if h.Appointments == nil || len(h.Appointments) != 0 {
		t.Errorf("expected empty appointment list, got %v", h.Appointments)
	}
}

func TestService_PatientHistory_UnknownPatient(t *testing.T) {
	src := &fakeSources{}
	if _, err := NewService(src, src, src).PatientHistory(context.Background(), uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
