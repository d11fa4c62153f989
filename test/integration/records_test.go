//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/clinical"
	"github.com/clinic/clinic/internal/domain/history"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/domain/pharmacy"
	"github.com/clinic/clinic/internal/domain/reporting"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/domain/staff"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

func newStaffService() *staff.Service {
	return staff.NewService(staff.NewDoctorRepoPG(globalPool), staff.NewNurseRepoPG(globalPool))
}

func newClinicalService() *clinical.Service {
	return clinical.NewService(
		clinical.NewVitalsRepoPG(globalPool),
		clinical.NewDiagnosisRepoPG(globalPool),
		clinical.NewPrescriptionRepoPG(globalPool),
	)
}

func TestVitals_UpsertKeepsOneRecord(t *testing.T) {
	clinicID := newClinic(t, "vitals")
	inClinic(t, clinicID, func(ctx context.Context) {
		svc := newClinicalService()
		p := createTestPatient(t, ctx, "Vital Patient")
		a := createTestAppointment(t, ctx, p.ID, "2026-04-02", "10:00")

		first, err := svc.RecordOrUpdateVitals(ctx, a.ID, &clinical.VitalSigns{HeartRate: ptrInt(72)})
		if err != nil {
			t.Fatalf("first RecordOrUpdateVitals: %v", err)
		}
		second, err := svc.RecordOrUpdateVitals(ctx, a.ID, &clinical.VitalSigns{
			HeartRate:   ptrInt(80),
			Temperature: ptrFloat(37.2),
		})
		if err != nil {
			t.Fatalf("second RecordOrUpdateVitals: %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("expected the same vitals record, got %s and %s", first.ID, second.ID)
		}

		var rows int
		if err := globalPool.QueryRow(ctx,
			"SELECT COUNT(*) FROM "+db.SchemaName(clinicID)+".vital_signs WHERE appointment_id = $1", a.ID).Scan(&rows); err != nil {
			t.Fatalf("count vitals: %v", err)
		}
		if rows != 1 {
			t.Errorf("expected 1 vitals row, got %d", rows)
		}

		got, err := svc.GetVitals(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetVitals: %v", err)
		}
		if got.HeartRate == nil || *got.HeartRate != 80 {
			t.Errorf("expected heart rate 80, got %v", got.HeartRate)
		}

		byPatient, err := svc.VitalsForPatient(ctx, p.ID)
		if err != nil {
			t.Fatalf("VitalsForPatient: %v", err)
		}
		if len(byPatient) != 1 {
			t.Errorf("expected one vitals entry for patient, got %d", len(byPatient))
		}
	})
}

func TestClinicalWrites_UnknownAppointmentIsNotFound(t *testing.T) {
	clinicID := newClinic(t, "orphan")
	inClinic(t, clinicID, func(ctx context.Context) {
		svc := newClinicalService()
		missing := uuid.New()

		if _, err := svc.RecordOrUpdateVitals(ctx, missing, &clinical.VitalSigns{HeartRate: ptrInt(70)}); !apperr.IsNotFound(err) {
			t.Errorf("RecordOrUpdateVitals: expected not found, got %v", err)
		}
		if err := svc.CreateDiagnosis(ctx, &clinical.Diagnosis{AppointmentID: missing, Diagnosis: "Flu"}); !apperr.IsNotFound(err) {
			t.Errorf("CreateDiagnosis: expected not found, got %v", err)
		}
		if err := svc.CreatePrescription(ctx, &clinical.Prescription{AppointmentID: missing, Treatment: "Rest"}); !apperr.IsNotFound(err) {
			t.Errorf("CreatePrescription: expected not found, got %v", err)
		}
	})
}

func TestDiagnosesAndPrescriptions_ByPatient(t *testing.T) {
	clinicID := newClinic(t, "records")
	inClinic(t, clinicID, func(ctx context.Context) {
		svc := newClinicalService()
		p := createTestPatient(t, ctx, "Record Patient")
		older := createTestAppointment(t, ctx, p.ID, "2026-01-10", "09:00")
		newer := createTestAppointment(t, ctx, p.ID, "2026-02-10", "09:00")

		for _, d := range []*clinical.Diagnosis{
			{AppointmentID: older.ID, Diagnosis: "Influenza"},
			{AppointmentID: newer.ID, Diagnosis: "Migraine"},
		} {
			if err := svc.CreateDiagnosis(ctx, d); err != nil {
				t.Fatalf("CreateDiagnosis: %v", err)
			}
		}
		rx := &clinical.Prescription{AppointmentID: newer.ID, Treatment: "Ibuprofen 400mg"}
		if err := svc.CreatePrescription(ctx, rx); err != nil {
			t.Fatalf("CreatePrescription: %v", err)
		}

		diags, err := svc.DiagnosesForPatient(ctx, p.ID)
		if err != nil {
			t.Fatalf("DiagnosesForPatient: %v", err)
		}
		if len(diags) != 2 || diags[0].Diagnosis != "Migraine" {
			t.Errorf("expected newest appointment first, got %+v", diags)
		}

		list, total, err := svc.ListDiagnoses(ctx, clinical.RecordFilter{AppointmentID: &older.ID}, 20, 0)
		if err != nil {
			t.Fatalf("ListDiagnoses: %v", err)
		}
		if total != 1 || list[0].Diagnosis != "Influenza" {
			t.Errorf("expected Influenza for the older visit, got total=%d", total)
		}

		if err := svc.DeletePrescription(ctx, rx.ID); err != nil {
			t.Fatalf("DeletePrescription: %v", err)
		}
		if err := svc.DeletePrescription(ctx, rx.ID); !apperr.IsNotFound(err) {
			t.Errorf("expected not found on second delete, got %v", err)
		}
	})
}

func TestPatientHistory_Aggregates(t *testing.T) {
	clinicID := newClinic(t, "history")
	inClinic(t, clinicID, func(ctx context.Context) {
		clin := newClinicalService()
		p := createTestPatient(t, ctx, "History Patient")
		a := createTestAppointment(t, ctx, p.ID, "2026-05-05", "11:15")
		if err := clin.CreateDiagnosis(ctx, &clinical.Diagnosis{AppointmentID: a.ID, Diagnosis: "Asthma"}); err != nil {
			t.Fatalf("CreateDiagnosis: %v", err)
		}
		if _, err := clin.RecordOrUpdateVitals(ctx, a.ID, &clinical.VitalSigns{SpO2: ptrInt(97)}); err != nil {
			t.Fatalf("RecordOrUpdateVitals: %v", err)
		}

		svc := history.NewService(
			patient.NewService(patient.NewRepoPG(globalPool)),
			scheduling.NewService(scheduling.NewRepoPG(globalPool), nil),
			clin,
		)
		h, err := svc.PatientHistory(ctx, p.ID)
		if err != nil {
			t.Fatalf("PatientHistory: %v", err)
		}
		if len(h.Degraded) != 0 {
			t.Errorf("expected a complete history, degraded: %v", h.Degraded)
		}
		if len(h.Appointments) != 1 {
			t.Fatalf("expected 1 appointment, got %d", len(h.Appointments))
		}
		entry := h.Appointments[0]
		if len(entry.Diagnoses) != 1 || entry.Vitals == nil || *entry.Vitals.SpO2 != 97 {
			t.Errorf("unexpected history entry: %+v", entry)
		}
	})
}

func TestMedicine_QuantityNeverNegative(t *testing.T) {
	clinicID := newClinic(t, "pharmacy")
	inClinic(t, clinicID, func(ctx context.Context) {
		repo := pharmacy.NewRepoPG(globalPool)
		svc := pharmacy.NewService(repo)
		m := &pharmacy.Medicine{Name: "Amoxicillin", Quantity: 1}
		if err := svc.CreateMedicine(ctx, m); err != nil {
			t.Fatalf("CreateMedicine: %v", err)
		}

		got, err := svc.UpdateMedicineQuantity(ctx, m.ID, -1)
		if err != nil {
			t.Fatalf("UpdateMedicineQuantity: %v", err)
		}
		if got.Quantity != 0 {
			t.Errorf("expected quantity 0, got %d", got.Quantity)
		}

		// The guarded UPDATE refuses even when the service check is bypassed.
		if _, err := repo.AdjustQuantity(ctx, m.ID, -1); !apperr.IsValidation(err) {
			t.Errorf("expected validation error from repository, got %v", err)
		}
		if _, err := svc.UpdateMedicineQuantity(ctx, m.ID, -1); !apperr.IsValidation(err) {
			t.Errorf("expected validation error from service, got %v", err)
		}

		after, err := svc.GetMedicine(ctx, m.ID)
		if err != nil {
			t.Fatalf("GetMedicine: %v", err)
		}
		if after.Quantity != 0 {
			t.Errorf("expected quantity to stay 0, got %d", after.Quantity)
		}
	})
}

func TestReporting_TrendsAndDashboard(t *testing.T) {
	clinicID := newClinic(t, "reports")
	inClinic(t, clinicID, func(ctx context.Context) {
		clin := newClinicalService()
		p := createTestPatient(t, ctx, "Report Patient")
		for i, name := range []string{"Flu", "flu ", "Cold"} {
			a := createTestAppointment(t, ctx, p.ID, fmt.Sprintf("2026-06-%02d", i+1), "08:00")
			if err := clin.CreateDiagnosis(ctx, &clinical.Diagnosis{AppointmentID: a.ID, Diagnosis: name}); err != nil {
				t.Fatalf("CreateDiagnosis: %v", err)
			}
		}
		if err := pharmacy.NewService(pharmacy.NewRepoPG(globalPool)).CreateMedicine(ctx,
			&pharmacy.Medicine{Name: "Low Stock", Quantity: 2}); err != nil {
			t.Fatalf("CreateMedicine: %v", err)
		}

		svc := reporting.NewService(reporting.NewRepoPG(globalPool))
		report := svc.DiseaseTrends(ctx)
		if report.Degraded {
			t.Fatal("expected report from the database")
		}
		if report.Summary.TotalCases != 3 {
			t.Errorf("expected 3 cases, got %d", report.Summary.TotalCases)
		}
		if report.Summary.MostCommon == nil || report.Summary.MostCommon.Count != 2 {
			t.Errorf("expected the flu rows to consolidate to 2, got %+v", report.Summary.MostCommon)
		}

		dash, err := svc.Dashboard(ctx)
		if err != nil {
			t.Fatalf("Dashboard: %v", err)
		}
		if dash.Patients != 1 || dash.LowStockMedicines != 1 {
			t.Errorf("unexpected dashboard: %+v", dash)
		}

		for _, m := range reporting.PredefinedMeasures {
			if _, err := svc.EvaluateMeasure(ctx, m.ID); err != nil {
				t.Errorf("EvaluateMeasure(%s): %v", m.ID, err)
			}
		}
	})
}
