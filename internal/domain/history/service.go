package history

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/clinical"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/domain/scheduling"
)

type PatientReader interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type AppointmentReader interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*scheduling.Appointment, error)
}

type ClinicalReader interface {
	DiagnosesForPatient(ctx context.Context, patientID uuid.UUID) ([]*clinical.Diagnosis, error)
	PrescriptionsForPatient(ctx context.Context, patientID uuid.UUID) ([]*clinical.Prescription, error)
	VitalsForPatient(ctx context.Context, patientID uuid.UUID) ([]*clinical.VitalSigns, error)
}

type Service struct {
	patients     PatientReader
	appointments AppointmentReader
	clinical     ClinicalReader
}

func NewService(patients PatientReader, appointments AppointmentReader, clinical ClinicalReader) *Service {
	return &Service{patients: patients, appointments: appointments, clinical: clinical}
}

// PatientHistory loads and assembles a patient's history. Only the patient
// lookup can fail the call; a slice that fails to load is logged, rendered
// empty and listed in Degraded.
func (s *Service) PatientHistory(ctx context.Context, patientID uuid.UUID) (*PatientHistory, error) {
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	var degraded []string
	degrade := func(slice string, err error) {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("patient_id", patientID.String()).
			Str("slice", slice).
			Msg("patient history degraded")
		degraded = append(degraded, slice)
	}

	appts, err := s.appointments.ListByPatient(ctx, patientID)
	if err != nil {
		degrade("appointments", err)
		appts = nil
	}
	diags, err := s.clinical.DiagnosesForPatient(ctx, patientID)
	if err != nil {
		degrade("diagnoses", err)
		diags = nil
	}
	prescs, err := s.clinical.PrescriptionsForPatient(ctx, patientID)
	if err != nil {
		degrade("prescriptions", err)
		prescs = nil
	}
	vitals, err := s.clinical.VitalsForPatient(ctx, patientID)
	if err != nil {
		degrade("vitals", err)
		vitals = nil
	}

	h := BuildPatientHistory(p, appts, diags, prescs, vitals)
	h.Degraded = degraded
	return h, nil
}
