package clinical

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

var bloodPressurePattern = regexp.MustCompile(`^\d{2,3}/\d{2,3}$`)

type Service struct {
	vitals        VitalsRepository
	diagnoses     DiagnosisRepository
	prescriptions PrescriptionRepository
	metrics       *Metrics
}

func NewService(vitals VitalsRepository, diagnoses DiagnosisRepository, prescriptions PrescriptionRepository) *Service {
	return &Service{vitals: vitals, diagnoses: diagnoses, prescriptions: prescriptions}
}

// WithMetrics attaches the upsert counter.
func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

// -- Vital Signs --

// RecordOrUpdateVitals keeps exactly one vitals record per appointment:
// an existing record is overwritten in place, otherwise one is created.
// Either way the stored values are the ones from this call.
func (s *Service) RecordOrUpdateVitals(ctx context.Context, appointmentID uuid.UUID, in *VitalSigns) (*VitalSigns, error) {
	if appointmentID == uuid.Nil {
		return nil, apperr.Validation("appointment_id is required")
	}
	if err := validateVitals(in); err != nil {
		return nil, err
	}
	in.AppointmentID = appointmentID

	existing, found, err := s.vitals.FindByAppointment(ctx, appointmentID)
	if err != nil {
		s.metrics.observe("failed")
		return nil, err
	}
	if found {
		in.ID = existing.ID
		if err := s.vitals.Update(ctx, in); err != nil {
			s.metrics.observe("failed")
			return nil, err
		}
		s.metrics.observe("updated")
		return in, nil
	}
	if err := s.vitals.Create(ctx, in); err != nil {
		s.metrics.observe("failed")
		return nil, err
	}
	s.metrics.observe("created")
	return in, nil
}

func (s *Service) GetVitals(ctx context.Context, appointmentID uuid.UUID) (*VitalSigns, error) {
	v, found, err := s.vitals.FindByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("vital signs")
	}
	return v, nil
}

func (s *Service) VitalsForPatient(ctx context.Context, patientID uuid.UUID) ([]*VitalSigns, error) {
	return s.vitals.ListByPatient(ctx, patientID)
}

func validateVitals(v *VitalSigns) error {
	if v == nil || v.Empty() {
		return apperr.Validation("at least one measurement is required")
	}
	if v.Height != nil && *v.Height <= 0 {
		return apperr.Validation("height must be positive")
	}
	if v.Weight != nil && *v.Weight <= 0 {
		return apperr.Validation("weight must be positive")
	}
	if v.HeartRate != nil && *v.HeartRate <= 0 {
		return apperr.Validation("heart_rate must be positive")
	}
	if v.Temperature != nil && (*v.Temperature < 25 || *v.Temperature > 45) {
		return apperr.Validation("temperature must be in degrees Celsius (25 to 45), got %g", *v.Temperature)
	}
	if v.SpO2 != nil && (*v.SpO2 < 0 || *v.SpO2 > 100) {
		return apperr.Validation("spo2 must be between 0 and 100")
	}
	if v.BloodPressure != nil {
		bp := strings.ReplaceAll(*v.BloodPressure, " ", "")
		if bp == "" {
			v.BloodPressure = nil
		} else if !bloodPressurePattern.MatchString(bp) {
			return apperr.Validation("blood_pressure must look like 120/80")
		} else {
			v.BloodPressure = &bp
		}
	}
	return nil
}

// -- Diagnosis --

func (s *Service) CreateDiagnosis(ctx context.Context, d *Diagnosis) error {
	if err := prepareRecord(d.AppointmentID, &d.Diagnosis, "diagnosis"); err != nil {
		return err
	}
	return s.diagnoses.Create(ctx, d)
}

func (s *Service) GetDiagnosis(ctx context.Context, id uuid.UUID) (*Diagnosis, error) {
	return s.diagnoses.GetByID(ctx, id)
}

func (s *Service) UpdateDiagnosis(ctx context.Context, d *Diagnosis) error {
	if err := prepareRecord(d.AppointmentID, &d.Diagnosis, "diagnosis"); err != nil {
		return err
	}
	return s.diagnoses.Update(ctx, d)
}

func (s *Service) DeleteDiagnosis(ctx context.Context, id uuid.UUID) error {
	return s.diagnoses.Delete(ctx, id)
}

func (s *Service) ListDiagnoses(ctx context.Context, f RecordFilter, limit, offset int) ([]*Diagnosis, int, error) {
	return s.diagnoses.List(ctx, f, limit, offset)
}

func (s *Service) DiagnosesForPatient(ctx context.Context, patientID uuid.UUID) ([]*Diagnosis, error) {
	return s.diagnoses.ListAll(ctx, RecordFilter{PatientID: &patientID})
}

// -- Prescription --

func (s *Service) CreatePrescription(ctx context.Context, p *Prescription) error {
	if err := prepareRecord(p.AppointmentID, &p.Treatment, "treatment"); err != nil {
		return err
	}
	return s.prescriptions.Create(ctx, p)
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

func (s *Service) UpdatePrescription(ctx context.Context, p *Prescription) error {
	if err := prepareRecord(p.AppointmentID, &p.Treatment, "treatment"); err != nil {
		return err
	}
	return s.prescriptions.Update(ctx, p)
}

func (s *Service) DeletePrescription(ctx context.Context, id uuid.UUID) error {
	return s.prescriptions.Delete(ctx, id)
}

func (s *Service) ListPrescriptions(ctx context.Context, f RecordFilter, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.List(ctx, f, limit, offset)
}

func (s *Service) PrescriptionsForPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	return s.prescriptions.ListAll(ctx, RecordFilter{PatientID: &patientID})
}

func prepareRecord(appointmentID uuid.UUID, text *string, field string) error {
	if appointmentID == uuid.Nil {
		return apperr.Validation("appointment_id is required")
	}
	*text = strings.TrimSpace(*text)
	if *text == "" {
		return apperr.Validation("%s is required", field)
	}
	return nil
}
