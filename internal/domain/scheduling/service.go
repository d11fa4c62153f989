package scheduling

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/pkg/civil"
)

// DoctorDirectory resolves the display name stored alongside a doctor
// reference.
type DoctorDirectory interface {
	DoctorDisplayName(ctx context.Context, id uuid.UUID) (string, error)
}

type Service struct {
	appts   Repository
	doctors DoctorDirectory
}

func NewService(appts Repository, doctors DoctorDirectory) *Service {
	return &Service{appts: appts, doctors: doctors}
}

func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if err := s.prepare(ctx, a); err != nil {
		return err
	}
	return s.appts.Create(ctx, a)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

func (s *Service) UpdateAppointment(ctx context.Context, a *Appointment) error {
	if err := s.prepare(ctx, a); err != nil {
		return err
	}
	return s.appts.Update(ctx, a)
}

// UpdateStatus changes only the status. Every status is reachable from every
// other; legacy spellings are accepted and stored canonically.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, raw string) (*Appointment, error) {
	target, err := statuses.Parse(raw)
	if err != nil {
		return nil, err
	}
	current, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := statuses.Transition(current.Status, target)
	if err != nil {
		return nil, err
	}
	return s.appts.SetStatus(ctx, id, next)
}

func (s *Service) ListAppointments(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.List(ctx, f, limit, offset)
}

// ListCheckedIn is the nurse intake queue: appointments whose status is
// Check-in, optionally for one day. It never changes a status.
func (s *Service) ListCheckedIn(ctx context.Context, date civil.Date, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.List(ctx, Filter{Status: StatusCheckIn, Date: date}, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return s.appts.ListByPatient(ctx, patientID)
}

func (s *Service) prepare(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if a.DoctorID != nil && s.doctors != nil {
		name, err := s.doctors.DoctorDisplayName(ctx, *a.DoctorID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return apperr.Validation("doctor_id does not name a doctor")
			}
			return err
		}
		a.DoctorName = name
	}
	a.DoctorName = strings.TrimSpace(a.DoctorName)
	if a.DoctorName == "" {
		return apperr.Validation("doctor_id or doctor_name is required")
	}
	if a.Date.IsZero() {
		return apperr.Validation("date is required")
	}
	a.Time = strings.TrimSpace(a.Time)
	if !civil.ValidClock(a.Time) {
		return apperr.Validation("time must be HH:MM")
	}
	if a.Reason != nil {
		if trimmed := strings.TrimSpace(*a.Reason); trimmed == "" {
			a.Reason = nil
		} else {
			a.Reason = &trimmed
		}
	}
	if a.Status == "" {
		a.Status = StatusScheduled
		return nil
	}
	status, err := statuses.Parse(string(a.Status))
	if err != nil {
		return err
	}
	a.Status = status
	return nil
}
