package staff

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

type Service struct {
	doctors DoctorRepository
	nurses  NurseRepository
}

func NewService(doctors DoctorRepository, nurses NurseRepository) *Service {
	return &Service{doctors: doctors, nurses: nurses}
}

// -- Doctors --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if err := s.prepareDoctor(d, true); err != nil {
		return err
	}
	err := s.doctors.Create(ctx, d)
	d.DisplayName = DisplayName(d.Name)
	return err
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if err := s.prepareDoctor(d, false); err != nil {
		return err
	}
	err := s.doctors.Update(ctx, d)
	d.DisplayName = DisplayName(d.Name)
	return err
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.doctors.Delete(ctx, id)
}

// DoctorDisplayName returns the "Dr."-prefixed name stored on appointments.
func (s *Service) DoctorDisplayName(ctx context.Context, id uuid.UUID) (string, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return DisplayName(d.Name), nil
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) prepareDoctor(d *Doctor, create bool) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Specialization = strings.TrimSpace(d.Specialization)
	d.Phone = strings.TrimSpace(d.Phone)
	if d.Name == "" {
		return apperr.Validation("name is required")
	}
	email, err := normalizeEmail(d.Email)
	if err != nil {
		return err
	}
	d.Email = email
	if d.Status, err = defaultStatus(d.Status); err != nil {
		return err
	}
	d.Credential, err = credentialFor(d.Password, create)
	d.Password = ""
	return err
}

// -- Nurses --

func (s *Service) CreateNurse(ctx context.Context, n *Nurse) error {
	if err := s.prepareNurse(n, true); err != nil {
		return err
	}
	return s.nurses.Create(ctx, n)
}

func (s *Service) GetNurse(ctx context.Context, id uuid.UUID) (*Nurse, error) {
	return s.nurses.GetByID(ctx, id)
}

func (s *Service) UpdateNurse(ctx context.Context, n *Nurse) error {
	if err := s.prepareNurse(n, false); err != nil {
		return err
	}
	return s.nurses.Update(ctx, n)
}

func (s *Service) DeleteNurse(ctx context.Context, id uuid.UUID) error {
	return s.nurses.Delete(ctx, id)
}

func (s *Service) ListNurses(ctx context.Context, limit, offset int) ([]*Nurse, int, error) {
	return s.nurses.List(ctx, limit, offset)
}

func (s *Service) prepareNurse(n *Nurse, create bool) error {
	n.Name = strings.TrimSpace(n.Name)
	n.Phone = strings.TrimSpace(n.Phone)
	if n.Name == "" {
		return apperr.Validation("name is required")
	}
	email, err := normalizeEmail(n.Email)
	if err != nil {
		return err
	}
	n.Email = email
	if n.Status, err = defaultStatus(n.Status); err != nil {
		return err
	}
	n.Credential, err = credentialFor(n.Password, create)
	n.Password = ""
	return err
}

// -- Availability --

// SetDoctorStatus persists a doctor's availability immediately. Every state
// may follow every other.
func (s *Service) SetDoctorStatus(ctx context.Context, id uuid.UUID, raw string) (*StaffStatus, error) {
	current, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.nextStatus(current.Status, raw)
	if err != nil {
		return nil, err
	}
	d, err := s.doctors.SetStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	return d.statusView(), nil
}

func (s *Service) SetNurseStatus(ctx context.Context, id uuid.UUID, raw string) (*StaffStatus, error) {
	current, err := s.nurses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.nextStatus(current.Status, raw)
	if err != nil {
		return nil, err
	}
	n, err := s.nurses.SetStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	return n.statusView(), nil
}

// SetMyStatus updates the availability of the signed-in doctor or nurse.
func (s *Service) SetMyStatus(ctx context.Context, sess *auth.Session, raw string) (*StaffStatus, error) {
	if sess == nil {
		return nil, apperr.ErrUnauthorized
	}
	switch sess.Role {
	case auth.RoleDoctor:
		return s.SetDoctorStatus(ctx, sess.StaffID, raw)
	case auth.RoleNurse:
		return s.SetNurseStatus(ctx, sess.StaffID, raw)
	default:
		return nil, apperr.Validation("%s accounts have no availability status", sess.Role)
	}
}

// GetStatus looks a staff member up by id or email, doctors first.
func (s *Service) GetStatus(ctx context.Context, ref string) (*StaffStatus, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperr.Validation("staff id or email is required")
	}
	if id, err := uuid.Parse(ref); err == nil {
		d, err := s.doctors.GetByID(ctx, id)
		if err == nil {
			return d.statusView(), nil
		}
		if !apperr.IsNotFound(err) {
			return nil, err
		}
		n, err := s.nurses.GetByID(ctx, id)
		if err != nil {
			return nil, notFoundAsStaff(err)
		}
		return n.statusView(), nil
	}

	d, err := s.doctors.GetByEmail(ctx, ref)
	if err == nil {
		return d.statusView(), nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}
	n, err := s.nurses.GetByEmail(ctx, ref)
	if err != nil {
		return nil, notFoundAsStaff(err)
	}
	return n.statusView(), nil
}

func (s *Service) nextStatus(current Availability, raw string) (Availability, error) {
	target, err := availability.Parse(raw)
	if err != nil {
		return "", err
	}
	return availability.Transition(current, target)
}

// -- Authentication --

func (s *Service) AuthenticateDoctor(ctx context.Context, email, password string) (*auth.Principal, error) {
	d, err := s.doctors.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, rejectUnlessUnavailable(err)
	}
	if !auth.CheckPassword(d.Credential, password) {
		return nil, apperr.ErrUnauthorized
	}
	return &auth.Principal{StaffID: d.ID, Name: DisplayName(d.Name), Email: d.Email, Role: auth.RoleDoctor}, nil
}

func (s *Service) AuthenticateNurse(ctx context.Context, email, password string) (*auth.Principal, error) {
	n, err := s.nurses.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, rejectUnlessUnavailable(err)
	}
	if !auth.CheckPassword(n.Credential, password) {
		return nil, apperr.ErrUnauthorized
	}
	return &auth.Principal{StaffID: n.ID, Name: n.Name, Email: n.Email, Role: auth.RoleNurse}, nil
}

// Authenticators returns the login checks for the doctor and nurse portals.
func (s *Service) Authenticators() map[auth.Role]auth.Authenticator {
	return map[auth.Role]auth.Authenticator{
		auth.RoleDoctor: auth.AuthenticatorFunc(s.AuthenticateDoctor),
		auth.RoleNurse:  auth.AuthenticatorFunc(s.AuthenticateNurse),
	}
}

// -- helpers --

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return "", apperr.Validation("a valid email is required")
	}
	return email, nil
}

func defaultStatus(s Availability) (Availability, error) {
	if s == "" {
		return StatusAvailable, nil
	}
	return availability.Parse(string(s))
}

// credentialFor hashes password. On update an empty password keeps the
// stored credential.
func credentialFor(password string, required bool) (string, error) {
	if password == "" {
		if required {
			return "", apperr.Validation("password is required")
		}
		return "", nil
	}
	if len(password) < 8 {
		return "", apperr.Validation("password must be at least 8 characters")
	}
	return auth.HashPassword(password)
}

func notFoundAsStaff(err error) error {
	if apperr.IsNotFound(err) {
		return apperr.NotFound("staff member")
	}
	return err
}

func rejectUnlessUnavailable(err error) error {
	if apperr.IsUnavailable(err) {
		return err
	}
	return apperr.ErrUnauthorized
}
