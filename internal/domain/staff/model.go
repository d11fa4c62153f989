package staff

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/workflow"
)

// Availability is a staff member's self-reported work state.
type Availability string

const (
	StatusAvailable Availability = "Available"
	StatusBusy      Availability = "Busy"
	StatusOnBreak   Availability = "On Break"
)

// availability accepts any transition between its states.
var availability = workflow.New("staff status", StatusAvailable, StatusBusy, StatusOnBreak).
	WithAliases(map[string]Availability{
		"on-break": StatusOnBreak,
		"onbreak":  StatusOnBreak,
		"break":    StatusOnBreak,
	})

// ParseAvailability maps user input onto a canonical availability state.
func ParseAvailability(raw string) (Availability, error) {
	return availability.Parse(raw)
}

// Doctor maps to the doctor table. Password is accepted on create and
// update only; the stored bcrypt Credential is never serialized.
type Doctor struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	DisplayName    string       `db:"-" json:"display_name"`
	Email          string       `db:"email" json:"email"`
	Specialization string       `db:"specialization" json:"specialization"`
	Phone          string       `db:"phone" json:"phone"`
	Status         Availability `db:"status" json:"status"`
	Password       string       `db:"-" json:"password,omitempty"`
	Credential     string       `db:"credential" json:"-"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// Nurse maps to the nurse table.
type Nurse struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	Name       string       `db:"name" json:"name"`
	Email      string       `db:"email" json:"email"`
	Phone      string       `db:"phone" json:"phone"`
	Status     Availability `db:"status" json:"status"`
	Password   string       `db:"-" json:"password,omitempty"`
	Credential string       `db:"credential" json:"-"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// Kind distinguishes the two staff tables.
type Kind string

const (
	KindDoctor Kind = "doctor"
	KindNurse  Kind = "nurse"
)

// StaffStatus is the availability view shared by doctors and nurses.
type StaffStatus struct {
	ID     uuid.UUID    `json:"id"`
	Kind   Kind         `json:"kind"`
	Name   string       `json:"name"`
	Email  string       `json:"email"`
	Status Availability `json:"status"`
}

// DisplayName prefixes a doctor's name with "Dr." unless it already
// carries the title.
func DisplayName(name string) string {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	if name == "" || strings.HasPrefix(lower, "dr.") || strings.HasPrefix(lower, "dr ") {
		return name
	}
	return "Dr. " + name
}

func (d *Doctor) statusView() *StaffStatus {
	return &StaffStatus{ID: d.ID, Kind: KindDoctor, Name: DisplayName(d.Name), Email: d.Email, Status: d.Status}
}

func (n *Nurse) statusView() *StaffStatus {
	return &StaffStatus{ID: n.ID, Kind: KindNurse, Name: n.Name, Email: n.Email, Status: n.Status}
}
