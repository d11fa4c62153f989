package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/civil"
	"github.com/clinic/clinic/pkg/workflow"
)

type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCheckIn   Status = "Check-in"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
)

// statuses permits any transition. Legacy spellings found in older rows
// and clients parse to the canonical value; case and spacing are folded.
var statuses = workflow.New("appointment status", StatusScheduled, StatusCheckIn, StatusCancelled, StatusCompleted).
	WithAliases(map[string]Status{
		"Check-ined": StatusCheckIn,
		"Checked In": StatusCheckIn,
		"checked-in": StatusCheckIn,
		"checkin":    StatusCheckIn,
		"Canceled":   StatusCancelled,
	})

// ParseStatus maps user input, including legacy spellings, to a canonical status.
func ParseStatus(raw string) (Status, error) {
	return statuses.Parse(raw)
}

// Appointment maps to the appointment table. PatientName is filled from the
// patient row on reads.
type Appointment struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName string     `db:"-" json:"patient_name,omitempty"`
	DoctorID    *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	DoctorName  string     `db:"doctor_name" json:"doctor_name"`
	Date        civil.Date `db:"date" json:"date"`
	Time        string     `db:"time" json:"time"`
	Reason      *string    `db:"reason" json:"reason"`
	Status      Status     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Filter narrows appointment listings. Zero fields are ignored.
type Filter struct {
	PatientID  *uuid.UUID
	DoctorID   *uuid.UUID
	DoctorName string
	Status     Status
	Date       civil.Date
}
