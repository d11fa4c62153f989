package clinical

import (
	"time"

	"github.com/google/uuid"
)

// VitalSigns is the single intake measurement set for an appointment.
// Unmeasured values are nil.
type VitalSigns struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	Height        *float64   `db:"height" json:"height"`
	Weight        *float64   `db:"weight" json:"weight"`
	BloodPressure *string    `db:"blood_pressure" json:"blood_pressure"`
	HeartRate     *int       `db:"heart_rate" json:"heart_rate"`
	Temperature   *float64   `db:"temperature" json:"temperature"` // degrees Celsius
	SpO2          *int       `db:"spo2" json:"spo2"`
	RecordedBy    *uuid.UUID `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt    time.Time  `db:"recorded_at" json:"recorded_at"`
}

// Empty reports whether no measurement was supplied.
func (v *VitalSigns) Empty() bool {
	return v.Height == nil && v.Weight == nil && v.BloodPressure == nil &&
		v.HeartRate == nil && v.Temperature == nil && v.SpO2 == nil
}

type Diagnosis struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	DoctorID      *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	Diagnosis     string     `db:"diagnosis" json:"diagnosis"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

type Prescription struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	DoctorID      *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	Treatment     string     `db:"treatment" json:"treatment"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// RecordFilter narrows diagnosis and prescription listings. PatientID
// matches through the owning appointment.
type RecordFilter struct {
	PatientID     *uuid.UUID
	AppointmentID *uuid.UUID
}
