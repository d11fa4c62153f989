package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/civil"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Patient maps to the patient table. Patients are registered by the admin
// and never hard-deleted.
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Gender      Gender     `db:"gender" json:"gender"`
	DateOfBirth civil.Date `db:"date_of_birth" json:"date_of_birth"`
	Phone       string     `db:"phone" json:"phone"`
	Address     string     `db:"address" json:"address"`
	Allergy     *string    `db:"allergy" json:"allergy"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// ListFilter narrows patient listings. Name matches case-insensitively on
// any substring.
type ListFilter struct {
	Name string
}
