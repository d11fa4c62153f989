package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// Medicine is a stocked item. Quantity never drops below zero.
type Medicine struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Diagnosis     string    `db:"diagnosis" json:"diagnosis"`
	PatientSafety string    `db:"patient_safety" json:"patient_safety"`
	Quantity      int       `db:"quantity" json:"quantity"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type ListFilter struct {
	Name string
}
