package history

import (
	"sort"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/clinical"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/domain/scheduling"
)

// PatientHistory is the read-only medical history view: demographics and
// every appointment, most recent first, with its clinical records. Degraded
// names the slices that could not be loaded and are shown empty.
type PatientHistory struct {
	Patient      *patient.Patient   `json:"patient"`
	Appointments []AppointmentEntry `json:"appointments"`
	Degraded     []string           `json:"degraded,omitempty"`
}

type AppointmentEntry struct {
	*scheduling.Appointment
	Diagnoses     []*clinical.Diagnosis    `json:"diagnoses"`
	Prescriptions []*clinical.Prescription `json:"prescriptions"`
	Vitals        *clinical.VitalSigns     `json:"vitals"`
}

// BuildPatientHistory nests diagnoses, prescriptions and vitals under the
// appointment they reference. Records pointing at an appointment not in
// appts are dropped. Entries are ordered by date then time, both
// descending; equal keys keep their input order.
func BuildPatientHistory(p *patient.Patient, appts []*scheduling.Appointment, diags []*clinical.Diagnosis,
	prescs []*clinical.Prescription, vitals []*clinical.VitalSigns) *PatientHistory {

	sorted := make([]*scheduling.Appointment, len(appts))
	copy(sorted, appts)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date)
		}
		return a.Time > b.Time
	})

	diagsBy := make(map[uuid.UUID][]*clinical.Diagnosis)
	for _, d := range diags {
		diagsBy[d.AppointmentID] = append(diagsBy[d.AppointmentID], d)
	}
	prescsBy := make(map[uuid.UUID][]*clinical.Prescription)
	for _, rx := range prescs {
		prescsBy[rx.AppointmentID] = append(prescsBy[rx.AppointmentID], rx)
	}
	vitalsBy := make(map[uuid.UUID]*clinical.VitalSigns, len(vitals))
	for _, v := range vitals {
		if _, seen := vitalsBy[v.AppointmentID]; !seen {
			vitalsBy[v.AppointmentID] = v
		}
	}

	h := &PatientHistory{Patient: p, Appointments: make([]AppointmentEntry, 0, len(sorted))}
	for _, a := range sorted {
		entry := AppointmentEntry{
			Appointment:   a,
			Diagnoses:     diagsBy[a.ID],
			Prescriptions: prescsBy[a.ID],
			Vitals:        vitalsBy[a.ID],
		}
		if entry.Diagnoses == nil {
			entry.Diagnoses = []*clinical.Diagnosis{}
		}
		if entry.Prescriptions == nil {
			entry.Prescriptions = []*clinical.Prescription{}
		}
		h.Appointments = append(h.Appointments, entry)
	}
	return h
}
