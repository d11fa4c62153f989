package reporting

import "time"

// MeasureDefinition is a named, fixed operational query.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"-"`
}

// MeasureReport holds the rows produced by evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
}

// LowStockThreshold is the quantity below which a medicine counts as low.
const LowStockThreshold = 10

var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "appointments-by-status",
		Name:        "Appointments by Status",
		Description: "Number of appointments in each status",
		SQL:         `SELECT status, COUNT(*) AS total FROM appointment GROUP BY status ORDER BY total DESC`,
	},
	{
		ID:          "appointments-by-doctor",
		Name:        "Appointments by Doctor",
		Description: "Number of appointments booked with each doctor",
		SQL:         `SELECT doctor_name, COUNT(*) AS total FROM appointment GROUP BY doctor_name ORDER BY total DESC, doctor_name`,
	},
	{
		ID:          "staff-availability",
		Name:        "Staff Availability",
		Description: "Doctors and nurses in each availability status",
		SQL: `SELECT 'doctor' AS kind, status, COUNT(*) AS total FROM doctor GROUP BY status
			UNION ALL
			SELECT 'nurse' AS kind, status, COUNT(*) AS total FROM nurse GROUP BY status
			ORDER BY kind, status`,
	},
	{
		ID:          "low-stock-medicines",
		Name:        "Low Stock Medicines",
		Description: "Medicines with fewer than ten units in stock",
		SQL:         `SELECT id, name, quantity FROM medicine WHERE quantity < 10 ORDER BY quantity, name`,
	},
}

func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// Dashboard is the admin landing page summary.
type Dashboard struct {
	Patients          int `json:"patients"`
	Doctors           int `json:"doctors"`
	Nurses            int `json:"nurses"`
	AppointmentsToday int `json:"appointments_today"`
	CheckedInToday    int `json:"checked_in_today"`
	LowStockMedicines int `json:"low_stock_medicines"`
}
