package model

// PatientSummary is the compact shape returned by patient search, enough to
// populate a picker row.
type PatientSummary struct {
	ID    string `db:"id" json:"id"`
	Label string `db:"label" json:"label"`
}

// PatientDetail is the denormalized display block fetched after a patient is
// selected. The fetch is independent of the visit form and may still be in
// flight while the clinician edits.
type PatientDetail struct {
	ID            string `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	Age           int    `db:"age" json:"age"`
	BloodType     string `db:"blood_type" json:"blood_type"`
	Phone         string `db:"phone" json:"phone"`
	PatientNumber string `db:"patient_number" json:"patient_number"`
}
