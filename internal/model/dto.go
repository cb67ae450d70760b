package model

import "github.com/google/uuid"

// VisitDTO is the composite submission object handed to the persistence
// boundary. It carries no client-only fields: clientKey and localUrl never
// cross this boundary. ID is set only for edit-mode submissions; its
// presence signals update rather than create.
type VisitDTO struct {
	ID               *uuid.UUID           `json:"id,omitempty"`
	ClinicID         uuid.UUID            `json:"clinic_id"`
	ClinicianID      uuid.UUID            `json:"clinician_id"`
	PatientID        string               `json:"patient_id"`
	VisitType        VisitType            `json:"visit_type"`
	Symptoms         string               `json:"symptoms"`
	Diagnosis        string               `json:"diagnosis"`
	Notes            string               `json:"notes,omitempty"`
	Medications      []MedicationDTO      `json:"medications"`
	LabTests         []LabTestDTO         `json:"lab_tests"`
	Rays             []LabTestDTO         `json:"rays"`
	DentalProcedures []DentalProcedureDTO `json:"dental_procedures,omitempty"`
	Attachments      []AttachmentDTO      `json:"attachments"`
}

type MedicationDTO struct {
	CatalogID string    `json:"catalog_id"`
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage"`
	Frequency Frequency `json:"frequency"`
	Duration  int       `json:"duration"`
	Notes     string    `json:"notes,omitempty"`
}

// LabTestDTO is shared by lab tests and radiology tests; both are a bound
// catalog test plus optional notes.
type LabTestDTO struct {
	CatalogID string `json:"catalog_id"`
	TestName  string `json:"test_name"`
	Notes     string `json:"notes,omitempty"`
}

type DentalProcedureDTO struct {
	Teeth []string `json:"teeth"`
	Type  string   `json:"type"`
	Notes string   `json:"notes,omitempty"`
}

type AttachmentDTO struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}
