package model

import (
	"github.com/google/uuid"
)

type VisitType string

const (
	VisitTypeNew      VisitType = "new"
	VisitTypeFollowUp VisitType = "followup"
	VisitTypeDental   VisitType = "dental"
)

func (v VisitType) Valid() bool {
	switch v {
	case VisitTypeNew, VisitTypeFollowUp, VisitTypeDental:
		return true
	}
	return false
}

type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyTwiceDaily Frequency = "twice_daily"
	FrequencyThreeDaily Frequency = "three_daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyAsNeeded   Frequency = "as_needed"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyTwiceDaily, FrequencyThreeDaily, FrequencyWeekly, FrequencyAsNeeded:
		return true
	}
	return false
}

// VisitDraft is the in-memory representation of one clinical visit being
// authored. It is owned exclusively by the form orchestrator for the
// lifetime of one editing session and is never shared mutable: every
// update replaces the previous value wholesale.
type VisitDraft struct {
	VisitID          uuid.UUID             `json:"visit_id,omitempty"`
	PatientID        string                `json:"patient_id"`
	VisitType        VisitType             `json:"visit_type"`
	Symptoms         string                `json:"symptoms"`
	Diagnosis        string                `json:"diagnosis"`
	Medications      []MedicationItem      `json:"medications"`
	LabTests         []LabTestItem         `json:"lab_tests"`
	Rays             []RadiologyTestItem   `json:"rays"`
	DentalProcedures []DentalProcedureItem `json:"dental_procedures,omitempty"`
	Notes            string                `json:"notes,omitempty"`
	Attachments      []AttachmentItem      `json:"attachments"`
}

// EditMode reports whether the draft was opened against an existing visit.
func (d *VisitDraft) EditMode() bool {
	return d.VisitID != uuid.Nil
}

// MedicationItem is one prescribed medication row. ClientKey addresses the
// row during editing only and is never persisted.
type MedicationItem struct {
	ClientKey string    `json:"client_key"`
	CatalogID string    `json:"catalog_id"`
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage"`
	Frequency Frequency `json:"frequency"`
	Duration  int       `json:"duration"`
	Notes     string    `json:"notes,omitempty"`
}

func (m MedicationItem) Key() string { return m.ClientKey }

func (m MedicationItem) WithKey(k string) MedicationItem {
	m.ClientKey = k
	return m
}

type LabTestItem struct {
	ClientKey string `json:"client_key"`
	CatalogID string `json:"catalog_id"`
	TestName  string `json:"test_name"`
	Notes     string `json:"notes,omitempty"`
}

func (t LabTestItem) Key() string { return t.ClientKey }

func (t LabTestItem) WithKey(k string) LabTestItem {
	t.ClientKey = k
	return t
}

type RadiologyTestItem struct {
	ClientKey string `json:"client_key"`
	CatalogID string `json:"catalog_id"`
	TestName  string `json:"test_name"`
	Notes     string `json:"notes,omitempty"`
}

func (t RadiologyTestItem) Key() string { return t.ClientKey }

func (t RadiologyTestItem) WithKey(k string) RadiologyTestItem {
	t.ClientKey = k
	return t
}

type DentalProcedureItem struct {
	ClientKey string   `json:"client_key"`
	Teeth     []string `json:"teeth"`
	Type      string   `json:"type"`
	Notes     string   `json:"notes,omitempty"`
}

func (p DentalProcedureItem) Key() string { return p.ClientKey }

func (p DentalProcedureItem) WithKey(k string) DentalProcedureItem {
	p.ClientKey = k
	return p
}

// AttachmentItem is a client-local file reference. LocalURL points at an
// ephemeral object and is stripped before submission.
type AttachmentItem struct {
	ClientKey string `json:"client_key"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	LocalURL  string `json:"local_url,omitempty"`
}

func (a AttachmentItem) Key() string { return a.ClientKey }

func (a AttachmentItem) WithKey(k string) AttachmentItem {
	a.ClientKey = k
	return a
}

// Visit is the persisted form of a submitted visit.
type Visit struct {
	Base
	ClinicID         uuid.UUID            `db:"clinic_id" json:"clinic_id"`
	ClinicianID      uuid.UUID            `db:"clinician_id" json:"clinician_id"`
	PatientID        string               `db:"patient_id" json:"patient_id"`
	VisitType        VisitType            `db:"visit_type" json:"visit_type"`
	Symptoms         string               `db:"symptoms" json:"symptoms"`
	Diagnosis        string               `db:"diagnosis" json:"diagnosis"`
	Notes            string               `db:"notes" json:"notes,omitempty"`
	MedicationsJSON  []byte               `db:"medications" json:"-"`
	LabTestsJSON     []byte               `db:"lab_tests" json:"-"`
	RaysJSON         []byte               `db:"rays" json:"-"`
	DentalJSON       []byte               `db:"dental_procedures" json:"-"`
	AttachmentsJSON  []byte               `db:"attachments" json:"-"`
	Medications      []MedicationDTO      `db:"-" json:"medications"`
	LabTests         []LabTestDTO         `db:"-" json:"lab_tests"`
	Rays             []LabTestDTO         `db:"-" json:"rays"`
	DentalProcedures []DentalProcedureDTO `db:"-" json:"dental_procedures,omitempty"`
	Attachments      []AttachmentDTO      `db:"-" json:"attachments"`
}
