package model

// Request shapes for the draft-session API. Structural validation happens at
// bind time; clinical validation of the assembled draft is the validation
// engine's job and is only run on submit.

type OpenDraftRequest struct {
	VisitID string `json:"visit_id"`
}

type SelectPatientRequest struct {
	PatientID string `json:"patient_id" binding:"required"`
}

type SelectVisitTypeRequest struct {
	VisitType VisitType `json:"visit_type" binding:"required"`
}

type UpdateScalarsRequest struct {
	Symptoms  *string `json:"symptoms"`
	Diagnosis *string `json:"diagnosis"`
	Notes     *string `json:"notes"`
}

type PatchMedicationRequest struct {
	CatalogID *string    `json:"catalog_id"`
	Name      *string    `json:"name"`
	Dosage    *string    `json:"dosage"`
	Frequency *Frequency `json:"frequency"`
	Duration  *int       `json:"duration"`
	Notes     *string    `json:"notes"`
}

type PatchTestRequest struct {
	Notes *string `json:"notes"`
}

type PatchDentalProcedureRequest struct {
	Teeth *[]string `json:"teeth"`
	Type  *string   `json:"type"`
	Notes *string   `json:"notes"`
}

type AddAttachmentRequest struct {
	Name     string `json:"name" binding:"required"`
	Size     int64  `json:"size" binding:"required,gt=0"`
	MimeType string `json:"mime_type" binding:"required"`
	LocalURL string `json:"local_url"`
}

type OpenSearchRequest struct {
	Collection CollectionKind `json:"collection" binding:"required"`
	Index      int            `json:"index"`
}

type SearchFilterRequest struct {
	Filter string `json:"filter"`
	Page   int    `json:"page"`
}

type PickResultRequest struct {
	CatalogID string `json:"catalog_id" binding:"required"`
	Label     string `json:"label" binding:"required"`
}

// CollectionKind names one of the repeatable collections of a draft.
type CollectionKind string

const (
	CollectionMedications CollectionKind = "medications"
	CollectionLabTests    CollectionKind = "lab_tests"
	CollectionRays        CollectionKind = "rays"
	CollectionDental      CollectionKind = "dental_procedures"
	CollectionAttachments CollectionKind = "attachments"
)

func (k CollectionKind) Valid() bool {
	switch k {
	case CollectionMedications, CollectionLabTests, CollectionRays, CollectionDental, CollectionAttachments:
		return true
	}
	return false
}

// Searchable reports whether the collection binds against a catalog.
func (k CollectionKind) Searchable() bool {
	switch k {
	case CollectionMedications, CollectionLabTests, CollectionRays:
		return true
	}
	return false
}

// Catalog maps a searchable collection to its reference catalog.
func (k CollectionKind) Catalog() CatalogKind {
	switch k {
	case CollectionMedications:
		return CatalogMedicines
	case CollectionLabTests:
		return CatalogLabTests
	case CollectionRays:
		return CatalogRayTests
	}
	return ""
}
