package visit

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/visit-api/internal/model"
)

// SessionContext carries the acting identity a submission is made under.
type SessionContext struct {
	ClinicianID uuid.UUID
	ClinicID    uuid.UUID
}

// Assemble converts a draft into the composite submission DTO. It is a pure
// transform: client-only fields (clientKey, localUrl) are stripped from
// every nested item, and the existing visit id is carried only when the
// draft was opened in edit mode. Collections always come out as non-nil
// slices so the persistence boundary never sees null where a list belongs.
func Assemble(d *model.VisitDraft, sess SessionContext) *model.VisitDTO {
	dto := &model.VisitDTO{
		ClinicID:    sess.ClinicID,
		ClinicianID: sess.ClinicianID,
		PatientID:   d.PatientID,
		VisitType:   d.VisitType,
		Symptoms:    d.Symptoms,
		Diagnosis:   d.Diagnosis,
		Notes:       d.Notes,
		Medications: make([]model.MedicationDTO, 0, len(d.Medications)),
		LabTests:    make([]model.LabTestDTO, 0, len(d.LabTests)),
		Rays:        make([]model.LabTestDTO, 0, len(d.Rays)),
		Attachments: make([]model.AttachmentDTO, 0, len(d.Attachments)),
	}

	if d.EditMode() {
		id := d.VisitID
		dto.ID = &id
	}

	for _, m := range d.Medications {
		dto.Medications = append(dto.Medications, model.MedicationDTO{
			CatalogID: m.CatalogID,
			Name:      m.Name,
			Dosage:    m.Dosage,
			Frequency: m.Frequency,
			Duration:  m.Duration,
			Notes:     m.Notes,
		})
	}
	for _, t := range d.LabTests {
		dto.LabTests = append(dto.LabTests, model.LabTestDTO{
			CatalogID: t.CatalogID,
			TestName:  t.TestName,
			Notes:     t.Notes,
		})
	}
	for _, t := range d.Rays {
		dto.Rays = append(dto.Rays, model.LabTestDTO{
			CatalogID: t.CatalogID,
			TestName:  t.TestName,
			Notes:     t.Notes,
		})
	}

	if d.VisitType == model.VisitTypeDental && len(d.DentalProcedures) > 0 {
		dto.DentalProcedures = make([]model.DentalProcedureDTO, 0, len(d.DentalProcedures))
		for _, p := range d.DentalProcedures {
			teeth := make([]string, len(p.Teeth))
			copy(teeth, p.Teeth)
			dto.DentalProcedures = append(dto.DentalProcedures, model.DentalProcedureDTO{
				Teeth: teeth,
				Type:  p.Type,
				Notes: p.Notes,
			})
		}
	}

	for _, a := range d.Attachments {
		dto.Attachments = append(dto.Attachments, model.AttachmentDTO{
			Name:     a.Name,
			Size:     a.Size,
			MimeType: a.MimeType,
		})
	}

	return dto
}
