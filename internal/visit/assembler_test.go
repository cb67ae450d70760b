package visit

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visit-api/internal/model"
)

func TestAssembleStripsClientFields(t *testing.T) {
	d := validDraft()
	d.Attachments = []model.AttachmentItem{{
		ClientKey: "k9",
		Name:      "xray.png",
		Size:      1024,
		MimeType:  "image/png",
		LocalURL:  "blob:local/abc",
	}}
	sess := SessionContext{ClinicianID: uuid.New(), ClinicID: uuid.New()}

	dto := Assemble(&d, sess)

	raw, err := json.Marshal(dto)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "client_key")
	assert.NotContains(t, string(raw), "local_url")
	assert.NotContains(t, string(raw), "blob:local")

	assert.Equal(t, sess.ClinicID, dto.ClinicID)
	assert.Equal(t, sess.ClinicianID, dto.ClinicianID)
	assert.Equal(t, "xray.png", dto.Attachments[0].Name)
}

func TestAssembleCreateModeOmitsID(t *testing.T) {
	d := validDraft()

	dto := Assemble(&d, SessionContext{})

	assert.Nil(t, dto.ID)
}

func TestAssembleEditModeCarriesID(t *testing.T) {
	d := validDraft()
	d.VisitID = uuid.New()

	dto := Assemble(&d, SessionContext{})

	require.NotNil(t, dto.ID)
	assert.Equal(t, d.VisitID, *dto.ID)
}

func TestAssembleEmptyCollectionsAreNonNil(t *testing.T) {
	d := model.VisitDraft{
		PatientID: "P1",
		VisitType: model.VisitTypeNew,
		Symptoms:  "fever",
		Diagnosis: "flu",
	}

	dto := Assemble(&d, SessionContext{})

	assert.NotNil(t, dto.Medications)
	assert.NotNil(t, dto.LabTests)
	assert.NotNil(t, dto.Rays)
	assert.NotNil(t, dto.Attachments)
	assert.Empty(t, dto.Medications)
}

func TestAssembleDentalOnlyForDentalVisits(t *testing.T) {
	d := validDraft()
	d.DentalProcedures = []model.DentalProcedureItem{{
		ClientKey: "k1",
		Teeth:     []string{"18", "17"},
		Type:      "extraction",
	}}

	dto := Assemble(&d, SessionContext{})
	assert.Nil(t, dto.DentalProcedures)

	d.VisitType = model.VisitTypeDental
	dto = Assemble(&d, SessionContext{})
	require.Len(t, dto.DentalProcedures, 1)
	assert.Equal(t, []string{"18", "17"}, dto.DentalProcedures[0].Teeth)
	assert.Equal(t, "extraction", dto.DentalProcedures[0].Type)
}

func TestAssemblePreservesItemOrder(t *testing.T) {
	d := validDraft()
	d.LabTests = []model.LabTestItem{
		{ClientKey: "a", CatalogID: "LT1", TestName: "CBC"},
		{ClientKey: "b", CatalogID: "LT2", TestName: "Lipid Panel"},
		{ClientKey: "c", CatalogID: "LT3", TestName: "HbA1c"},
	}

	dto := Assemble(&d, SessionContext{})

	require.Len(t, dto.LabTests, 3)
	assert.Equal(t, "CBC", dto.LabTests[0].TestName)
	assert.Equal(t, "Lipid Panel", dto.LabTests[1].TestName)
	assert.Equal(t, "HbA1c", dto.LabTests[2].TestName)
}
