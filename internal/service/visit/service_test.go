package visit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visit-api/internal/model"
	"github.com/jwalitptl/visit-api/internal/repository"
	"github.com/jwalitptl/visit-api/pkg/logger"
	"github.com/jwalitptl/visit-api/pkg/security"
)

type memoryVisitRepo struct {
	visits map[uuid.UUID]*model.Visit
}

func newMemoryVisitRepo() *memoryVisitRepo {
	return &memoryVisitRepo{visits: make(map[uuid.UUID]*model.Visit)}
}

func (r *memoryVisitRepo) Create(_ context.Context, v *model.Visit) error {
	stored := *v
	r.visits[v.ID] = &stored
	return nil
}

func (r *memoryVisitRepo) Update(_ context.Context, v *model.Visit) error {
	stored := *v
	r.visits[v.ID] = &stored
	return nil
}

func (r *memoryVisitRepo) Get(_ context.Context, id uuid.UUID) (*model.Visit, error) {
	v := *r.visits[id]
	return &v, nil
}

func (r *memoryVisitRepo) ListForPatient(_ context.Context, patientID string, _ model.Pagination) ([]*model.Visit, error) {
	var visits []*model.Visit
	for _, v := range r.visits {
		if v.PatientID == patientID {
			stored := *v
			visits = append(visits, &stored)
		}
	}
	return visits, nil
}

type memoryOutboxRepo struct {
	events []*model.OutboxEvent
}

func (r *memoryOutboxRepo) Create(_ context.Context, e *model.OutboxEvent) error {
	r.events = append(r.events, e)
	return nil
}

func (r *memoryOutboxRepo) GetPendingEvents(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return r.events, nil
}

func (r *memoryOutboxRepo) BeginTx(_ context.Context) (repository.Tx, error) { return nil, nil }

func (r *memoryOutboxRepo) UpdateStatusTx(_ context.Context, _ repository.Tx, _ uuid.UUID, _ string, _ *string, _ *time.Time) error {
	return nil
}

func (r *memoryOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func testService(t *testing.T) (*Service, *memoryVisitRepo, *memoryOutboxRepo) {
	t.Helper()
	enc, err := security.NewAESEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	repo := newMemoryVisitRepo()
	outbox := &memoryOutboxRepo{}
	return NewService(repo, outbox, enc, nil, logger.NewLogger(nil)), repo, outbox
}

func submission() *model.VisitDTO {
	return &model.VisitDTO{
		ClinicID:    uuid.New(),
		ClinicianID: uuid.New(),
		PatientID:   "P1",
		VisitType:   model.VisitTypeNew,
		Symptoms:    "fever",
		Diagnosis:   "flu",
		Medications: []model.MedicationDTO{{
			CatalogID: "M1",
			Name:      "Amoxicillin",
			Dosage:    "500mg",
			Frequency: model.FrequencyDaily,
			Duration:  7,
		}},
		LabTests:    []model.LabTestDTO{{CatalogID: "LT1", TestName: "CBC"}},
		Rays:        []model.LabTestDTO{},
		Attachments: []model.AttachmentDTO{},
	}
}

func TestCreateEncryptsClinicalTextAtRest(t *testing.T) {
	svc, repo, _ := testService(t)

	id, err := svc.CreateOrUpdate(context.Background(), submission())
	require.NoError(t, err)

	stored := repo.visits[id]
	require.NotNil(t, stored)
	assert.NotEqual(t, "fever", stored.Symptoms)
	assert.NotEqual(t, "flu", stored.Diagnosis)
	assert.NotEmpty(t, stored.Symptoms)
}

func TestCreateThenGetForEditRoundTrip(t *testing.T) {
	svc, _, _ := testService(t)
	dto := submission()

	id, err := svc.CreateOrUpdate(context.Background(), dto)
	require.NoError(t, err)

	got, err := svc.GetForEdit(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "fever", got.Symptoms)
	assert.Equal(t, "flu", got.Diagnosis)
	require.Len(t, got.Medications, 1)
	assert.Equal(t, "Amoxicillin", got.Medications[0].Name)
	require.Len(t, got.LabTests, 1)
	assert.Equal(t, "LT1", got.LabTests[0].CatalogID)
	assert.Empty(t, got.DentalProcedures)
}

func TestListForPatientDecryptsAndDecodes(t *testing.T) {
	svc, _, _ := testService(t)

	_, err := svc.CreateOrUpdate(context.Background(), submission())
	require.NoError(t, err)

	other := submission()
	other.PatientID = "P2"
	_, err = svc.CreateOrUpdate(context.Background(), other)
	require.NoError(t, err)

	visits, err := svc.ListForPatient(context.Background(), "P1", model.Pagination{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "fever", visits[0].Symptoms)
	require.Len(t, visits[0].Medications, 1)
	assert.Equal(t, "Amoxicillin", visits[0].Medications[0].Name)
}

func TestUpdateSelectedByID(t *testing.T) {
	svc, repo, outbox := testService(t)

	id, err := svc.CreateOrUpdate(context.Background(), submission())
	require.NoError(t, err)

	updated := submission()
	updated.ID = &id
	updated.Diagnosis = "pneumonia"

	gotID, err := svc.CreateOrUpdate(context.Background(), updated)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Len(t, repo.visits, 1)

	require.Len(t, outbox.events, 2)
	assert.Equal(t, model.EventVisitCreate, outbox.events[0].EventType)
	assert.Equal(t, model.EventVisitUpdate, outbox.events[1].EventType)
}

func TestOutboxEventCarriesVisitIdentity(t *testing.T) {
	svc, _, outbox := testService(t)
	dto := submission()

	id, err := svc.CreateOrUpdate(context.Background(), dto)
	require.NoError(t, err)

	require.Len(t, outbox.events, 1)
	assert.Contains(t, string(outbox.events[0].Payload), id.String())
	assert.Contains(t, string(outbox.events[0].Payload), dto.PatientID)
}

func TestNilEncryptorStoresPlaintext(t *testing.T) {
	repo := newMemoryVisitRepo()
	svc := NewService(repo, &memoryOutboxRepo{}, nil, nil, logger.NewLogger(nil))

	id, err := svc.CreateOrUpdate(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, "fever", repo.visits[id].Symptoms)
}
