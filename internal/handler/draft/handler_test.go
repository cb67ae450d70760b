package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visit-api/internal/middleware"
	"github.com/jwalitptl/visit-api/internal/model"
	"github.com/jwalitptl/visit-api/internal/visit"
	apperrors "github.com/jwalitptl/visit-api/pkg/errors"
	"github.com/jwalitptl/visit-api/pkg/metrics"
)

// Prometheus collectors register globally, so the whole test binary shares
// one instance.
var (
	testMetrics     *metrics.Metrics
	testMetricsOnce sync.Once
)

func sharedMetrics() *metrics.Metrics {
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewMetrics("visit_api", "handler_test")
	})
	return testMetrics
}

type stubPatients struct{}

func (stubPatients) SearchPatients(_ context.Context, _ uuid.UUID, _ string) ([]model.PatientSummary, error) {
	return nil, nil
}

func (stubPatients) GetPatientDetail(_ context.Context, id string) (*model.PatientDetail, error) {
	return &model.PatientDetail{ID: id, Name: "Jane Roe"}, nil
}

type stubCatalogs struct{}

func (stubCatalogs) Search(_ context.Context, kind model.CatalogKind, q model.CatalogQuery) (*model.CatalogPage, error) {
	return &model.CatalogPage{Entries: []model.CatalogEntry{}, Page: q.Page, PageSize: 20}, nil
}

type testPersistence struct {
	mu        sync.Mutex
	submitted []*model.VisitDTO
}

func (p *testPersistence) CreateOrUpdate(_ context.Context, dto *model.VisitDTO) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, dto)
	if dto.ID != nil {
		return *dto.ID, nil
	}
	return uuid.New(), nil
}

func (p *testPersistence) GetForEdit(_ context.Context, _ uuid.UUID) (*model.Visit, error) {
	return nil, apperrors.NewNotFound("visit", nil)
}

func newTestRouter(t *testing.T) (*gin.Engine, *testPersistence) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := &testPersistence{}
	manager := visit.NewManager(visit.Deps{
		Patients:    stubPatients{},
		Catalogs:    stubCatalogs{},
		Persistence: db,
		Debounce:    10 * time.Millisecond,
	}, time.Minute, 0)

	engine := gin.New()
	group := engine.Group("/api/v1")
	group.Use(func(c *gin.Context) {
		c.Set(middleware.ContextClinicianID, uuid.New())
		c.Set(middleware.ContextClinicID, uuid.New())
		c.Next()
	})
	NewHandler(manager, sharedMetrics()).RegisterRoutes(group)
	return engine, db
}

type apiResponse struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Errors  map[string]string      `json:"errors"`
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func openDraft(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	code, resp := doJSON(t, engine, http.MethodPost, "/api/v1/drafts", nil)
	require.Equal(t, http.StatusCreated, code)
	id, _ := resp.Data["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestDraftLifecycleOverHTTP(t *testing.T) {
	engine, db := newTestRouter(t)
	id := openDraft(t, engine)

	code, resp := doJSON(t, engine, http.MethodPost, "/api/v1/drafts/"+id+"/patient",
		gin.H{"patient_id": "P1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "drafting", resp.Data["state"])

	code, _ = doJSON(t, engine, http.MethodPut, "/api/v1/drafts/"+id+"/fields",
		gin.H{"symptoms": "fever", "diagnosis": "flu"})
	require.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, engine, http.MethodPost, "/api/v1/drafts/"+id+"/collections/medications/items", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, engine, http.MethodPatch, "/api/v1/drafts/"+id+"/collections/medications/items/0",
		gin.H{"catalog_id": "M1", "name": "Amoxicillin", "dosage": "500mg", "frequency": "daily", "duration": 7})
	require.Equal(t, http.StatusOK, code)

	code, resp = doJSON(t, engine, http.MethodPost, "/api/v1/drafts/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, resp.Data["visit_id"])

	db.mu.Lock()
	defer db.mu.Unlock()
	require.Len(t, db.submitted, 1)
	assert.Equal(t, "Amoxicillin", db.submitted[0].Medications[0].Name)

	// Submission closes the session.
	code, _ = doJSON(t, engine, http.MethodGet, "/api/v1/drafts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSubmitInvalidDraftReturns422(t *testing.T) {
	engine, _ := newTestRouter(t)
	id := openDraft(t, engine)

	code, _ := doJSON(t, engine, http.MethodPost, "/api/v1/drafts/"+id+"/patient",
		gin.H{"patient_id": "P1"})
	require.Equal(t, http.StatusOK, code)

	code, resp := doJSON(t, engine, http.MethodPost, "/api/v1/drafts/"+id+"/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "invalid", resp.Status)
	assert.Contains(t, resp.Errors, "symptoms")
	assert.Contains(t, resp.Errors, "diagnosis")

	// The draft survives and the session stays open.
	code, getResp := doJSON(t, engine, http.MethodGet, "/api/v1/drafts/"+id, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "drafting", getResp.Data["state"])
}

func TestVisitTypeSwitchReportsDiscardedDental(t *testing.T) {
	engine, _ := newTestRouter(t)
	id := openDraft(t, engine)

	code, _ := doJSON(t, engine, http.MethodPost, "/api/v1/drafts/"+id+"/patient",
		gin.H{"patient_id": "P1"})
	require.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, engine, http.MethodPut, "/api/v1/drafts/"+id+"/visit-type",
		gin.H{"visit_type": "dental"})
	require.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, engine, http.MethodPost, "/api/v1/drafts/"+id+"/collections/dental_procedures/items", nil)
	require.Equal(t, http.StatusOK, code)

	code, resp := doJSON(t, engine, http.MethodPut, "/api/v1/drafts/"+id+"/visit-type",
		gin.H{"visit_type": "new"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp.Data["discarded_dental"])
}

func TestUnknownSessionIs404(t *testing.T) {
	engine, _ := newTestRouter(t)

	code, _ := doJSON(t, engine, http.MethodGet, "/api/v1/drafts/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUnknownCollectionIs400(t *testing.T) {
	engine, _ := newTestRouter(t)
	id := openDraft(t, engine)

	code, _ := doJSON(t, engine, http.MethodPost, "/api/v1/drafts/"+id+"/patient",
		gin.H{"patient_id": "P1"})
	require.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, engine, http.MethodPost, "/api/v1/drafts/"+id+"/collections/bogus/items", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
