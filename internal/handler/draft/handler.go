package draft

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/visit-api/internal/handler"
	"github.com/jwalitptl/visit-api/internal/middleware"
	"github.com/jwalitptl/visit-api/internal/model"
	"github.com/jwalitptl/visit-api/internal/visit"
	"github.com/jwalitptl/visit-api/pkg/httputil"
	"github.com/jwalitptl/visit-api/pkg/metrics"
)

// Handler exposes the draft-session lifecycle over HTTP. Every route acts
// on one live orchestrator held by the manager; the handler owns no draft
// state of its own.
type Handler struct {
	manager *visit.Manager
	metrics *metrics.Metrics
}

func NewHandler(manager *visit.Manager, m *metrics.Metrics) *Handler {
	return &Handler{manager: manager, metrics: m}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	drafts := r.Group("/drafts")
	{
		drafts.POST("", h.OpenDraft)
		drafts.GET("/:id", h.GetDraft)
		drafts.DELETE("/:id", h.CloseDraft)

		drafts.POST("/:id/patient", h.SelectPatient)
		drafts.PUT("/:id/visit-type", h.SelectVisitType)
		drafts.PUT("/:id/fields", h.UpdateScalars)

		drafts.POST("/:id/collections/:collection/items", h.AddItem)
		drafts.DELETE("/:id/collections/:collection/items/:index", h.RemoveItem)
		drafts.PATCH("/:id/collections/:collection/items/:index", h.PatchItem)

		drafts.POST("/:id/attachments", h.AddAttachment)

		drafts.POST("/:id/search", h.OpenSearch)
		drafts.PUT("/:id/search/filter", h.SetSearchFilter)
		drafts.PUT("/:id/search/page", h.SetSearchPage)
		drafts.POST("/:id/search/pick", h.PickSearchResult)
		drafts.DELETE("/:id/search", h.CancelSearch)

		drafts.POST("/:id/submit", h.Submit)
	}
}

// OpenDraft starts an authoring session. A visit_id in the body opens the
// session in edit mode; rehydration failure means no session exists.
func (h *Handler) OpenDraft(c *gin.Context) {
	sess, ok := sessionContext(c)
	if !ok {
		return
	}

	var req model.OpenDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if req.VisitID != "" {
		visitID, err := uuid.Parse(req.VisitID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid visit id"))
			return
		}
		o, err := h.manager.OpenForEdit(c.Request.Context(), sess, visitID)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		h.metrics.DraftSessionsOpened.WithLabelValues("edit").Inc()
		c.JSON(http.StatusCreated, handler.NewSuccessResponse(o.Snapshot()))
		return
	}

	o := h.manager.Open(sess)
	h.metrics.DraftSessionsOpened.WithLabelValues("create").Inc()
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(o.Snapshot()))
}

func (h *Handler) GetDraft(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

func (h *Handler) CloseDraft(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session id"))
		return
	}
	h.manager.Close(id)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"closed": true}))
}

func (h *Handler) SelectPatient(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}

	var req model.SelectPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := o.SelectPatient(req.PatientID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

func (h *Handler) SelectVisitType(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}

	var req model.SelectVisitTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	discarded, err := o.SelectVisitType(req.VisitType)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"snapshot":         o.Snapshot(),
		"discarded_dental": discarded,
	}))
}

func (h *Handler) UpdateScalars(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}

	var req model.UpdateScalarsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	fieldErrs, err := o.UpdateScalars(req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if !fieldErrs.Empty() {
		c.JSON(http.StatusOK, handler.NewValidationResponse(fieldErrs))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

func (h *Handler) AddItem(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}
	kind := model.CollectionKind(c.Param("collection"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("unknown collection"))
		return
	}

	if err := o.AddItem(kind); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.metrics.CollectionMutations.WithLabelValues(string(kind), "add").Inc()
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

func (h *Handler) RemoveItem(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}
	kind := model.CollectionKind(c.Param("collection"))
	index, ok2 := parseIndex(c)
	if !kind.Valid() || !ok2 {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("unknown collection or index"))
		return
	}

	if err := o.RemoveItem(kind, index); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.metrics.CollectionMutations.WithLabelValues(string(kind), "remove").Inc()
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

// PatchItem decodes the per-collection patch shape and applies it to the
// addressed row.
func (h *Handler) PatchItem(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}
	kind := model.CollectionKind(c.Param("collection"))
	index, ok2 := parseIndex(c)
	if !ok2 {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid index"))
		return
	}

	var err error
	switch kind {
	case model.CollectionMedications:
		var req model.PatchMedicationRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(bindErr.Error()))
			return
		}
		err = o.PatchMedication(index, req)
	case model.CollectionLabTests, model.CollectionRays:
		var req model.PatchTestRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(bindErr.Error()))
			return
		}
		err = o.PatchTest(kind, index, req)
	case model.CollectionDental:
		var req model.PatchDentalProcedureRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(bindErr.Error()))
			return
		}
		err = o.PatchDentalProcedure(index, req)
	default:
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("collection is not patchable"))
		return
	}

	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.metrics.CollectionMutations.WithLabelValues(string(kind), "patch").Inc()
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

func (h *Handler) AddAttachment(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}

	var req model.AddAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := o.AddAttachment(req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

func (h *Handler) OpenSearch(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}

	var req model.OpenSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := o.OpenSearch(req.Collection, req.Index); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

func (h *Handler) SetSearchFilter(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}

	var req model.SearchFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := o.SetSearchFilter(req.Filter); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

func (h *Handler) SetSearchPage(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}

	var req model.SearchFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := o.SetSearchPage(req.Page); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

func (h *Handler) PickSearchResult(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}

	var req model.PickResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := o.PickSearchResult(req.CatalogID, req.Label); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

func (h *Handler) CancelSearch(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}
	o.CancelSearch()
	c.JSON(http.StatusOK, handler.NewSuccessResponse(o.Snapshot()))
}

// Submit runs validation and, if the draft is clean, persists it. A dirty
// draft comes back as 422 with the path-addressed error map; a persistence
// failure keeps the draft alive for retry.
func (h *Handler) Submit(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}

	visitID, errs, err := o.Submit(c.Request.Context())
	if err != nil {
		h.metrics.VisitSubmissions.WithLabelValues("error").Inc()
		httputil.RespondWithError(c, err)
		return
	}
	if !errs.Empty() {
		h.metrics.VisitSubmissions.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusUnprocessableEntity, handler.NewValidationResponse(errs))
		return
	}

	h.metrics.VisitSubmissions.WithLabelValues("success").Inc()
	h.manager.Close(o.ID())
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"visit_id": visitID}))
}

func (h *Handler) session(c *gin.Context) (*visit.Orchestrator, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session id"))
		return nil, false
	}
	o, err := h.manager.Get(id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return nil, false
	}
	h.manager.Touch(id)
	return o, true
}

func sessionContext(c *gin.Context) (visit.SessionContext, bool) {
	clinicianID, ok1 := c.Get(middleware.ContextClinicianID)
	clinicID, ok2 := c.Get(middleware.ContextClinicID)
	if !ok1 || !ok2 {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing session identity"))
		return visit.SessionContext{}, false
	}
	return visit.SessionContext{
		ClinicianID: clinicianID.(uuid.UUID),
		ClinicID:    clinicID.(uuid.UUID),
	}, true
}

func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}
