package patient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/visit-api/internal/handler"
	"github.com/jwalitptl/visit-api/internal/middleware"
	"github.com/jwalitptl/visit-api/internal/model"
	"github.com/jwalitptl/visit-api/internal/service/patient"
	"github.com/jwalitptl/visit-api/pkg/httputil"
)

// VisitHistory lists a patient's submitted visits.
type VisitHistory interface {
	ListForPatient(ctx context.Context, patientID string, p model.Pagination) ([]*model.Visit, error)
}

type Handler struct {
	service *patient.Service
	visits  VisitHistory
}

func NewHandler(service *patient.Service, visits VisitHistory) *Handler {
	return &Handler{service: service, visits: visits}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.SearchPatients)
		patients.GET("/:id", h.GetPatientDetail)
		patients.GET("/:id/visits", h.ListVisits)
	}
}

// SearchPatients serves the patient picker. The clinic comes from the
// session identity, never from the query.
func (h *Handler) SearchPatients(c *gin.Context) {
	clinicID, ok := c.Get(middleware.ContextClinicID)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing session identity"))
		return
	}

	summaries, err := h.service.SearchPatients(c.Request.Context(), clinicID.(uuid.UUID), c.Query("filter"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summaries))
}

func (h *Handler) GetPatientDetail(c *gin.Context) {
	detail, err := h.service.GetPatientDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

// ListVisits returns the patient's submitted visit history, newest first.
func (h *Handler) ListVisits(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	visits, err := h.visits.ListForPatient(c.Request.Context(), c.Param("id"), model.Pagination{
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(visits))
}
