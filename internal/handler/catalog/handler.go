package catalog

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/visit-api/internal/catalog"
	"github.com/jwalitptl/visit-api/internal/handler"
	"github.com/jwalitptl/visit-api/internal/model"
	"github.com/jwalitptl/visit-api/pkg/httputil"
	"github.com/jwalitptl/visit-api/pkg/metrics"
)

// Handler serves paged reference-catalog searches directly, for clients
// that browse a catalog outside a draft session.
type Handler struct {
	resolver catalog.Resolver
	metrics  *metrics.Metrics
}

func NewHandler(resolver catalog.Resolver, m *metrics.Metrics) *Handler {
	return &Handler{resolver: resolver, metrics: m}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	catalogs := r.Group("/catalogs")
	{
		catalogs.GET("/:kind", h.Search)
	}
}

func (h *Handler) Search(c *gin.Context) {
	kind := model.CatalogKind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("unknown catalog"))
		return
	}

	var q model.CatalogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	start := time.Now()
	page, err := h.resolver.Search(c.Request.Context(), kind, q)
	h.metrics.CatalogSearchLatency.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		h.metrics.CatalogSearches.WithLabelValues(string(kind), "error").Inc()
		httputil.RespondWithError(c, err)
		return
	}
	h.metrics.CatalogSearches.WithLabelValues(string(kind), "success").Inc()
	httputil.RespondWithPagination(c, page.Entries, page.Page, page.PageSize, page.Total)
}
