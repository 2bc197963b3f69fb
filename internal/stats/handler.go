package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldoc-backend/internal/shared/server/respond"
)

// Handler exposes the statistics overview.
type Handler struct {
	Agg *Aggregator
}

// NewHandler constructs a Handler.
func NewHandler(agg *Aggregator) *Handler {
	return &Handler{Agg: agg}
}

// RegisterRoutes attaches statistics routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats/overview", h.overview)
	rg.GET("/analysis/stats/overview", h.overview)
}

func (h *Handler) overview(c *gin.Context) {
	out, err := h.Agg.Overview(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch statistics", nil)
		return
	}
	respond.OK(c, out)
}
