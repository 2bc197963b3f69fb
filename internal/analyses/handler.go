package analyses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldoc-backend/internal/documents"
	"legaldoc-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analysis service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// AnalyzeResponse is returned by the analyze and re-analyze endpoints.
type AnalyzeResponse struct {
	Message  string                   `json:"message"`
	Analysis documents.AnalysisResult `json:"analysis"`
}

// AnalysisResponse is returned when reading a stored analysis.
type AnalysisResponse struct {
	DocumentID string                   `json:"documentId"`
	FileName   string                   `json:"fileName"`
	Analysis   documents.AnalysisResult `json:"analysis"`
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analysis/:id/analyze", h.analyze)
	rg.POST("/analysis/:id/re-analyze", h.reAnalyze)
	rg.GET("/analysis/:id", h.get)
}

func (h *Handler) analyze(c *gin.Context) {
	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	out, err := h.Svc.Analyze(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	message := "Document analyzed successfully"
	if out.Reused {
		message = "Document already analyzed"
	}
	c.Set("statusTransition", statusTransition(out))
	respond.OK(c, AnalyzeResponse{Message: message, Analysis: out.Result})
}

func (h *Handler) reAnalyze(c *gin.Context) {
	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	out, err := h.Svc.ReAnalyze(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("statusTransition", statusTransition(out))
	respond.OK(c, AnalyzeResponse{Message: "Document re-analyzed successfully", Analysis: out.Result})
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, AnalysisResponse{
		DocumentID: doc.ID,
		FileName:   doc.OriginalName,
		Analysis:   *doc.Analysis,
	})
}

// statusTransition labels the request log with the state change a run made.
func statusTransition(out Outcome) string {
	switch {
	case out.Reused:
		return "analyzed->analyzed"
	case out.Previous == documents.StateAnalyzed:
		return "analyzed->reanalyzed"
	default:
		return "unanalyzed->analyzed"
	}
}

func writeError(c *gin.Context, err error) {
	retryable := Retryable(err)
	if retryable {
		c.Header("Retry-After", "5")
	}

	switch {
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	case errors.Is(err, documents.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotAnalyzed):
		respond.Error(c, http.StatusBadRequest, "not_analyzed", "Document has not been analyzed yet", nil)
	case errors.Is(err, ErrConcurrencyConflict):
		respond.Error(c, http.StatusConflict, "analysis_in_progress", "An analysis for this document is already in progress", gin.H{"retryable": retryable})
	case errors.Is(err, ErrMalformedResponse):
		details := gin.H{"retryable": retryable}
		var mre *MalformedResponseError
		if errors.As(err, &mre) {
			details["stage"] = string(mre.Stage)
		}
		respond.Error(c, http.StatusBadGateway, "malformed_response", "The analysis engine returned an unusable response", details)
	case errors.Is(err, ErrExternalService):
		respond.Error(c, http.StatusBadGateway, "external_service_error", "Failed to analyze document", gin.H{"retryable": retryable})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to analyze document", nil)
	}
}
