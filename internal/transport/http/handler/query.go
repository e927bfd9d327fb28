package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docuchat/internal/query"
	"docuchat/internal/store"
	"docuchat/internal/transport/http/response"
)

type QueryHandler struct {
	orchestrator *query.Orchestrator
	analysis     *query.AnalysisService
}

type queryRequest struct {
	Query       string   `json:"query" binding:"required"`
	DocumentIDs []string `json:"document_ids"`
}

type analysisRequest struct {
	DocumentIDs []string `json:"document_ids"`
	Context     string   `json:"context"`
}

func NewQueryHandler(orch *query.Orchestrator, analysis *query.AnalysisService) *QueryHandler {
	return &QueryHandler{orchestrator: orch, analysis: analysis}
}

func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.orchestrator.Answer(c.Request.Context(), req.Query, req.DocumentIDs)
	if err != nil {
		h.queryError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *QueryHandler) Analyze(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.analysis.Analyze(c.Request.Context(), req.DocumentIDs, req.Context)
	if err != nil {
		h.queryError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *QueryHandler) GetAnalysis(c *gin.Context) {
	result, err := h.analysis.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "analysis not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "get analysis failed")
		return
	}
	response.OK(c, result)
}

func (h *QueryHandler) queryError(c *gin.Context, err error) {
	var queryFailed *query.QueryFailedError
	switch {
	case errors.Is(err, query.ErrNoDocumentsSelected):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, query.ErrAllDocumentsExcluded):
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &queryFailed):
		response.Error(c, http.StatusBadGateway, queryFailed.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "query failed")
	}
}
