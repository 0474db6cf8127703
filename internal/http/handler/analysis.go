package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pipemail.dev/triage/common/typesense"
	"pipemail.dev/triage/internal/http/dto"
	"pipemail.dev/triage/internal/store"
)

const maxListLimit = 100

type AnalysisHandler struct {
	analyses store.AnalysisStore
	search   typesense.Client // nil when search is not configured
}

func NewAnalysisHandler(analyses store.AnalysisStore, search typesense.Client) *AnalysisHandler {
	return &AnalysisHandler{analyses: analyses, search: search}
}

// List returns stored analyses, newest first, optionally filtered by
// project and category.
func (h *AnalysisHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := store.AnalysisFilter{
		Project:  c.Query("project"),
		Category: c.Query("category"),
		Limit:    queryInt32(c, "limit", 0),
		Offset:   queryInt32(c, "offset", 0),
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	analyses, err := h.analyses.List(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list analyses", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list analyses"})
		return
	}

	resp := dto.ListAnalysesResponse{
		Analyses: make([]dto.AnalysisSummary, 0, len(analyses)),
		Count:    len(analyses),
	}
	for _, a := range analyses {
		resp.Analyses = append(resp.Analyses, dto.ToAnalysisSummary(a))
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns one analysis with its full record payload.
func (h *AnalysisHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	analysis, err := h.analyses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get analysis", "error", err, "analysis_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get analysis"})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// Search runs a full-text query over the indexed analyses.
func (h *AnalysisHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}

	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	hits, err := h.search.Search(ctx, typesense.SearchQuery{
		Text:     q,
		Project:  c.Query("project"),
		Category: c.Query("category"),
		Limit:    int(queryInt32(c, "limit", 0)),
	})
	if err != nil {
		slog.ErrorContext(ctx, "search query failed", "error", err, "query", q)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	resp := dto.SearchResponse{
		Query: q,
		Hits:  make([]dto.SearchHit, 0, len(hits)),
		Count: len(hits),
	}
	for _, hit := range hits {
		resp.Hits = append(resp.Hits, dto.ToSearchHit(hit))
	}
	c.JSON(http.StatusOK, resp)
}

func queryInt32(c *gin.Context, key string, fallback int32) int32 {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 0 {
		return fallback
	}
	return int32(v)
}
