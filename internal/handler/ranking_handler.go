package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ebd-attendance-api/internal/middleware"
	"github.com/noah-isme/ebd-attendance-api/internal/models"
	"github.com/noah-isme/ebd-attendance-api/internal/service"
	"github.com/noah-isme/ebd-attendance-api/pkg/response"
)

type rankingService interface {
	RankForDate(ctx context.Context, rawDate string) (*models.Ranking, bool, error)
	Export(ctx context.Context, rawDate, format string) (*service.RankingExport, error)
}

// RankingHandler exposes the per-date class ranking.
type RankingHandler struct {
	service rankingService
}

// NewRankingHandler constructs a ranking handler.
func NewRankingHandler(svc rankingService) *RankingHandler {
	return &RankingHandler{service: svc}
}

// Get godoc
// @Summary Class ranking by attendance percentage
// @Description An empty entries list and a null winner mean no ranking is available for the date.
// @Tags Rankings
// @Produce json
// @Param date query string false "Date (DD/MM/YYYY or YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /rankings [get]
func (h *RankingHandler) Get(c *gin.Context) {
	start := time.Now()
	ranking, cacheHit, err := h.service.RankForDate(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "available", ranking.Available())
	response.JSON(c, http.StatusOK, ranking, middleware.ExtractMeta(c, start))
}

// Export godoc
// @Summary Download the class ranking
// @Tags Rankings
// @Produce text/csv
// @Produce application/pdf
// @Param date query string false "Date (DD/MM/YYYY or YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /rankings/export [get]
func (h *RankingHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Query("date"), c.DefaultQuery("format", service.FormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
