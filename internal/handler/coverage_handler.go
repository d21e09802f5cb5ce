package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type coverageReporter interface {
	FixedTimetableCoverage(ctx context.Context, termID string) (*dto.CoverageReport, error)
	PlanCoverage(ctx context.Context, termID, planID string) (*dto.CoverageReport, error)
}

// CoverageHandler compares timetables against required lesson counts.
type CoverageHandler struct {
	service coverageReporter
}

// NewCoverageHandler constructs the handler.
func NewCoverageHandler(svc coverageReporter) *CoverageHandler {
	return &CoverageHandler{service: svc}
}

// Fixed godoc
// @Summary Requirement coverage of the fixed timetable
// @Tags Timetable
// @Produce json
// @Param termId path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /terms/{termId}/fixed-timetable/coverage [get]
func (h *CoverageHandler) Fixed(c *gin.Context) {
	report, err := h.service.FixedTimetableCoverage(c.Request.Context(), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Plan godoc
// @Summary Requirement coverage of a timetable plan
// @Tags Timetable
// @Produce json
// @Param termId path string true "Term ID"
// @Param planId path string true "Timetable plan ID"
// @Success 200 {object} response.Envelope
// @Router /terms/{termId}/timetables/{planId}/coverage [get]
func (h *CoverageHandler) Plan(c *gin.Context) {
	report, err := h.service.PlanCoverage(c.Request.Context(), c.Param("termId"), c.Param("planId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}
