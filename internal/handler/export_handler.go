package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableExporter interface {
	Export(ctx context.Context, req dto.TimetableExportRequest) (*dto.ExportFile, error)
}

// ExportHandler serves timetable downloads.
type ExportHandler struct {
	service timetableExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc timetableExporter) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Fixed godoc
// @Summary Download the fixed timetable
// @Tags Timetable
// @Produce octet-stream
// @Param termId path string true "Term ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Router /terms/{termId}/fixed-timetable/export [get]
func (h *ExportHandler) Fixed(c *gin.Context) {
	h.serve(c, dto.TimetableExportRequest{TermID: c.Param("termId"), Format: exportFormat(c)})
}

// Plan godoc
// @Summary Download a timetable plan
// @Tags Timetable
// @Produce octet-stream
// @Param termId path string true "Term ID"
// @Param planId path string true "Timetable plan ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Router /terms/{termId}/timetables/{planId}/export [get]
func (h *ExportHandler) Plan(c *gin.Context) {
	h.serve(c, dto.TimetableExportRequest{TermID: c.Param("termId"), PlanID: c.Param("planId"), Format: exportFormat(c)})
}

func (h *ExportHandler) serve(c *gin.Context, req dto.TimetableExportRequest) {
	file, err := h.service.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Content)
}

func exportFormat(c *gin.Context) dto.ExportFormat {
	return dto.ExportFormat(c.DefaultQuery("format", string(dto.ExportFormatCSV)))
}
