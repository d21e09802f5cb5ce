package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableGenerator interface {
	GenerateFixedTimetable(ctx context.Context, req dto.GenerateFixedTimetableRequest) (*dto.GenerationResult, error)
	GeneratePlan(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GenerationResult, error)
	ResetPlanFromFixed(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GenerationResult, error)
}

type generationJobs interface {
	EnqueueFixed(req dto.GenerateFixedTimetableRequest) (*dto.GenerationJob, error)
	EnqueuePlan(req dto.GeneratePlanRequest) (*dto.GenerationJob, error)
	Get(id string) (*dto.GenerationJob, error)
}

// TimetableHandler exposes fixed timetable and plan generation endpoints.
type TimetableHandler struct {
	generator timetableGenerator
	jobs      generationJobs
}

// NewTimetableHandler constructs the handler. jobs may be nil when async generation is off.
func NewTimetableHandler(generator timetableGenerator, jobs generationJobs) *TimetableHandler {
	return &TimetableHandler{generator: generator, jobs: jobs}
}

// GenerateFixed godoc
// @Summary Generate the fixed timetable of a term
// @Description Replaces every fixed timetable slot of the term from its required lesson counts, weekly rules and calendar.
// @Tags Timetable
// @Produce json
// @Param termId path string true "Term ID"
// @Param async query bool false "Run in the background"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /terms/{termId}/fixed-timetable/generate [post]
func (h *TimetableHandler) GenerateFixed(c *gin.Context) {
	req := dto.GenerateFixedTimetableRequest{TermID: c.Param("termId"), RequestedBy: requesterID(c)}
	if h.async(c) {
		job, err := h.jobs.EnqueueFixed(req)
		if err != nil {
			response.ErrorWithData(c, err, dto.OutcomeFromError(err))
			return
		}
		response.Accepted(c, job)
		return
	}
	result, err := h.generator.GenerateFixedTimetable(c.Request.Context(), req)
	respondGeneration(c, result, err)
}

// GeneratePlan godoc
// @Summary Generate the slots of a timetable plan
// @Description Replaces every slot of the plan using equal weekday shares and a shuffled, previous-day aware assignment.
// @Tags Timetable
// @Produce json
// @Param termId path string true "Term ID"
// @Param planId path string true "Timetable plan ID"
// @Param async query bool false "Run in the background"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /terms/{termId}/timetables/{planId}/generate [post]
func (h *TimetableHandler) GeneratePlan(c *gin.Context) {
	req := dto.GeneratePlanRequest{TermID: c.Param("termId"), PlanID: c.Param("planId"), RequestedBy: requesterID(c)}
	if h.async(c) {
		job, err := h.jobs.EnqueuePlan(req)
		if err != nil {
			response.ErrorWithData(c, err, dto.OutcomeFromError(err))
			return
		}
		response.Accepted(c, job)
		return
	}
	result, err := h.generator.GeneratePlan(c.Request.Context(), req)
	respondGeneration(c, result, err)
}

// ResetPlan godoc
// @Summary Reset a timetable plan from the fixed timetable
// @Tags Timetable
// @Produce json
// @Param termId path string true "Term ID"
// @Param planId path string true "Timetable plan ID"
// @Success 200 {object} response.Envelope
// @Router /terms/{termId}/timetables/{planId}/reset [post]
func (h *TimetableHandler) ResetPlan(c *gin.Context) {
	req := dto.GeneratePlanRequest{TermID: c.Param("termId"), PlanID: c.Param("planId"), RequestedBy: requesterID(c)}
	result, err := h.generator.ResetPlanFromFixed(c.Request.Context(), req)
	respondGeneration(c, result, err)
}

// Job godoc
// @Summary Get the status of a background generation
// @Tags Timetable
// @Produce json
// @Param jobId path string true "Generation job ID"
// @Success 200 {object} response.Envelope
// @Router /generation-jobs/{jobId} [get]
func (h *TimetableHandler) Job(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, errAsyncDisabled)
		return
	}
	job, err := h.jobs.Get(c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

func (h *TimetableHandler) async(c *gin.Context) bool {
	if h.jobs == nil {
		return false
	}
	async, _ := strconv.ParseBool(c.Query("async"))
	return async
}

// respondGeneration always answers with the {success, message} outcome, plus the error
// envelope when the run failed.
func respondGeneration(c *gin.Context, result *dto.GenerationResult, err error) {
	if err != nil {
		response.ErrorWithData(c, err, dto.OutcomeFromError(err))
		return
	}
	response.JSON(c, http.StatusOK, result)
}
