package dto

import (
	"errors"
	"time"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// GenerationTarget names what a generation run writes to.
type GenerationTarget string

const (
	GenerationTargetFixed GenerationTarget = "FIXED_TIMETABLE"
	GenerationTargetPlan  GenerationTarget = "PLAN"
)

// GenerateFixedTimetableRequest triggers regeneration of a term's fixed timetable.
type GenerateFixedTimetableRequest struct {
	TermID      string `json:"termId" validate:"required"`
	RequestedBy string `json:"-"`
}

// GeneratePlanRequest triggers regeneration of a timetable plan's slots.
type GeneratePlanRequest struct {
	TermID      string `json:"termId" validate:"required"`
	PlanID      string `json:"planId" validate:"required"`
	RequestedBy string `json:"-"`
}

// WeekdaySummary describes what a run placed on one weekday.
type WeekdaySummary struct {
	Weekday     int `json:"weekday"`
	Occurrences int `json:"occurrences"`
	Capacity    int `json:"capacity"`
	Assigned    int `json:"assigned"`
	Empty       int `json:"empty"`
}

// SubjectTarget lists a subject's per-weekday lesson targets.
type SubjectTarget struct {
	SubjectID     string      `json:"subjectId"`
	RequiredCount int         `json:"requiredCount"`
	Weekdays      map[int]int `json:"weekdays"`
}

// GenerationResult is returned by a successful generation run.
type GenerationResult struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message"`
	TermID       string           `json:"termId"`
	PlanID       string           `json:"planId,omitempty"`
	Target       GenerationTarget `json:"target"`
	Policy       string           `json:"policy"`
	SlotsCreated int              `json:"slotsCreated"`
	EmptySlots   int              `json:"emptySlots"`
	Weekdays     []WeekdaySummary `json:"weekdays"`
	Subjects     []SubjectTarget  `json:"subjects"`
	GeneratedAt  time.Time        `json:"generatedAt"`
}

// GenerationOutcome is the uniform {success, message} pair every generation call yields.
type GenerationOutcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OutcomeFromError converts a generation error into its outcome. A nil error is a success.
func OutcomeFromError(err error) GenerationOutcome {
	if err == nil {
		return GenerationOutcome{Success: true, Message: "generation completed"}
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return GenerationOutcome{Success: false, Message: appErr.Message}
	}
	return GenerationOutcome{Success: false, Message: "generation failed"}
}

// CoverageStatus compares delivered and required lessons.
type CoverageStatus string

const (
	CoverageMet   CoverageStatus = "MET"
	CoverageUnder CoverageStatus = "UNDER"
	CoverageOver  CoverageStatus = "OVER"
)

// SubjectCoverage compares one subject's required and delivered lessons over the term.
type SubjectCoverage struct {
	SubjectID   string         `json:"subjectId"`
	SubjectName string         `json:"subjectName"`
	Required    int            `json:"required"`
	Delivered   int            `json:"delivered"`
	Difference  int            `json:"difference"`
	Status      CoverageStatus `json:"status"`
}

// CoverageReport summarises how well a weekly grid covers the term's requirements.
type CoverageReport struct {
	TermID         string            `json:"termId"`
	PlanID         string            `json:"planId,omitempty"`
	Target         GenerationTarget  `json:"target"`
	Occurrences    map[int]int       `json:"occurrences"`
	Subjects       []SubjectCoverage `json:"subjects"`
	TotalRequired  int               `json:"totalRequired"`
	TotalDelivered int               `json:"totalDelivered"`
	GeneratedAt    time.Time         `json:"generatedAt"`
}

// ExportFormat enumerates supported timetable export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// TimetableExportRequest selects the grid and file format to render.
type TimetableExportRequest struct {
	TermID string       `validate:"required"`
	PlanID string       `validate:"omitempty"`
	Format ExportFormat `validate:"required,oneof=csv pdf xlsx"`
}

// ExportFile is a rendered timetable ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// GenerationJobStatus tracks an asynchronous generation request.
type GenerationJobStatus string

const (
	GenerationJobQueued    GenerationJobStatus = "QUEUED"
	GenerationJobRunning   GenerationJobStatus = "RUNNING"
	GenerationJobSucceeded GenerationJobStatus = "SUCCEEDED"
	GenerationJobFailed    GenerationJobStatus = "FAILED"
)

// GenerationJob is the observable state of a queued generation.
type GenerationJob struct {
	ID          string              `json:"id"`
	TermID      string              `json:"termId"`
	PlanID      string              `json:"planId,omitempty"`
	Target      GenerationTarget    `json:"target"`
	Status      GenerationJobStatus `json:"status"`
	RequestedBy string              `json:"requestedBy,omitempty"`
	Outcome     *GenerationOutcome  `json:"outcome,omitempty"`
	Result      *GenerationResult   `json:"result,omitempty"`
	EnqueuedAt  time.Time           `json:"enqueuedAt"`
	FinishedAt  *time.Time          `json:"finishedAt,omitempty"`
}
