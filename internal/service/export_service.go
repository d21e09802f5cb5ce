package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

type subjectLister interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

var weekdayLabels = map[int]string{
	models.Monday:    "Mon",
	models.Tuesday:   "Tue",
	models.Wednesday: "Wed",
	models.Thursday:  "Thu",
	models.Friday:    "Fri",
}

var exportContentTypes = map[dto.ExportFormat]string{
	dto.ExportFormatCSV:  "text/csv",
	dto.ExportFormatPDF:  "application/pdf",
	dto.ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportService renders fixed timetables and plans as downloadable weekday grids.
type ExportService struct {
	terms     generatorTermReader
	subjects  subjectLister
	fixed     coverageFixedReader
	plans     planReader
	planSlots coveragePlanSlotReader
	renderers map[dto.ExportFormat]tableRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the CSV, PDF and XLSX renderers.
func NewExportService(
	terms generatorTermReader,
	subjects subjectLister,
	fixed coverageFixedReader,
	plans planReader,
	planSlots coveragePlanSlotReader,
	validate *validator.Validate,
	logger *zap.Logger,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		terms:     terms,
		subjects:  subjects,
		fixed:     fixed,
		plans:     plans,
		planSlots: planSlots,
		renderers: map[dto.ExportFormat]tableRenderer{
			dto.ExportFormatCSV:  export.NewCSVExporter(),
			dto.ExportFormatPDF:  export.NewPDFExporter(),
			dto.ExportFormatXLSX: export.NewXLSXExporter(),
		},
		validator: validate,
		logger:    logger,
	}
}

// Export renders the fixed timetable of the term, or the plan when PlanID is set.
func (s *ExportService) Export(ctx context.Context, req dto.TimetableExportRequest) (*dto.ExportFile, error) {
	req.Format = dto.ExportFormat(strings.ToLower(string(req.Format)))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	renderer, ok := s.renderers[req.Format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", req.Format))
	}

	term, err := s.terms.FindByID(ctx, req.TermID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Internal(err, "failed to load term")
	}

	var (
		cells []gridCell
		title string
		stem  string
	)
	if req.PlanID == "" {
		slots, err := s.fixed.ListByTerm(ctx, req.TermID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load fixed timetable")
		}
		cells = gridFromFixed(slots)
		title = fmt.Sprintf("%s fixed timetable", term.Name)
		stem = fmt.Sprintf("fixed_timetable_%s", sanitizeFilename(term.Name))
	} else {
		plan, err := s.plans.FindByID(ctx, req.PlanID)
		if err != nil || plan.TermID != req.TermID {
			if err == nil || errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable plan not found")
			}
			return nil, appErrors.Internal(err, "failed to load timetable plan")
		}
		slots, err := s.planSlots.ListByPlan(ctx, req.PlanID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load timetable plan slots")
		}
		cells = gridFromPlan(slots)
		title = fmt.Sprintf("%s - %s", term.Name, plan.Name)
		stem = fmt.Sprintf("timetable_plan_%s", sanitizeFilename(plan.Name))
	}

	names, err := s.subjectNames(ctx, cells)
	if err != nil {
		return nil, err
	}
	table := buildTimetableTable(title, cells, names)

	payload, err := renderer.Render(table)
	if err != nil {
		s.logger.Error("timetable export failed", zap.String("term_id", req.TermID), zap.String("format", string(req.Format)), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to render timetable")
	}

	return &dto.ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", stem, time.Now().UTC().Format("20060102_150405"), req.Format),
		ContentType: exportContentTypes[req.Format],
		Content:     payload,
	}, nil
}

func (s *ExportService) subjectNames(ctx context.Context, cells []gridCell) (map[string]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, cell := range cells {
		if cell.SubjectID == "" || seen[cell.SubjectID] {
			continue
		}
		seen[cell.SubjectID] = true
		ids = append(ids, cell.SubjectID)
	}
	subjects, err := s.subjects.ListByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load subjects")
	}
	names := make(map[string]string, len(subjects))
	for _, subject := range subjects {
		names[subject.ID] = subject.Name
	}
	return names, nil
}

// buildTimetableTable lays cells out with one row per slot index and one column per
// school weekday. Unknown subjects fall back to their id.
func buildTimetableTable(title string, cells []gridCell, names map[string]string) export.Table {
	headers := []string{"Slot"}
	for _, weekday := range models.SchoolWeekdays {
		headers = append(headers, weekdayLabels[weekday])
	}

	maxIndex := 0
	byCell := make(map[[2]int]string, len(cells))
	for _, cell := range cells {
		if cell.Weekday < models.Monday || cell.Weekday > models.Friday {
			continue
		}
		if cell.DaySlotIndex > maxIndex {
			maxIndex = cell.DaySlotIndex
		}
		if cell.SubjectID == "" {
			continue
		}
		label := names[cell.SubjectID]
		if label == "" {
			label = cell.SubjectID
		}
		byCell[[2]int{cell.Weekday, cell.DaySlotIndex}] = label
	}

	rows := make([][]string, 0, maxIndex)
	for index := 1; index <= maxIndex; index++ {
		row := []string{strconv.Itoa(index)}
		for _, weekday := range models.SchoolWeekdays {
			row = append(row, byCell[[2]int{weekday, index}])
		}
		rows = append(rows, row)
	}
	return export.Table{Title: title, Headers: headers, Rows: rows}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
