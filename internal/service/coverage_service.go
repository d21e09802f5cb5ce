package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type coverageFixedReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.FixedTimetableSlot, error)
}

type coveragePlanSlotReader interface {
	ListByPlan(ctx context.Context, planID string) ([]models.TimetablePlanSlot, error)
}

// CoverageService compares what a weekly grid delivers over a term with what the term requires.
type CoverageService struct {
	terms        generatorTermReader
	requirements requirementReader
	calendar     calendarDayReader
	fixed        coverageFixedReader
	plans        planReader
	planSlots    coveragePlanSlotReader
	cache        *CacheService
	ttl          time.Duration
	logger       *zap.Logger
}

// NewCoverageService wires coverage dependencies. cache may be nil.
func NewCoverageService(
	terms generatorTermReader,
	requirements requirementReader,
	calendar calendarDayReader,
	fixed coverageFixedReader,
	plans planReader,
	planSlots coveragePlanSlotReader,
	cache *CacheService,
	ttl time.Duration,
	logger *zap.Logger,
) *CoverageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoverageService{
		terms:        terms,
		requirements: requirements,
		calendar:     calendar,
		fixed:        fixed,
		plans:        plans,
		planSlots:    planSlots,
		cache:        cache,
		ttl:          ttl,
		logger:       logger,
	}
}

// FixedTimetableCoverage reports requirement coverage of a term's fixed timetable.
func (s *CoverageService) FixedTimetableCoverage(ctx context.Context, termID string) (*dto.CoverageReport, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}
	key := fixedCoverageKey(termID)
	var cached dto.CoverageReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	if err := s.ensureTerm(ctx, termID); err != nil {
		return nil, err
	}
	slots, err := s.fixed.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load fixed timetable")
	}

	report, err := s.build(ctx, termID, gridFromFixed(slots))
	if err != nil {
		return nil, err
	}
	report.Target = dto.GenerationTargetFixed
	s.cache.Set(ctx, key, report, s.ttl)
	return report, nil
}

// PlanCoverage reports requirement coverage of a timetable plan.
func (s *CoverageService) PlanCoverage(ctx context.Context, termID, planID string) (*dto.CoverageReport, error) {
	if termID == "" || planID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId and planId are required")
	}
	key := planCoverageKey(termID, planID)
	var cached dto.CoverageReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable plan not found")
		}
		return nil, appErrors.Internal(err, "failed to load timetable plan")
	}
	if plan.TermID != termID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable plan not found")
	}
	slots, err := s.planSlots.ListByPlan(ctx, planID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load timetable plan slots")
	}

	report, err := s.build(ctx, termID, gridFromPlan(slots))
	if err != nil {
		return nil, err
	}
	report.Target = dto.GenerationTargetPlan
	report.PlanID = planID
	s.cache.Set(ctx, key, report, s.ttl)
	return report, nil
}

// InvalidateTerm drops every cached report of the term.
func (s *CoverageService) InvalidateTerm(ctx context.Context, termID string) error {
	return s.cache.Invalidate(ctx, fmt.Sprintf("timetable:coverage:%s:*", termID))
}

func (s *CoverageService) ensureTerm(ctx context.Context, termID string) error {
	if _, err := s.terms.FindByID(ctx, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Internal(err, "failed to load term")
	}
	return nil
}

func (s *CoverageService) build(ctx context.Context, termID string, cells []gridCell) (*dto.CoverageReport, error) {
	requirements, err := s.requirements.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load required lesson counts")
	}
	days, err := s.calendar.ListInstructionalByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load term calendar")
	}

	occurrences := countWeekdayOccurrences(days)
	report := buildCoverageReport(requirements, cells, occurrences)
	report.TermID = termID
	return report, nil
}

// buildCoverageReport lists every required subject plus any scheduled subject that has no
// requirement, ordered by subject name.
func buildCoverageReport(requirements []models.RequiredLessonCount, cells []gridCell, occurrences map[int]int) *dto.CoverageReport {
	delivered := deliveredCounts(cells, occurrences)
	report := &dto.CoverageReport{
		Occurrences: occurrences,
		GeneratedAt: time.Now().UTC(),
	}

	seen := make(map[string]bool, len(requirements))
	for _, requirement := range requirements {
		seen[requirement.SubjectID] = true
		report.Subjects = append(report.Subjects, subjectCoverage(requirement.SubjectID, requirement.SubjectName, requirement.RequiredCount, delivered[requirement.SubjectID]))
	}
	for subjectID, count := range delivered {
		if seen[subjectID] {
			continue
		}
		report.Subjects = append(report.Subjects, subjectCoverage(subjectID, "", 0, count))
	}

	sort.SliceStable(report.Subjects, func(i, j int) bool {
		a, b := report.Subjects[i], report.Subjects[j]
		if a.SubjectName != b.SubjectName {
			return a.SubjectName < b.SubjectName
		}
		return a.SubjectID < b.SubjectID
	})
	for _, subject := range report.Subjects {
		report.TotalRequired += subject.Required
		report.TotalDelivered += subject.Delivered
	}
	return report
}

func subjectCoverage(subjectID, name string, required, delivered int) dto.SubjectCoverage {
	status := dto.CoverageMet
	switch {
	case delivered < required:
		status = dto.CoverageUnder
	case delivered > required:
		status = dto.CoverageOver
	}
	return dto.SubjectCoverage{
		SubjectID:   subjectID,
		SubjectName: name,
		Required:    required,
		Delivered:   delivered,
		Difference:  delivered - required,
		Status:      status,
	}
}

func fixedCoverageKey(termID string) string {
	return fmt.Sprintf("timetable:coverage:%s:fixed", termID)
}

func planCoverageKey(termID, planID string) string {
	return fmt.Sprintf("timetable:coverage:%s:plan:%s", termID, planID)
}
