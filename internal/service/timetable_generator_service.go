package service

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

const (
	msgRequirementsMissing = "legal required lesson counts not configured"
	msgWeeklyRulesMissing  = "weekly rules not configured"
	msgGenerationFailed    = "generation failed"
	msgGenerationBusy      = "generation already in progress"
)

type generatorTermReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type requirementReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.RequiredLessonCount, error)
}

type weekdayRuleReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.WeekdayRule, error)
}

type calendarDayReader interface {
	ListInstructionalByTerm(ctx context.Context, termID string) ([]models.CalendarDay, error)
}

type fixedSlotStore interface {
	ListByTerm(ctx context.Context, termID string) ([]models.FixedTimetableSlot, error)
	ReplaceForTerm(ctx context.Context, exec sqlx.ExtContext, termID string, slots []models.FixedTimetableSlot) error
}

type planReader interface {
	FindByID(ctx context.Context, id string) (*models.TimetablePlan, error)
}

type planSlotStore interface {
	ListByPlan(ctx context.Context, planID string) ([]models.TimetablePlanSlot, error)
	ReplaceForPlan(ctx context.Context, exec sqlx.ExtContext, planID string, slots []models.TimetablePlanSlot) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// GenerationLocker serialises generation runs that target the same rows.
type GenerationLocker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

type coverageInvalidator interface {
	InvalidateTerm(ctx context.Context, termID string) error
}

type generationRecorder interface {
	ObserveGeneration(target, outcome string, duration time.Duration)
}

// TimetableGeneratorConfig governs generator behaviour.
type TimetableGeneratorConfig struct {
	// RandomSeed makes plan shuffles reproducible when non-zero.
	RandomSeed int64
	// NewRand overrides the random source of each plan run.
	NewRand func() *rand.Rand
}

// TimetableGeneratorService writes fixed timetables and timetable plans from term requirements.
type TimetableGeneratorService struct {
	terms        generatorTermReader
	requirements requirementReader
	rules        weekdayRuleReader
	calendar     calendarDayReader
	fixed        fixedSlotStore
	plans        planReader
	planSlots    planSlotStore
	tx           txProvider
	locker       GenerationLocker
	coverage     coverageInvalidator
	metrics      generationRecorder
	validator    *validator.Validate
	logger       *zap.Logger
	newRand      func() *rand.Rand
}

// NewTimetableGeneratorService wires generator dependencies.
func NewTimetableGeneratorService(
	terms generatorTermReader,
	requirements requirementReader,
	rules weekdayRuleReader,
	calendar calendarDayReader,
	fixed fixedSlotStore,
	plans planReader,
	planSlots planSlotStore,
	tx txProvider,
	locker GenerationLocker,
	coverage coverageInvalidator,
	metrics generationRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableGeneratorConfig,
) *TimetableGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalGenerationLocker()
	}
	newRand := cfg.NewRand
	if newRand == nil {
		seed := cfg.RandomSeed
		newRand = func() *rand.Rand {
			if seed != 0 {
				return rand.New(rand.NewSource(seed))
			}
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	return &TimetableGeneratorService{
		terms:        terms,
		requirements: requirements,
		rules:        rules,
		calendar:     calendar,
		fixed:        fixed,
		plans:        plans,
		planSlots:    planSlots,
		tx:           tx,
		locker:       locker,
		coverage:     coverage,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		newRand:      newRand,
	}
}

// GenerateFixedTimetable rebuilds the fixed timetable of a term using proportional
// distribution and static-priority assignment.
func (s *TimetableGeneratorService) GenerateFixedTimetable(ctx context.Context, req dto.GenerateFixedTimetableRequest) (result *dto.GenerationResult, err error) {
	start := time.Now()
	defer func() { s.observe(dto.GenerationTargetFixed, start, err) }()

	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fixed timetable generation payload")
	}
	if err = s.ensureTerm(ctx, req.TermID); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, fixedLockKey(req.TermID))
	if err != nil {
		return nil, lockError(err)
	}
	defer release()

	input, err := s.loadInput(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	weekly := buildWeeklyAssignment(input, DistributionProportional, AssignStaticPriority, nil)
	slots := fixedSlotsFromAssignment(req.TermID, weekly)

	if err = s.withTx(ctx, func(exec sqlx.ExtContext) error {
		return s.fixed.ReplaceForTerm(ctx, exec, req.TermID, slots)
	}); err != nil {
		return nil, err
	}
	s.invalidateCoverage(ctx, req.TermID)

	result = buildGenerationResult(input, weekly, DistributionProportional, len(slots))
	result.TermID = req.TermID
	result.Target = dto.GenerationTargetFixed
	s.logger.Info("fixed timetable generated",
		zap.String("term_id", req.TermID),
		zap.String("requested_by", req.RequestedBy),
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.Int("slots", result.SlotsCreated),
		zap.Int("empty_slots", result.EmptySlots),
	)
	return result, nil
}

// GeneratePlan rebuilds the slots of a timetable plan using equal-split distribution and
// shuffled assignment that avoids repeating the previous weekday's subject per slot.
func (s *TimetableGeneratorService) GeneratePlan(ctx context.Context, req dto.GeneratePlanRequest) (result *dto.GenerationResult, err error) {
	start := time.Now()
	defer func() { s.observe(dto.GenerationTargetPlan, start, err) }()

	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan generation payload")
	}
	if err = s.ensureTerm(ctx, req.TermID); err != nil {
		return nil, err
	}
	if err = s.ensurePlan(ctx, req.TermID, req.PlanID); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, planLockKey(req.PlanID))
	if err != nil {
		return nil, lockError(err)
	}
	defer release()

	input, err := s.loadInput(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	weekly := buildWeeklyAssignment(input, DistributionEqualSplit, AssignShuffled, s.newRand())
	slots := planSlotsFromAssignment(req.PlanID, weekly)

	if err = s.withTx(ctx, func(exec sqlx.ExtContext) error {
		return s.planSlots.ReplaceForPlan(ctx, exec, req.PlanID, slots)
	}); err != nil {
		return nil, err
	}
	s.invalidateCoverage(ctx, req.TermID)

	result = buildGenerationResult(input, weekly, DistributionEqualSplit, len(slots))
	result.TermID = req.TermID
	result.PlanID = req.PlanID
	result.Target = dto.GenerationTargetPlan
	s.logger.Info("timetable plan generated",
		zap.String("term_id", req.TermID),
		zap.String("plan_id", req.PlanID),
		zap.String("requested_by", req.RequestedBy),
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.Int("slots", result.SlotsCreated),
		zap.Int("empty_slots", result.EmptySlots),
	)
	return result, nil
}

// ResetPlanFromFixed replaces a plan's slots with one cell per weekday capacity slot,
// copying the fixed timetable subject where one is set.
func (s *TimetableGeneratorService) ResetPlanFromFixed(ctx context.Context, req dto.GeneratePlanRequest) (result *dto.GenerationResult, err error) {
	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan reset payload")
	}
	if err = s.ensureTerm(ctx, req.TermID); err != nil {
		return nil, err
	}
	if err = s.ensurePlan(ctx, req.TermID, req.PlanID); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, planLockKey(req.PlanID))
	if err != nil {
		return nil, lockError(err)
	}
	defer release()

	rules, err := s.rules.ListByTerm(ctx, req.TermID)
	if err != nil {
		return nil, s.loadFailed(err, "weekly rules")
	}
	if len(rules) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, msgWeeklyRulesMissing)
	}
	fixed, err := s.fixed.ListByTerm(ctx, req.TermID)
	if err != nil {
		return nil, s.loadFailed(err, "fixed timetable")
	}

	slots := seedPlanSlots(req.PlanID, rules, fixed)
	if err = s.withTx(ctx, func(exec sqlx.ExtContext) error {
		return s.planSlots.ReplaceForPlan(ctx, exec, req.PlanID, slots)
	}); err != nil {
		return nil, err
	}
	s.invalidateCoverage(ctx, req.TermID)

	filled := 0
	for _, slot := range slots {
		if slot.SubjectID != nil {
			filled++
		}
	}
	s.logger.Info("timetable plan reset from fixed timetable",
		zap.String("term_id", req.TermID),
		zap.String("plan_id", req.PlanID),
		zap.String("requested_by", req.RequestedBy),
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.Int("filled", filled),
	)
	return &dto.GenerationResult{
		Success:      true,
		Message:      "plan reset from fixed timetable",
		TermID:       req.TermID,
		PlanID:       req.PlanID,
		Target:       dto.GenerationTargetPlan,
		SlotsCreated: len(slots),
		EmptySlots:   len(slots) - filled,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

func (s *TimetableGeneratorService) ensureTerm(ctx context.Context, termID string) error {
	if s.terms == nil {
		return nil
	}
	if _, err := s.terms.FindByID(ctx, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return s.loadFailed(err, "term")
	}
	return nil
}

func (s *TimetableGeneratorService) ensurePlan(ctx context.Context, termID, planID string) error {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable plan not found")
		}
		return s.loadFailed(err, "timetable plan")
	}
	if plan.TermID != termID {
		return appErrors.Clone(appErrors.ErrNotFound, "timetable plan not found")
	}
	return nil
}

// loadInput reads everything a run needs before any write happens.
func (s *TimetableGeneratorService) loadInput(ctx context.Context, termID string) (weeklyInput, error) {
	requirements, err := s.requirements.ListByTerm(ctx, termID)
	if err != nil {
		return weeklyInput{}, s.loadFailed(err, "required lesson counts")
	}
	if len(requirements) == 0 {
		return weeklyInput{}, appErrors.Clone(appErrors.ErrPreconditionFailed, msgRequirementsMissing)
	}

	rules, err := s.rules.ListByTerm(ctx, termID)
	if err != nil {
		return weeklyInput{}, s.loadFailed(err, "weekly rules")
	}
	if len(rules) == 0 {
		return weeklyInput{}, appErrors.Clone(appErrors.ErrPreconditionFailed, msgWeeklyRulesMissing)
	}

	days, err := s.calendar.ListInstructionalByTerm(ctx, termID)
	if err != nil {
		return weeklyInput{}, s.loadFailed(err, "term calendar")
	}

	return weeklyInput{
		Requirements: requirements,
		Rules:        rules,
		Occurrences:  countWeekdayOccurrences(days),
	}, nil
}

func (s *TimetableGeneratorService) withTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Internal(err, msgGenerationFailed)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		s.logger.Error("timetable replace failed", zap.Error(err))
		err = appErrors.Internal(err, msgGenerationFailed)
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, msgGenerationFailed)
		return err
	}
	return nil
}

func (s *TimetableGeneratorService) invalidateCoverage(ctx context.Context, termID string) {
	if s.coverage == nil {
		return
	}
	if err := s.coverage.InvalidateTerm(ctx, termID); err != nil {
		s.logger.Warn("failed to invalidate coverage cache", zap.String("term_id", termID), zap.Error(err))
	}
}

func (s *TimetableGeneratorService) observe(target dto.GenerationTarget, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Status < 500 {
			outcome = "rejected"
		}
	}
	s.metrics.ObserveGeneration(string(target), outcome, time.Since(start))
}

func lockError(err error) error {
	if errors.Is(err, ErrGenerationLocked) {
		return appErrors.Clone(appErrors.ErrConflict, msgGenerationBusy)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, msgGenerationFailed)
}

// loadFailed keeps the failing source in the log; callers only see the generic message.
func (s *TimetableGeneratorService) loadFailed(err error, source string) error {
	s.logger.Error("generation input load failed", zap.String("source", source), zap.Error(err))
	return appErrors.Internal(err, msgGenerationFailed)
}

func fixedLockKey(termID string) string {
	return "timetable:lock:fixed:" + termID
}

func planLockKey(planID string) string {
	return "timetable:lock:plan:" + planID
}

func buildGenerationResult(input weeklyInput, weekly weeklyAssignment, policy DistributionPolicy, created int) *dto.GenerationResult {
	result := &dto.GenerationResult{
		Success:      true,
		Message:      "generation completed",
		Policy:       string(policy),
		SlotsCreated: created,
		GeneratedAt:  time.Now().UTC(),
	}

	for _, weekday := range weekly.Weekdays {
		summary := dto.WeekdaySummary{
			Weekday:     weekday,
			Occurrences: input.Occurrences[weekday],
			Capacity:    weekly.Capacities[weekday],
		}
		for _, cell := range weekly.Days[weekday] {
			if cell.SubjectID == nil {
				summary.Empty++
				continue
			}
			summary.Assigned++
		}
		result.EmptySlots += summary.Empty
		result.Weekdays = append(result.Weekdays, summary)
	}

	for _, requirement := range input.Requirements {
		result.Subjects = append(result.Subjects, dto.SubjectTarget{
			SubjectID:     requirement.SubjectID,
			RequiredCount: requirement.RequiredCount,
			Weekdays:      weekly.Targets[requirement.SubjectID],
		})
	}
	sort.SliceStable(result.Subjects, func(i, j int) bool {
		return result.Subjects[i].SubjectID < result.Subjects[j].SubjectID
	})
	return result
}
