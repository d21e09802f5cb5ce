package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

const generationJobType = "timetable_generation"

type timetableGenerator interface {
	GenerateFixedTimetable(ctx context.Context, req dto.GenerateFixedTimetableRequest) (*dto.GenerationResult, error)
	GeneratePlan(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GenerationResult, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type generationJobPayload struct {
	Target      dto.GenerationTarget
	TermID      string
	PlanID      string
	RequestedBy string
}

// GenerationJobService runs generations in the background and tracks their status.
type GenerationJobService struct {
	generator timetableGenerator
	queue     jobEnqueuer
	store     *generationJobStore
	logger    *zap.Logger
}

// NewGenerationJobService builds the service. Attach a queue with SetQueue before enqueueing.
func NewGenerationJobService(generator timetableGenerator, ttl time.Duration, logger *zap.Logger) *GenerationJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &GenerationJobService{
		generator: generator,
		store:     newGenerationJobStore(ttl),
		logger:    logger,
	}
}

// SetQueue attaches the queue jobs are dispatched on. The queue is built from Handle and
// HandleFailure, so it can only be wired after construction.
func (s *GenerationJobService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// EnqueuePlan schedules a plan generation.
func (s *GenerationJobService) EnqueuePlan(req dto.GeneratePlanRequest) (*dto.GenerationJob, error) {
	if req.TermID == "" || req.PlanID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId and planId are required")
	}
	return s.enqueue(generationJobPayload{Target: dto.GenerationTargetPlan, TermID: req.TermID, PlanID: req.PlanID, RequestedBy: req.RequestedBy})
}

// EnqueueFixed schedules a fixed timetable generation.
func (s *GenerationJobService) EnqueueFixed(req dto.GenerateFixedTimetableRequest) (*dto.GenerationJob, error) {
	if req.TermID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}
	return s.enqueue(generationJobPayload{Target: dto.GenerationTargetFixed, TermID: req.TermID, RequestedBy: req.RequestedBy})
}

// Get returns the current state of a job.
func (s *GenerationJobService) Get(id string) (*dto.GenerationJob, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
	}
	return &job, nil
}

func (s *GenerationJobService) enqueue(payload generationJobPayload) (*dto.GenerationJob, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "generation queue unavailable")
	}
	record := dto.GenerationJob{
		ID:          uuid.NewString(),
		TermID:      payload.TermID,
		PlanID:      payload.PlanID,
		Target:      payload.Target,
		Status:      dto.GenerationJobQueued,
		RequestedBy: payload.RequestedBy,
		EnqueuedAt:  time.Now().UTC(),
	}
	s.store.Save(record)

	if err := s.queue.Enqueue(jobs.Job{ID: record.ID, Type: generationJobType, Payload: payload, Enqueued: record.EnqueuedAt}); err != nil {
		s.store.Delete(record.ID)
		return nil, appErrors.Internal(err, "failed to enqueue generation")
	}
	return &record, nil
}

// Handle is the queue handler. Client-side failures such as missing requirements are
// not retried.
func (s *GenerationJobService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(generationJobPayload)
	if !ok {
		return jobs.Permanent(errors.New("unexpected generation job payload"))
	}
	s.store.Update(job.ID, func(record *dto.GenerationJob) {
		record.Status = dto.GenerationJobRunning
	})

	var (
		result *dto.GenerationResult
		err    error
	)
	switch payload.Target {
	case dto.GenerationTargetFixed:
		result, err = s.generator.GenerateFixedTimetable(ctx, dto.GenerateFixedTimetableRequest{TermID: payload.TermID, RequestedBy: payload.RequestedBy})
	default:
		result, err = s.generator.GeneratePlan(ctx, dto.GeneratePlanRequest{TermID: payload.TermID, PlanID: payload.PlanID, RequestedBy: payload.RequestedBy})
	}
	if err != nil {
		if appErrors.IsClientError(err) {
			return jobs.Permanent(err)
		}
		return err
	}

	outcome := dto.OutcomeFromError(nil)
	now := time.Now().UTC()
	s.store.Update(job.ID, func(record *dto.GenerationJob) {
		record.Status = dto.GenerationJobSucceeded
		record.Outcome = &outcome
		record.Result = result
		record.FinishedAt = &now
	})
	s.logger.Info("generation job finished", zap.String("job_id", job.ID), zap.String("term_id", payload.TermID), zap.String("target", string(payload.Target)))
	return nil
}

// HandleFailure records a job that will not be retried.
func (s *GenerationJobService) HandleFailure(job jobs.Job, err error) {
	outcome := dto.OutcomeFromError(err)
	now := time.Now().UTC()
	s.store.Update(job.ID, func(record *dto.GenerationJob) {
		record.Status = dto.GenerationJobFailed
		record.Outcome = &outcome
		record.FinishedAt = &now
	})
	s.logger.Warn("generation job failed", zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(err))
}

// --- Job status store ---

type generationJobStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]dto.GenerationJob
}

func newGenerationJobStore(ttl time.Duration) *generationJobStore {
	return &generationJobStore{
		ttl:   ttl,
		items: make(map[string]dto.GenerationJob),
	}
}

// Save stores job and evicts finished jobs past the TTL, so records nobody polls
// do not accumulate.
func (s *generationJobStore) Save(job dto.GenerationJob) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.items {
		if s.expired(existing, now) {
			delete(s.items, id)
		}
	}
	s.items[job.ID] = job
}

// Get hides finished jobs once they are older than the TTL.
func (s *generationJobStore) Get(id string) (dto.GenerationJob, bool) {
	s.mu.RLock()
	job, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return dto.GenerationJob{}, false
	}
	if s.expired(job, time.Now()) {
		s.Delete(id)
		return dto.GenerationJob{}, false
	}
	return job, true
}

func (s *generationJobStore) expired(job dto.GenerationJob, now time.Time) bool {
	return job.FinishedAt != nil && now.Sub(*job.FinishedAt) > s.ttl
}

func (s *generationJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *generationJobStore) Update(id string, fn func(*dto.GenerationJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.items[id]
	if !ok {
		return
	}
	fn(&job)
	s.items[id] = job
}

func (s *generationJobStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
