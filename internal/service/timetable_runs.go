package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/jobs"
)

// JobTypeGenerate identifies asynchronous generation jobs.
const JobTypeGenerate = "timetable.generate"

type runQueue interface {
	TryEnqueue(job jobs.Job) error
}

// UseQueue attaches the worker queue that executes asynchronous runs.
func (s *TimetableService) UseQueue(queue runQueue) {
	s.queue = queue
}

// SubmitRun queues a generation request and returns its run handle.
func (s *TimetableService) SubmitRun(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.RunResponse, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceDisabled, "asynchronous generation is disabled")
	}
	if err := s.validator.Struct(req.Config); err != nil {
		return nil, validationFailure(err, "invalid timetable generation config")
	}

	run := dto.RunResponse{
		ID:        uuid.NewString(),
		Status:    dto.RunQueued,
		CreatedAt: s.now(),
	}
	s.runs.Put(run)

	if err := s.queue.TryEnqueue(jobs.Job{ID: run.ID, Type: JobTypeGenerate, Payload: req}); err != nil {
		s.runs.Delete(run.ID)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrServiceDisabled.Code, appErrors.ErrServiceDisabled.Status, "generation queue is full, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue generation run")
	}
	s.logger.Info("timetable run queued", zap.String("run_id", run.ID))
	return &run, nil
}

// RunStatus reports the state of an asynchronous run.
func (s *TimetableService) RunStatus(ctx context.Context, id string) (*dto.RunResponse, error) {
	run, ok := s.runs.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found or expired")
	}
	return &run, nil
}

// HandleRun executes a queued generation job. Engine outcomes are final;
// only internal failures are handed back to the queue for retry.
func (s *TimetableService) HandleRun(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.GenerateTimetableRequest)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID))
	}
	s.runs.Update(job.ID, func(run *dto.RunResponse) {
		run.Status = dto.RunRunning
	})

	proposal, err := s.Generate(ctx, req)
	finished := s.now()
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrInternal.Code && job.Attempt == 0 {
			s.runs.Update(job.ID, func(run *dto.RunResponse) {
				run.Status = dto.RunQueued
			})
			return err
		}
		s.runs.Update(job.ID, func(run *dto.RunResponse) {
			run.Status = dto.RunFailed
			run.Error = &dto.BatchItemError{Code: appErr.Code, Message: appErr.Message}
			run.FinishedAt = &finished
		})
		s.logger.Warn("timetable run failed", zap.String("run_id", job.ID), zap.String("code", appErr.Code))
		return jobs.Permanent(err)
	}

	s.runs.Update(job.ID, func(run *dto.RunResponse) {
		run.Status = dto.RunSucceeded
		run.Proposal = proposal
		run.FinishedAt = &finished
	})
	s.logger.Info("timetable run finished", zap.String("run_id", job.ID), zap.String("proposal_id", proposal.ProposalID))
	return nil
}

// DropRun marks a run failed when the queue gives up on it, for example
// after its retries ran out or the queue stopped before requeueing it. Runs
// that already finished are left untouched.
func (s *TimetableService) DropRun(job jobs.Job, cause error) {
	finished := s.now()
	updated := false
	s.runs.Update(job.ID, func(run *dto.RunResponse) {
		if run.Status == dto.RunSucceeded || run.Status == dto.RunFailed {
			return
		}
		run.Status = dto.RunFailed
		run.Error = &dto.BatchItemError{Code: appErrors.ErrInternal.Code, Message: "generation run abandoned"}
		run.FinishedAt = &finished
		updated = true
	})
	if updated {
		s.logger.Warn("timetable run abandoned", zap.String("run_id", job.ID), zap.Error(cause))
	}
}

type runStore struct {
	retention time.Duration
	now       func() time.Time
	mu        sync.Mutex
	items     map[string]dto.RunResponse
}

func newRunStore(retention time.Duration, now func() time.Time) *runStore {
	return &runStore{retention: retention, now: now, items: make(map[string]dto.RunResponse)}
}

func (s *runStore) Put(run dto.RunResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, item := range s.items {
		if item.FinishedAt != nil && now.Sub(*item.FinishedAt) > s.retention {
			delete(s.items, id)
		}
	}
	s.items[run.ID] = run
}

func (s *runStore) Get(id string) (dto.RunResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.items[id]
	if !ok {
		return dto.RunResponse{}, false
	}
	if run.FinishedAt != nil && s.now().Sub(*run.FinishedAt) > s.retention {
		delete(s.items, id)
		return dto.RunResponse{}, false
	}
	return run, true
}

func (s *runStore) Update(id string, fn func(run *dto.RunResponse)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.items[id]
	if !ok {
		return
	}
	fn(&run)
	s.items[id] = run
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
