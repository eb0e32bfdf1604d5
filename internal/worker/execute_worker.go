package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/autovideo/api/internal/pipeline"
)

// JobRunner executes a stored job by id
type JobRunner interface {
	ExecuteJob(ctx context.Context, jobID string) error
}

// ExecuteWorker processes job:execute tasks
type ExecuteWorker struct {
	runner JobRunner
	logger *slog.Logger
}

// NewExecuteWorker creates a new execute worker
func NewExecuteWorker(runner JobRunner, logger *slog.Logger) *ExecuteWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecuteWorker{
		runner: runner,
		logger: logger,
	}
}

// Register attaches the worker to mux.
func (w *ExecuteWorker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(pipeline.TaskTypeExecuteJob, w.ProcessTask)
}

// ProcessTask runs the job named in the task payload. Errors are never retried:
// a failed stage is already recorded on the job.
func (w *ExecuteWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload pipeline.ExecuteJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.JobID == "" {
		return fmt.Errorf("task payload missing jobId: %w", asynq.SkipRetry)
	}

	w.logger.Info("starting job", "job_id", payload.JobID)
	err := w.runner.ExecuteJob(ctx, payload.JobID)
	if err == nil {
		w.logger.Info("job finished", "job_id", payload.JobID)
		return nil
	}
	if errors.Is(err, pipeline.ErrJobNotFound) {
		w.logger.Warn("job expired before execution", "job_id", payload.JobID)
	}
	return fmt.Errorf("job %s: %v: %w", payload.JobID, err, asynq.SkipRetry)
}
