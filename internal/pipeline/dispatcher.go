package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
)

// Dispatcher hands a stored job to whatever will execute it.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}

// RunFunc executes one stored job.
type RunFunc func(ctx context.Context, jobID string) error

// GoroutineDispatcher runs each job on its own goroutine, detached from the
// request that created it
type GoroutineDispatcher struct {
	root context.Context
	run  RunFunc
	wg   sync.WaitGroup
}

// NewGoroutineDispatcher runs jobs with a context derived from root with
// cancellation removed, so jobs always run to completion.
func NewGoroutineDispatcher(root context.Context, run RunFunc) *GoroutineDispatcher {
	return &GoroutineDispatcher{
		root: context.WithoutCancel(root),
		run:  run,
	}
}

func (d *GoroutineDispatcher) Dispatch(_ context.Context, jobID string) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// Failures are logged and recorded on the job by run.
		_ = d.run(d.root, jobID)
	}()
	return nil
}

// Wait blocks until every dispatched job returns or ctx is done.
func (d *GoroutineDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const (
	TaskTypeExecuteJob = "job:execute"
	QueuePipeline      = "pipeline"
)

// ExecuteJobPayload is the body of a job:execute task
type ExecuteJobPayload struct {
	JobID string `json:"jobId"`
}

// Enqueuer is the part of *asynq.Client the dispatcher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqDispatcher enqueues jobs for the worker server
type AsynqDispatcher struct {
	client Enqueuer
}

func NewAsynqDispatcher(client Enqueuer) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, jobID string) error {
	task, err := NewExecuteJobTask(jobID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	// Stage failures are terminal, so the task is never retried.
	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(QueuePipeline),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

func NewExecuteJobTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(ExecuteJobPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeExecuteJob, data), nil
}
