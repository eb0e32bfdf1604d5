package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autovideo/api/internal/model"
	"github.com/autovideo/api/internal/store"
)

// StartOptions override per-job settings. A nil AutoPublish uses the default.
type StartOptions struct {
	AutoPublish *bool
}

// Orchestrator creates jobs, hands them to a dispatcher and serves reads and
// publish triggers
type Orchestrator struct {
	store       store.JobStore
	executor    *Executor
	dispatcher  Dispatcher
	autoPublish bool
	logger      *slog.Logger
	observer    Observer
	now         func() time.Time
	newID       func() string

	mu         sync.Mutex
	publishing map[string]struct{}
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithDispatcher replaces the default goroutine dispatcher.
func WithDispatcher(d Dispatcher) OrchestratorOption {
	return func(o *Orchestrator) { o.dispatcher = d }
}

// WithObserver registers a listener for job changes.
func WithObserver(obs Observer) OrchestratorOption {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithClock replaces time.Now for CreatedAt and stage timestamps.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator replaces uuid job ids.
func WithIDGenerator(newID func() string) OrchestratorOption {
	return func(o *Orchestrator) { o.newID = newID }
}

func NewOrchestrator(st store.JobStore, executor *Executor, autoPublish bool, logger *slog.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		store:       st,
		executor:    executor,
		autoPublish: autoPublish,
		logger:      logger,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
		publishing:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.dispatcher == nil {
		o.dispatcher = NewGoroutineDispatcher(context.Background(), o.ExecuteJob)
	}
	if o.observer != nil {
		executor.SetObserver(o.observer)
	}
	executor.SetClock(o.now)
	return o
}

// StartJob records a pending job and dispatches it. The returned snapshot is
// taken before any stage runs.
func (o *Orchestrator) StartJob(ctx context.Context, idea model.UserIdea, opts StartOptions) (*model.JobRecord, error) {
	job, err := o.createJob(ctx, idea, opts)
	if err != nil {
		return nil, err
	}
	snapshot := job.Clone()

	if err := o.dispatcher.Dispatch(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("failed to dispatch job %s: %w", job.ID, err)
	}
	o.logger.Info("job queued", "job_id", job.ID, "topic", idea.Topic)
	return snapshot, nil
}

// RunJobSync creates a job and executes it before returning. The final record is
// returned together with the stage failure, if any.
func (o *Orchestrator) RunJobSync(ctx context.Context, idea model.UserIdea, opts StartOptions) (*model.JobRecord, error) {
	job, err := o.createJob(ctx, idea, opts)
	if err != nil {
		return nil, err
	}
	err = o.executor.Execute(ctx, job)
	return job.Clone(), err
}

// ExecuteJob loads a stored job and runs it. Failures have been recorded on the
// job by the time they are returned.
func (o *Orchestrator) ExecuteJob(ctx context.Context, jobID string) error {
	job, err := o.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrJobNotFound
		}
		return err
	}
	if job.StartedAt != nil {
		o.logger.Warn("job already started, skipping", "job_id", jobID)
		return nil
	}

	if err := o.executor.Execute(ctx, job); err != nil {
		o.logger.Error("job execution failed", "job_id", jobID, "error", err)
		return err
	}
	return nil
}

func (o *Orchestrator) GetJob(ctx context.Context, id string) (*model.JobRecord, error) {
	job, err := o.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (o *Orchestrator) ListJobs(ctx context.Context) ([]*model.JobRecord, error) {
	return o.store.List(ctx)
}

// TriggerPublish publishes a job whose upstream stages are ready. Publishing an
// already published job returns it unchanged.
func (o *Orchestrator) TriggerPublish(ctx context.Context, id string) (*model.JobRecord, error) {
	job, err := o.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkPublishable(job); err != nil {
		return nil, err
	}
	if job.Stages.Publish.Ready() {
		return job, nil
	}

	if !o.claimPublish(id) {
		return nil, ErrPublishRunning
	}
	defer o.releasePublish(id)

	// Another trigger may have finished between the first read and the claim.
	job, err = o.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkPublishable(job); err != nil {
		return nil, err
	}
	if job.Stages.Publish.Ready() {
		return job, nil
	}

	ctx = context.WithoutCancel(ctx)
	if _, err := o.executor.Publish(ctx, job); err != nil {
		o.logger.Error("manual publish failed", "job_id", id, "error", err)
		return nil, err
	}
	o.logger.Info("job published", "job_id", id)
	return job.Clone(), nil
}

// Wait blocks until dispatched jobs have finished, when the dispatcher tracks them.
func (o *Orchestrator) Wait(ctx context.Context) error {
	if w, ok := o.dispatcher.(interface{ Wait(context.Context) error }); ok {
		return w.Wait(ctx)
	}
	return nil
}

func (o *Orchestrator) createJob(ctx context.Context, idea model.UserIdea, opts StartOptions) (*model.JobRecord, error) {
	if idea.DurationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidIdea)
	}
	autoPublish := o.autoPublish
	if opts.AutoPublish != nil {
		autoPublish = *opts.AutoPublish
	}

	job := model.NewJobRecord(o.newID(), idea, model.JobOptions{AutoPublish: autoPublish}, o.now())
	if err := o.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	if o.observer != nil {
		o.observer.JobUpdated(job.Clone())
	}
	return job, nil
}

func checkPublishable(job *model.JobRecord) error {
	if !job.Stages.UpstreamReady() || job.Stages.Publish.Status() == model.StageStatusLocked {
		return ErrUpstreamNotReady
	}
	if job.Stages.Publish.Status() == model.StageStatusRunning {
		return ErrPublishRunning
	}
	return nil
}

func (o *Orchestrator) claimPublish(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.publishing[id]; busy {
		return false
	}
	o.publishing[id] = struct{}{}
	return true
}

func (o *Orchestrator) releasePublish(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.publishing, id)
}
