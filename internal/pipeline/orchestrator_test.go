package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autovideo/api/internal/model"
)

func waitForStatus(t *testing.T, o *Orchestrator, id string, want model.JobStatus) *model.JobRecord {
	t.Helper()
	var job *model.JobRecord
	require.Eventually(t, func() bool {
		var err error
		job, err = o.GetJob(context.Background(), id)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestStartJob_ReturnsPendingSnapshot(t *testing.T) {
	h := newHarness(t, false)
	h.script.block = make(chan struct{})

	job, err := h.orch.StartJob(context.Background(), testIdea(), StartOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, model.StageStatusLocked, job.Stages.Publish.Status())
	assert.Nil(t, job.StartedAt)
	assert.Equal(t, job.CreatedAt, job.UpdatedAt)

	require.Eventually(t, func() bool {
		cur, err := h.orch.GetJob(context.Background(), job.ID)
		return err == nil && cur.Stages.Script.Status() == model.StageStatusRunning
	}, 2*time.Second, 5*time.Millisecond)
	running, err := h.orch.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, running.Status)
	assert.NotNil(t, running.StartedAt)

	close(h.script.block)
	require.NoError(t, h.orch.Wait(context.Background()))

	final := waitForStatus(t, h.orch, job.ID, model.JobStatusAwaitingPublish)
	assert.NotNil(t, final.Artifacts.Captions)
}

func TestStartJob_RequestCancellationDoesNotStopJob(t *testing.T) {
	h := newHarness(t, true)
	ctx, cancel := context.WithCancel(context.Background())

	job, err := h.orch.StartJob(ctx, testIdea(), StartOptions{})
	require.NoError(t, err)
	cancel()

	require.NoError(t, h.orch.Wait(context.Background()))
	waitForStatus(t, h.orch, job.ID, model.JobStatusCompleted)
}

func TestStartJob_DetachedFailureIsRecorded(t *testing.T) {
	h := newHarness(t, false)
	h.audio.err = errors.New("ElevenLabs error 401")

	job, err := h.orch.StartJob(context.Background(), testIdea(), StartOptions{})
	require.NoError(t, err)
	require.NoError(t, h.orch.Wait(context.Background()))

	final := waitForStatus(t, h.orch, job.ID, model.JobStatusError)
	assert.Equal(t, "ElevenLabs error 401", final.Stages.Audio.Error())
}

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(context.Context, string) error {
	return errors.New("redis unavailable")
}

func TestStartJob_DispatchFailureReachesCaller(t *testing.T) {
	h := newHarness(t, false, WithDispatcher(failingDispatcher{}))

	_, err := h.orch.StartJob(context.Background(), testIdea(), StartOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis unavailable")
}

func TestStartJob_IndependentJobs(t *testing.T) {
	h := newHarness(t, true)

	ids := make([]string, 5)
	for i := range ids {
		job, err := h.orch.StartJob(context.Background(), testIdea(), StartOptions{})
		require.NoError(t, err)
		ids[i] = job.ID
	}
	require.NoError(t, h.orch.Wait(context.Background()))

	for _, id := range ids {
		waitForStatus(t, h.orch, id, model.JobStatusCompleted)
	}
	jobs, err := h.orch.ListJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 5)
}

func TestListJobs_NewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var (
		mu    sync.Mutex
		clock = base
	)
	ids := []string{"A", "B", "C"}
	next := 0
	h := newHarness(t, false,
		WithDispatcher(noopDispatcher{}),
		WithClock(func() time.Time { mu.Lock(); defer mu.Unlock(); return clock }),
		WithIDGenerator(func() string { id := ids[next]; next++; return id }),
	)

	for _, off := range []int{1, 3, 2} {
		mu.Lock()
		clock = base.Add(time.Duration(off) * time.Second)
		mu.Unlock()
		_, err := h.orch.StartJob(context.Background(), testIdea(), StartOptions{})
		require.NoError(t, err)
	}

	jobs, err := h.orch.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"B", "C", "A"}, []string{jobs[0].ID, jobs[1].ID, jobs[2].ID})
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, string) error { return nil }

func TestGetJob_NotFound(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.orch.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestTriggerPublish_ManualFlow(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	job, err := h.orch.RunJobSync(ctx, testIdea(), StartOptions{})
	require.NoError(t, err)
	require.Equal(t, model.JobStatusAwaitingPublish, job.Status)

	published, err := h.orch.TriggerPublish(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, published.Status)
	assert.True(t, published.Stages.Publish.Ready())
	require.NotNil(t, published.Artifacts.Publish)
	assert.NotNil(t, published.CompletedAt)
	assert.Equal(t, int32(1), h.publisher.calls.Load())
	require.Len(t, h.publisher.inputs, 1)
	assertPublishInput(t, published, h.publisher.inputs[0])

	again, err := h.orch.TriggerPublish(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, again.Status)
	assert.Equal(t, published.UpdatedAt, again.UpdatedAt)
	assert.Equal(t, int32(1), h.publisher.calls.Load())
}

func TestTriggerPublish_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown job", func(t *testing.T) {
		h := newHarness(t, false)
		_, err := h.orch.TriggerPublish(ctx, "nope")
		assert.ErrorIs(t, err, ErrJobNotFound)
		assert.Equal(t, "Job not found", err.Error())
	})

	t.Run("upstream not ready", func(t *testing.T) {
		h := newHarness(t, false, WithDispatcher(noopDispatcher{}))
		job, err := h.orch.StartJob(ctx, testIdea(), StartOptions{})
		require.NoError(t, err)

		_, err = h.orch.TriggerPublish(ctx, job.ID)
		assert.ErrorIs(t, err, ErrUpstreamNotReady)
		assert.Equal(t, "Upstream stages are not ready", err.Error())

		after, err := h.orch.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.Stages, after.Stages)
		assert.Equal(t, job.UpdatedAt, after.UpdatedAt)
	})

	t.Run("failed upstream", func(t *testing.T) {
		h := newHarness(t, false)
		h.captions.err = errors.New("scribe down")
		job, err := h.orch.RunJobSync(ctx, testIdea(), StartOptions{})
		require.Error(t, err)

		_, err = h.orch.TriggerPublish(ctx, job.ID)
		assert.ErrorIs(t, err, ErrUpstreamNotReady)
	})

	t.Run("publish running", func(t *testing.T) {
		h := newHarness(t, false)
		job, err := h.orch.RunJobSync(ctx, testIdea(), StartOptions{})
		require.NoError(t, err)

		job.Stages.Publish = model.Running("")
		require.NoError(t, h.store.Save(ctx, job))

		_, err = h.orch.TriggerPublish(ctx, job.ID)
		assert.ErrorIs(t, err, ErrPublishRunning)
		assert.Equal(t, "Publish already running", err.Error())
		assert.Zero(t, h.publisher.calls.Load())
	})
}

func TestTriggerPublish_ConcurrentTriggersRunOnce(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	job, err := h.orch.RunJobSync(ctx, testIdea(), StartOptions{})
	require.NoError(t, err)

	h.publisher.block = make(chan struct{})
	h.publisher.started = make(chan struct{}, 1)

	firstErr := make(chan error, 1)
	go func() {
		_, err := h.orch.TriggerPublish(ctx, job.ID)
		firstErr <- err
	}()
	<-h.publisher.started

	_, err = h.orch.TriggerPublish(ctx, job.ID)
	assert.ErrorIs(t, err, ErrPublishRunning)

	close(h.publisher.block)
	require.NoError(t, <-firstErr)
	assert.Equal(t, int32(1), h.publisher.calls.Load())
}

func TestTriggerPublish_FailureCanBeRetried(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	job, err := h.orch.RunJobSync(ctx, testIdea(), StartOptions{})
	require.NoError(t, err)

	h.publisher.setErr(errors.New("quotaExceeded"))
	_, err = h.orch.TriggerPublish(ctx, job.ID)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, model.StagePublish, stageErr.Stage)

	failed, err := h.orch.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusError, failed.Status)
	assert.Equal(t, "quotaExceeded", failed.Stages.Publish.Error())

	h.publisher.setErr(nil)
	published, err := h.orch.TriggerPublish(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, published.Status)
}

func TestExecuteJob_SkipsStartedJob(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	job, err := h.orch.RunJobSync(ctx, testIdea(), StartOptions{})
	require.NoError(t, err)
	before := h.store.updates.Load()

	require.NoError(t, h.orch.ExecuteJob(ctx, job.ID))
	assert.Equal(t, before, h.store.updates.Load())

	assert.ErrorIs(t, h.orch.ExecuteJob(ctx, "missing"), ErrJobNotFound)
}
