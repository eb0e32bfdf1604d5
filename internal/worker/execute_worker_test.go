package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autovideo/api/internal/pipeline"
)

type runnerFunc func(ctx context.Context, jobID string) error

func (f runnerFunc) ExecuteJob(ctx context.Context, jobID string) error { return f(ctx, jobID) }

func TestExecuteWorker_RunsJob(t *testing.T) {
	var got string
	w := NewExecuteWorker(runnerFunc(func(_ context.Context, id string) error {
		got = id
		return nil
	}), nil)

	task, err := pipeline.NewExecuteJobTask("job-1")
	require.NoError(t, err)
	require.NoError(t, w.ProcessTask(context.Background(), task))
	assert.Equal(t, "job-1", got)
}

func TestExecuteWorker_FailuresSkipRetry(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		runErr  error
	}{
		{name: "bad payload", payload: []byte("{")},
		{name: "missing id", payload: []byte(`{}`)},
		{name: "job gone", payload: []byte(`{"jobId":"j"}`), runErr: pipeline.ErrJobNotFound},
		{name: "stage failed", payload: []byte(`{"jobId":"j"}`), runErr: &pipeline.StageError{JobID: "j", Err: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewExecuteWorker(runnerFunc(func(context.Context, string) error { return tt.runErr }), nil)
			err := w.ProcessTask(context.Background(), asynq.NewTask(pipeline.TaskTypeExecuteJob, tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, asynq.SkipRetry)
		})
	}
}

func TestExecuteWorker_Register(t *testing.T) {
	called := false
	w := NewExecuteWorker(runnerFunc(func(context.Context, string) error {
		called = true
		return nil
	}), nil)
	mux := asynq.NewServeMux()
	w.Register(mux)

	task, err := pipeline.NewExecuteJobTask("job-2")
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	assert.True(t, called)
}
