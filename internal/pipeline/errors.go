package pipeline

import (
	"errors"
	"fmt"

	"github.com/autovideo/api/internal/model"
)

// Publish trigger preconditions. The messages are shown to API clients as is.
var (
	ErrJobNotFound      = errors.New("Job not found")
	ErrUpstreamNotReady = errors.New("Upstream stages are not ready")
	ErrPublishRunning   = errors.New("Publish already running")
)

// ErrInvalidIdea is returned when an idea cannot be turned into a job.
var ErrInvalidIdea = errors.New("invalid idea")

// StageError reports which stage of which job failed.
type StageError struct {
	JobID string
	Stage model.StageName
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %s", e.Stage, stageMessage(e.Err))
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// stageMessage is the text recorded on a failed stage.
func stageMessage(err error) string {
	if err == nil || err.Error() == "" {
		return "Unknown error"
	}
	return err.Error()
}
