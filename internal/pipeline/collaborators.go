package pipeline

import (
	"context"

	"github.com/autovideo/api/internal/model"
)

// ScriptGenerator turns an idea into a script.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, idea model.UserIdea) (*model.ScriptResponse, error)
}

// VideoGenerator renders the script's scenes into a video.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, script *model.ScriptResponse) (*model.VideoArtifact, error)
}

// AudioBuilder produces the voice track.
type AudioBuilder interface {
	BuildVoiceTrack(ctx context.Context, idea model.UserIdea, script *model.ScriptResponse, video *model.VideoArtifact) (*model.AudioArtifact, error)
}

// CaptionTranscriber transcribes the voice track.
type CaptionTranscriber interface {
	TranscribeCaptions(ctx context.Context, audio *model.AudioArtifact) (*model.CaptionArtifact, error)
}

// PublishInput is everything the publisher needs from a finished job.
type PublishInput struct {
	JobID    string
	Idea     model.UserIdea
	Script   *model.ScriptResponse
	Video    *model.VideoArtifact
	Audio    *model.AudioArtifact
	Captions *model.CaptionArtifact
}

// Publisher uploads the finished video.
type Publisher interface {
	Publish(ctx context.Context, in PublishInput) (*model.PublishArtifact, error)
}

// Collaborators bundles the per-stage services.
type Collaborators struct {
	Script    ScriptGenerator
	Video     VideoGenerator
	Audio     AudioBuilder
	Captions  CaptionTranscriber
	Publisher Publisher
}

// Observer is told about every persisted change to a job. JobUpdated receives a
// copy and must not block.
type Observer interface {
	JobUpdated(job *model.JobRecord)
}
