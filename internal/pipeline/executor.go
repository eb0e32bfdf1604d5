package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/autovideo/api/internal/model"
	"github.com/autovideo/api/internal/store"
)

// Executor drives one job through its stages in order
type Executor struct {
	runner *runner

	script    ScriptGenerator
	video     VideoGenerator
	audio     AudioBuilder
	captions  CaptionTranscriber
	publisher Publisher
}

func NewExecutor(st store.JobStore, c Collaborators, logger *slog.Logger) *Executor {
	return &Executor{
		runner:    newRunner(st, logger),
		script:    c.Script,
		video:     c.Video,
		audio:     c.Audio,
		captions:  c.Captions,
		publisher: c.Publisher,
	}
}

// SetObserver registers a listener for persisted job changes.
func (e *Executor) SetObserver(o Observer) {
	e.runner.observer = o
}

// SetClock replaces the clock used for StartedAt and CompletedAt.
func (e *Executor) SetClock(now func() time.Time) {
	e.runner.now = now
}

// Execute runs script, video, audio and captions, unlocks publish, and publishes
// when the job asks for it. The first failing stage stops the run and is returned
// as a *StageError. job is the caller's working copy and is updated in place.
func (e *Executor) Execute(ctx context.Context, job *model.JobRecord) error {
	r := e.runner
	started := r.now()
	job.StartedAt = &started
	if err := r.persist(ctx, job); err != nil {
		return err
	}
	r.logger.Info("job started", "job_id", job.ID, "auto_publish", job.Options.AutoPublish)

	script, err := runStage(ctx, r, job, stage[*model.ScriptResponse]{
		name: model.StageScript,
		run: func(ctx context.Context) (*model.ScriptResponse, error) {
			return e.script.GenerateScript(ctx, job.Idea)
		},
		apply: func(j *model.JobRecord, out *model.ScriptResponse) { j.Artifacts.Script = out },
	})
	if err != nil {
		return err
	}

	video, err := runStage(ctx, r, job, stage[*model.VideoArtifact]{
		name: model.StageVideo,
		run: func(ctx context.Context) (*model.VideoArtifact, error) {
			return e.video.GenerateVideo(ctx, script)
		},
		ref:   videoRef,
		apply: func(j *model.JobRecord, out *model.VideoArtifact) { j.Artifacts.Video = out },
	})
	if err != nil {
		return err
	}

	audio, err := runStage(ctx, r, job, stage[*model.AudioArtifact]{
		name: model.StageAudio,
		run: func(ctx context.Context) (*model.AudioArtifact, error) {
			return e.audio.BuildVoiceTrack(ctx, job.Idea, script, video)
		},
		ref:   audioRef,
		apply: func(j *model.JobRecord, out *model.AudioArtifact) { j.Artifacts.Audio = out },
	})
	if err != nil {
		return err
	}

	_, err = runStage(ctx, r, job, stage[*model.CaptionArtifact]{
		name: model.StageCaptions,
		run: func(ctx context.Context) (*model.CaptionArtifact, error) {
			return e.captions.TranscribeCaptions(ctx, audio)
		},
		apply: func(j *model.JobRecord, out *model.CaptionArtifact) { j.Artifacts.Captions = out },
	})
	if err != nil {
		return err
	}

	if !job.Stages.UpstreamReady() {
		return r.persist(ctx, job)
	}

	if job.Options.AutoPublish {
		job.Stages.Publish = model.Running("")
	} else {
		job.Stages.Publish = model.Idle("awaiting manual trigger")
	}
	if err := r.persist(ctx, job); err != nil {
		return err
	}

	if !job.Options.AutoPublish {
		r.logger.Info("job awaiting publish", "job_id", job.ID)
		return nil
	}

	if _, err := e.Publish(ctx, job); err != nil {
		return err
	}
	r.logger.Info("job completed", "job_id", job.ID)
	return nil
}

// Publish runs the publish stage on job. Callers check preconditions.
func (e *Executor) Publish(ctx context.Context, job *model.JobRecord) (*model.PublishArtifact, error) {
	in := PublishInput{
		JobID:    job.ID,
		Idea:     job.Idea,
		Script:   job.Artifacts.Script,
		Video:    job.Artifacts.Video,
		Audio:    job.Artifacts.Audio,
		Captions: job.Artifacts.Captions,
	}
	return runStage(ctx, e.runner, job, stage[*model.PublishArtifact]{
		name: model.StagePublish,
		run: func(ctx context.Context) (*model.PublishArtifact, error) {
			return e.publisher.Publish(ctx, in)
		},
		ref:   publishRef,
		apply: func(j *model.JobRecord, out *model.PublishArtifact) { j.Artifacts.Publish = out },
	})
}

func videoRef(v *model.VideoArtifact) string {
	if v == nil {
		return ""
	}
	return v.VideoURL
}

func audioRef(a *model.AudioArtifact) string {
	if a == nil {
		return ""
	}
	return a.VoiceoverURL
}

func publishRef(p *model.PublishArtifact) string {
	if p == nil {
		return ""
	}
	return p.VideoID
}
