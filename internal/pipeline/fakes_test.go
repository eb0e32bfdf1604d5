package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/autovideo/api/internal/model"
	"github.com/autovideo/api/internal/store"
)

type fakeScript struct {
	err   error
	block chan struct{}
}

func (f *fakeScript) GenerateScript(ctx context.Context, idea model.UserIdea) (*model.ScriptResponse, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.ScriptResponse{
		Script:   model.ScriptBody{Sections: []model.ScriptSection{{ID: "hook", Text: idea.Topic, DurationS: 5}}},
		Scenes:   []model.Scene{{ID: "s1", Prompt: "wide shot", DurationS: 5, Voiceover: "hello"}},
		Metadata: model.ScriptMetadata{Title: idea.Topic, Tags: []string{"test"}},
	}, nil
}

type fakeVideo struct{ err error }

func (f *fakeVideo) GenerateVideo(ctx context.Context, script *model.ScriptResponse) (*model.VideoArtifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.VideoArtifact{Provider: model.VideoProviderMock, VideoURL: "https://cdn.test/video.mp4", Prompt: script.Scenes[0].Prompt}, nil
}

type fakeAudio struct{ err error }

func (f *fakeAudio) BuildVoiceTrack(ctx context.Context, idea model.UserIdea, script *model.ScriptResponse, video *model.VideoArtifact) (*model.AudioArtifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.AudioArtifact{VoiceoverURL: "https://cdn.test/voice.mp3"}, nil
}

type fakeCaptions struct{ err error }

func (f *fakeCaptions) TranscribeCaptions(ctx context.Context, audio *model.AudioArtifact) (*model.CaptionArtifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.CaptionArtifact{Transcript: "hello", SRT: "1\n00:00:00,000 --> 00:00:01,000\nhello\n"}, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	err     error
	block   chan struct{}
	started chan struct{}
	calls   atomic.Int32
	inputs  []PublishInput
}

func (f *fakePublisher) Publish(ctx context.Context, in PublishInput) (*model.PublishArtifact, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	err := f.err
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if err != nil {
		return nil, err
	}
	return &model.PublishArtifact{Status: model.PublishStatusUploaded, VideoID: "yt-123"}, nil
}

func (f *fakePublisher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// recordingObserver keeps every snapshot it is shown.
type recordingObserver struct {
	mu    sync.Mutex
	snaps []*model.JobRecord
}

func (r *recordingObserver) JobUpdated(job *model.JobRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, job)
}

func (r *recordingObserver) stageHistory(name model.StageName) []model.StageStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StageStatus
	for _, s := range r.snaps {
		st := s.Stages.Get(name).Status()
		if len(out) == 0 || out[len(out)-1] != st {
			out = append(out, st)
		}
	}
	return out
}

// countingStore counts Update calls on top of a MemoryStore.
type countingStore struct {
	*store.MemoryStore
	updates atomic.Int32
}

func (s *countingStore) Update(ctx context.Context, job *model.JobRecord) error {
	s.updates.Add(1)
	return s.MemoryStore.Update(ctx, job)
}

type harness struct {
	store     *countingStore
	script    *fakeScript
	video     *fakeVideo
	audio     *fakeAudio
	captions  *fakeCaptions
	publisher *fakePublisher
	observer  *recordingObserver
	executor  *Executor
	orch      *Orchestrator
}

func newHarness(t *testing.T, autoPublish bool, opts ...OrchestratorOption) *harness {
	t.Helper()
	h := &harness{
		store:     &countingStore{MemoryStore: store.NewMemoryStore()},
		script:    &fakeScript{},
		video:     &fakeVideo{},
		audio:     &fakeAudio{},
		captions:  &fakeCaptions{},
		publisher: &fakePublisher{},
		observer:  &recordingObserver{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.executor = NewExecutor(h.store, Collaborators{
		Script:    h.script,
		Video:     h.video,
		Audio:     h.audio,
		Captions:  h.captions,
		Publisher: h.publisher,
	}, logger)
	opts = append([]OrchestratorOption{WithObserver(h.observer)}, opts...)
	h.orch = NewOrchestrator(h.store, h.executor, autoPublish, logger, opts...)
	t.Cleanup(func() { _ = h.orch.Wait(context.Background()) })
	return h
}

func testIdea() model.UserIdea {
	return model.UserIdea{Topic: "Why Go", DurationSeconds: 30, BrandVoice: "calm"}
}

func boolPtr(b bool) *bool { return &b }
