package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autovideo/api/internal/client"
	"github.com/autovideo/api/internal/config"
	"github.com/autovideo/api/internal/model"
	"github.com/autovideo/api/internal/pipeline"
)

var testIdea = model.UserIdea{Topic: "cafe branding", DurationSeconds: 60, BrandVoice: "calm"}

func TestScriptService_MockWithoutKey(t *testing.T) {
	s := NewScriptService(client.NewDeepSeekClient(config.DeepSeekConfig{}), validator.New())

	script, err := s.GenerateScript(context.Background(), testIdea)
	require.NoError(t, err)
	assert.Equal(t, "How to Brand a Small Cafe in 60 Seconds", script.Metadata.Title)
	require.Len(t, script.Scenes, 1)
	assert.Equal(t, "s1", script.Scenes[0].ID)
	assert.Len(t, script.Script.Sections, 3)
}

func TestScriptService_UsesDeepSeek(t *testing.T) {
	payload := `{"script":{"sections":[{"id":"hook","text":"Hi","duration_s":5}]},` +
		`"scenes":[{"id":"a","prompt":"wide shot","duration_s":5,"on_screen_text":"x","voiceover":"hello"}],` +
		`"metadata":{"title":"Real title","description":"d","tags":["t"]}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req client.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Topic: cafe branding. Desired duration: 60s. Brand voice: calm.", req.Messages[1].Content)

		resp := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": payload}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	s := NewScriptService(client.NewDeepSeekClient(config.DeepSeekConfig{APIKey: "k", BaseURL: srv.URL}), validator.New())
	script, err := s.GenerateScript(context.Background(), testIdea)
	require.NoError(t, err)
	assert.Equal(t, "Real title", script.Metadata.Title)
	assert.Equal(t, "hello", script.Scenes[0].Voiceover)
}

func TestScriptService_FallsBackOnInvalidPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"scenes\":[]}"}}]}`))
	}))
	defer srv.Close()

	s := NewScriptService(client.NewDeepSeekClient(config.DeepSeekConfig{APIKey: "k", BaseURL: srv.URL}), validator.New())
	script, err := s.GenerateScript(context.Background(), testIdea)
	require.NoError(t, err)
	assert.Equal(t, "How to Brand a Small Cafe in 60 Seconds", script.Metadata.Title)
}

func TestScriptService_FallsBackOnVendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewScriptService(client.NewDeepSeekClient(config.DeepSeekConfig{APIKey: "k", BaseURL: srv.URL}), validator.New())
	script, err := s.GenerateScript(context.Background(), testIdea)
	require.NoError(t, err)
	assert.NotEmpty(t, script.Scenes)
}

func TestVideoService_MockWithoutKey(t *testing.T) {
	s := NewVideoService(client.NewKieClient(config.KieConfig{}))
	video, err := s.GenerateVideo(context.Background(), mockScript())
	require.NoError(t, err)
	assert.Equal(t, model.VideoProviderMock, video.Provider)
	assert.Equal(t, "https://example.com/mock-video.mp4", video.VideoURL)
}

func TestVideoService_GeneratesAndPolls(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/runway/generate":
			var req client.GenerateVideoRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "a (duration 5s) b (duration 3s)", req.Prompt)
			assert.Equal(t, 10, req.Duration)
			assert.Equal(t, "720p", req.Quality)
			assert.Equal(t, "16:9", req.AspectRatio)
			_, _ = w.Write([]byte(`{"code":200,"data":{"taskId":"task-9"}}`))
		case "/api/v1/runway/record-detail":
			polls++
			if polls < 2 {
				_, _ = w.Write([]byte(`{"data":{"state":"generating"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{"state":"success","videoInfo":{"videoUrl":"https://cdn/v.mp4"}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	kie := client.NewKieClient(config.KieConfig{APIKey: "k", BaseURL: srv.URL}).WithRetryPolicy(client.RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Multiplier:  1,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	})
	script := &model.ScriptResponse{Scenes: []model.Scene{
		{ID: "1", Prompt: "a", DurationS: 5},
		{ID: "2", Prompt: "b", DurationS: 3},
	}}

	video, err := NewVideoService(kie).GenerateVideo(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, model.VideoProviderKie, video.Provider)
	assert.Equal(t, "task-9", video.TaskID)
	assert.Equal(t, "https://cdn/v.mp4", video.VideoURL)
	assert.Equal(t, 2, polls)
}

type memStorage struct {
	objects map[string][]byte
	failPut bool
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if m.failPut {
		return "", assert.AnError
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = b
	return m.GetPublicURL(key), nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStorage) GetPublicURL(key string) string {
	return "https://media.test/" + key
}

func TestVoiceService_MockWithoutKey(t *testing.T) {
	s := NewVoiceService(client.NewElevenLabsClient(config.ElevenLabsConfig{}), nil)
	audio, err := s.BuildVoiceTrack(context.Background(), testIdea, mockScript(), mockVideo())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/mock-voiceover.mp3", audio.VoiceoverURL)
	assert.NotEmpty(t, audio.Notes)
}

func ttsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req client.TextToSpeechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "first line second line", req.Text)
		_, _ = w.Write([]byte("mp3"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

var twoSceneScript = &model.ScriptResponse{Scenes: []model.Scene{
	{ID: "1", Prompt: "p", Voiceover: "first line"},
	{ID: "2", Prompt: "p", Voiceover: " "},
	{ID: "3", Prompt: "p", Voiceover: "second line"},
}}

func TestVoiceService_UploadsVoiceover(t *testing.T) {
	srv := ttsServer(t)
	storage := newMemStorage()
	s := NewVoiceService(client.NewElevenLabsClient(config.ElevenLabsConfig{APIKey: "k", BaseURL: srv.URL, VoiceID: "v"}), storage)

	audio, err := s.BuildVoiceTrack(context.Background(), testIdea, twoSceneScript, mockVideo())
	require.NoError(t, err)
	require.Len(t, storage.objects, 1)
	for key, body := range storage.objects {
		assert.True(t, strings.HasPrefix(key, "voiceovers/"))
		assert.True(t, strings.HasSuffix(key, ".mp3"))
		assert.Equal(t, []byte("mp3"), body)
		assert.Equal(t, "https://media.test/"+key, audio.VoiceoverURL)
	}
}

func TestVoiceService_MemoryReferenceWithoutStorage(t *testing.T) {
	srv := ttsServer(t)
	s := NewVoiceService(client.NewElevenLabsClient(config.ElevenLabsConfig{APIKey: "k", BaseURL: srv.URL, VoiceID: "v"}), nil)
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }

	audio, err := s.BuildVoiceTrack(context.Background(), testIdea, twoSceneScript, mockVideo())
	require.NoError(t, err)
	assert.Equal(t, "memory://voiceover.mp3-1700000000123", audio.VoiceoverURL)
}

func TestVoiceService_StorageFailure(t *testing.T) {
	srv := ttsServer(t)
	storage := newMemStorage()
	storage.failPut = true
	s := NewVoiceService(client.NewElevenLabsClient(config.ElevenLabsConfig{APIKey: "k", BaseURL: srv.URL, VoiceID: "v"}), storage)

	_, err := s.BuildVoiceTrack(context.Background(), testIdea, twoSceneScript, mockVideo())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCaptionService_MockCases(t *testing.T) {
	withoutKey := NewCaptionService(client.NewElevenLabsClient(config.ElevenLabsConfig{}))
	captions, err := withoutKey.TranscribeCaptions(context.Background(), mockAudio())
	require.NoError(t, err)
	assert.Equal(t, "Brand is the feeling customers remember. Craft every touchpoint with care.", captions.Transcript)

	withKey := NewCaptionService(client.NewElevenLabsClient(config.ElevenLabsConfig{APIKey: "k", BaseURL: "http://unused"}))
	captions, err = withKey.TranscribeCaptions(context.Background(), &model.AudioArtifact{VoiceoverURL: "memory://voiceover.mp3-1"})
	require.NoError(t, err)
	assert.Contains(t, captions.SRT, "00:00:04,000 --> 00:00:08,000")
}

func TestCaptionService_Transcribes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "https://media.test/v.mp3", r.FormValue("cloud_storage_url"))
		_, _ = w.Write([]byte(`{"text":"Hello world. Bye","words":[
			{"text":"Hello","start":0,"end":0.4,"type":"word"},
			{"text":" ","start":0.4,"end":0.5,"type":"spacing"},
			{"text":"world.","start":0.5,"end":1.2,"type":"word"},
			{"text":"Bye","start":1.5,"end":2,"type":"word"}]}`))
	}))
	defer srv.Close()

	s := NewCaptionService(client.NewElevenLabsClient(config.ElevenLabsConfig{APIKey: "k", BaseURL: srv.URL}))
	captions, err := s.TranscribeCaptions(context.Background(), &model.AudioArtifact{VoiceoverURL: "https://media.test/v.mp3"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world. Bye", captions.Transcript)
	assert.Len(t, captions.Words, 3)
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:01,200\nHello world.\n\n2\n00:00:01,500 --> 00:00:02,000\nBye\n", captions.SRT)
}

func TestBuildSRT_SplitsLongCues(t *testing.T) {
	var words []model.CaptionWord
	for i := 0; i < 10; i++ {
		words = append(words, model.CaptionWord{Text: "w", Start: float64(i) * 0.2, End: float64(i)*0.2 + 0.2})
	}
	srt := buildSRT(words)
	assert.Equal(t, 2, strings.Count(srt, " --> "))
	assert.True(t, strings.HasPrefix(srt, "1\n00:00:00,000 --> 00:00:01,600\nw w w w w w w w\n"))
}

func TestSRTTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", srtTimestamp(-1))
	assert.Equal(t, "00:01:01,250", srtTimestamp(61.25))
	assert.Equal(t, "01:00:00,000", srtTimestamp(3600))
}

func TestPublishService_Skips(t *testing.T) {
	noCreds := NewPublishService(client.NewYouTubeClient(config.YouTubeConfig{}))
	out, err := noCreds.Publish(context.Background(), pipeline.PublishInput{JobID: "j", Video: mockVideo()})
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusSkipped, out.Status)
	assert.Equal(t, "Missing OAuth credentials", out.Reason)

	withCreds := NewPublishService(client.NewYouTubeClient(config.YouTubeConfig{ClientID: "a", ClientSecret: "b", RefreshToken: "c"}))
	out, err = withCreds.Publish(context.Background(), pipeline.PublishInput{JobID: "j", Video: mockVideo()})
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusSkipped, out.Status)
	assert.Equal(t, "Mock video cannot be uploaded", out.Reason)
}

func TestUploadMetadata(t *testing.T) {
	in := pipeline.PublishInput{
		JobID:    "j",
		Idea:     model.UserIdea{Topic: "How to brand a small cafe"},
		Script:   mockScript(),
		Audio:    mockAudio(),
		Captions: mockCaptions(),
	}
	meta := uploadMetadata(in)
	assert.Equal(t, "How to Brand a Small Cafe in 60 Seconds", meta.Title)
	assert.Equal(t, []string{"branding", "cafe", "identity"}, meta.Tags)

	in.Script = nil
	meta = uploadMetadata(in)
	assert.Equal(t, "How to brand a small cafe", meta.Title)
	assert.Equal(t, "Brand is the feeling customers remember. Craft every touchpoint with care.", meta.Description)
	assert.Empty(t, meta.Tags)
}

func TestNormalizeContentType(t *testing.T) {
	assert.Equal(t, "image/png", normalizeContentType("Image/PNG; charset=binary"))
	assert.Equal(t, "image/jpeg", normalizeContentType(" image/jpeg "))
}

func newFaceImage(ct string, body []byte) FaceImage {
	return FaceImage{Body: bytes.NewReader(body), Size: int64(len(body)), ContentType: ct}
}
