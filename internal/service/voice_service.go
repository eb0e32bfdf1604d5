package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autovideo/api/internal/client"
	"github.com/autovideo/api/internal/model"
)

// VoiceService synthesizes the voiceover with ElevenLabs and stores it
type VoiceService struct {
	elevenLabs *client.ElevenLabsClient
	storage    client.StorageClient
	now        func() time.Time
}

// NewVoiceService creates the service. storage may be nil, in which case the audio
// is not kept and a memory:// reference is recorded.
func NewVoiceService(elevenLabs *client.ElevenLabsClient, storage client.StorageClient) *VoiceService {
	return &VoiceService{
		elevenLabs: elevenLabs,
		storage:    storage,
		now:        time.Now,
	}
}

func (s *VoiceService) BuildVoiceTrack(ctx context.Context, idea model.UserIdea, script *model.ScriptResponse, video *model.VideoArtifact) (*model.AudioArtifact, error) {
	if !s.elevenLabs.IsConfigured() {
		slog.Warn("ELEVENLABS_API_KEY missing, returning mock audio artifact")
		return mockAudio(), nil
	}

	text := voiceoverText(script)
	if text == "" {
		return nil, fmt.Errorf("script has no voiceover text")
	}

	audio, err := s.elevenLabs.TextToSpeech(ctx, text)
	if err != nil {
		return nil, err
	}

	url, err := s.storeVoiceover(ctx, audio)
	if err != nil {
		return nil, err
	}

	return &model.AudioArtifact{
		VoiceoverURL: url,
		CleanedURL:   url,
		MixURL:       url,
		Notes:        []string{"Voiceover only; isolation and muxing with the video are not performed."},
	}, nil
}

func (s *VoiceService) storeVoiceover(ctx context.Context, audio []byte) (string, error) {
	if s.storage == nil {
		slog.Debug("no storage configured, keeping voiceover reference only", "bytes", len(audio))
		return fmt.Sprintf("memory://voiceover.mp3-%d", s.now().UnixMilli()), nil
	}
	key := fmt.Sprintf("voiceovers/%s.mp3", uuid.New().String())
	url, err := s.storage.Upload(ctx, key, bytes.NewReader(audio), "audio/mpeg")
	if err != nil {
		return "", fmt.Errorf("failed to store voiceover: %w", err)
	}
	return url, nil
}

func voiceoverText(script *model.ScriptResponse) string {
	parts := make([]string, 0, len(script.Scenes))
	for _, scene := range script.Scenes {
		if v := strings.TrimSpace(scene.Voiceover); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
