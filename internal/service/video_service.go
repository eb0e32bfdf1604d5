package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/autovideo/api/internal/client"
	"github.com/autovideo/api/internal/model"
)

// VideoService renders scenes with Kie
type VideoService struct {
	kie *client.KieClient
}

func NewVideoService(kie *client.KieClient) *VideoService {
	return &VideoService{kie: kie}
}

func (s *VideoService) GenerateVideo(ctx context.Context, script *model.ScriptResponse) (*model.VideoArtifact, error) {
	if !s.kie.IsConfigured() {
		slog.Warn("KIE_API_KEY missing, returning mock video artifact")
		return mockVideo(), nil
	}

	prompt := videoPrompt(script)
	taskID, err := s.kie.Generate(ctx, &client.GenerateVideoRequest{
		Prompt:      prompt,
		Duration:    10,
		Quality:     "720p",
		AspectRatio: "16:9",
		WaterMark:   "",
	})
	if err != nil {
		return nil, err
	}
	slog.Info("kie task created", "task_id", taskID)

	videoURL, err := s.kie.PollVideo(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return &model.VideoArtifact{
		Provider: model.VideoProviderKie,
		TaskID:   taskID,
		VideoURL: videoURL,
		Prompt:   prompt,
	}, nil
}

func videoPrompt(script *model.ScriptResponse) string {
	parts := make([]string, 0, len(script.Scenes))
	for _, scene := range script.Scenes {
		parts = append(parts, fmt.Sprintf("%s (duration %ds)", scene.Prompt, scene.DurationS))
	}
	return strings.Join(parts, " ")
}
