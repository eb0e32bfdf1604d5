package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/autovideo/api/internal/client"
	"github.com/autovideo/api/internal/model"
)

const scriptSystemPrompt = `You are a video scriptwriter. Return strictly valid JSON with this shape:
{"script":{"sections":[{"id":string,"text":string,"duration_s":number}]},
 "scenes":[{"id":string,"prompt":string,"duration_s":number,"on_screen_text":string,"voiceover":string}],
 "metadata":{"title":string,"description":string,"tags":[string]}}`

// ScriptService writes scripts with DeepSeek
type ScriptService struct {
	deepseek  *client.DeepSeekClient
	validator *validator.Validate
}

func NewScriptService(deepseek *client.DeepSeekClient, validate *validator.Validate) *ScriptService {
	return &ScriptService{
		deepseek:  deepseek,
		validator: validate,
	}
}

// GenerateScript never fails: any vendor problem falls back to the stock script.
func (s *ScriptService) GenerateScript(ctx context.Context, idea model.UserIdea) (*model.ScriptResponse, error) {
	if !s.deepseek.IsConfigured() {
		slog.Warn("DEEPSEEK_API_KEY missing, returning mock script")
		return mockScript(), nil
	}

	script, err := s.requestScript(ctx, idea)
	if err != nil {
		slog.Warn("deepseek unavailable, serving mock script", "error", err)
		return mockScript(), nil
	}
	return script, nil
}

func (s *ScriptService) requestScript(ctx context.Context, idea model.UserIdea) (*model.ScriptResponse, error) {
	user := fmt.Sprintf("Topic: %s. Desired duration: %ds. Brand voice: %s.",
		idea.Topic, idea.DurationSeconds, idea.BrandVoice)

	content, err := s.deepseek.ChatCompletionJSON(ctx, scriptSystemPrompt, user, 1200)
	if err != nil {
		return nil, err
	}

	var script model.ScriptResponse
	if err := json.Unmarshal([]byte(content), &script); err != nil {
		return nil, fmt.Errorf("deepseek returned invalid JSON: %w", err)
	}
	if err := s.validator.Struct(&script); err != nil {
		return nil, fmt.Errorf("deepseek JSON failed validation: %w", err)
	}
	if script.Metadata.Tags == nil {
		script.Metadata.Tags = []string{}
	}
	return &script, nil
}
