package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/autovideo/api/internal/config"
)

// ElevenLabsClient covers text-to-speech and Scribe speech-to-text
type ElevenLabsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	voiceID    string
	modelID    string
}

// VoiceSettings tunes the synthesized voice
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// TextToSpeechRequest represents the request body for speech synthesis
type TextToSpeechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// TranscriptWord is one word of a Scribe transcript
type TranscriptWord struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Type  string  `json:"type"`
}

// Transcription is the Scribe response
type Transcription struct {
	LanguageCode string           `json:"language_code"`
	Text         string           `json:"text"`
	Words        []TranscriptWord `json:"words"`
}

// NewElevenLabsClient creates a new ElevenLabs API client
func NewElevenLabsClient(cfg config.ElevenLabsConfig) *ElevenLabsClient {
	return &ElevenLabsClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		voiceID: cfg.VoiceID,
		modelID: cfg.ModelID,
	}
}

// TextToSpeech returns MP3 bytes for text
func (c *ElevenLabsClient) TextToSpeech(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(TextToSpeechRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: VoiceSettings{
			Stability:       0.4,
			SimilarityBoost: 0.7,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/v1/text-to-speech/" + url.PathEscape(c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	return c.do(req)
}

// SpeechToText transcribes audio that Scribe can fetch from audioURL
func (c *ElevenLabsClient) SpeechToText(ctx context.Context, audioURL string) (*Transcription, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("model_id", "scribe_v1"); err != nil {
		return nil, err
	}
	if err := w.WriteField("cloud_storage_url", audioURL); err != nil {
		return nil, err
	}
	if err := w.WriteField("timestamps_granularity", "word"); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech-to-text", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result Transcription
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

func (c *ElevenLabsClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	slog.Debug("elevenlabs response", "method", req.Method, "url", req.URL.Path, "status", resp.StatusCode, "bytes", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ElevenLabsClient) IsConfigured() bool {
	return c != nil && c.apiKey != ""
}
