package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/autovideo/api/internal/config"
)

var (
	ErrPollTimeout      = errors.New("Kie generation timed out")
	ErrGenerationFailed = errors.New("Kie generation failed")
)

// KieClient talks to the Kie Runway video generation API
type KieClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	policy     RetryPolicy
}

// GenerateVideoRequest represents the request for video generation
type GenerateVideoRequest struct {
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	Quality     string `json:"quality"`
	AspectRatio string `json:"aspectRatio"`
	WaterMark   string `json:"waterMark"`
}

// The API wraps payloads in {"code","msg","data"}, but some responses are flat.
type kieGenerateResponse struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	TaskID string `json:"taskId"`
	Data   *struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

// VideoRecord is the status of a generation task
type VideoRecord struct {
	State     string `json:"state"`
	VideoInfo *struct {
		VideoURL string `json:"videoUrl"`
	} `json:"videoInfo"`
}

type kieRecordResponse struct {
	VideoRecord
	Data *VideoRecord `json:"data"`
}

// NewKieClient creates a new Kie API client
func NewKieClient(cfg config.KieConfig) *KieClient {
	return &KieClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		policy:  RetryPolicyFromConfig(cfg),
	}
}

// WithRetryPolicy replaces the polling schedule.
func (c *KieClient) WithRetryPolicy(p RetryPolicy) *KieClient {
	c.policy = p
	return c
}

// Generate starts a generation task and returns its id
func (c *KieClient) Generate(ctx context.Context, req *GenerateVideoRequest) (string, error) {
	var result kieGenerateResponse
	if err := c.post(ctx, "/api/v1/runway/generate", req, &result); err != nil {
		return "", err
	}
	taskID := result.TaskID
	if result.Data != nil && result.Data.TaskID != "" {
		taskID = result.Data.TaskID
	}
	if taskID == "" {
		return "", fmt.Errorf("kie response missing taskId")
	}
	return taskID, nil
}

// RecordDetail retrieves the status of a generation task
func (c *KieClient) RecordDetail(ctx context.Context, taskID string) (*VideoRecord, error) {
	endpoint := "/api/v1/runway/record-detail?taskId=" + url.QueryEscape(taskID)
	var result kieRecordResponse
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	if result.Data != nil {
		return result.Data, nil
	}
	return &result.VideoRecord, nil
}

// PollVideo waits for a task to finish and returns the video URL. It gives up with
// ErrPollTimeout once the retry policy is exhausted.
func (c *KieClient) PollVideo(ctx context.Context, taskID string) (string, error) {
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		record, err := c.RecordDetail(ctx, taskID)
		if err != nil {
			return "", fmt.Errorf("kie poll failed: %w", err)
		}

		switch record.State {
		case "success":
			if record.VideoInfo == nil || record.VideoInfo.VideoURL == "" {
				return "", fmt.Errorf("kie success response missing videoUrl")
			}
			return record.VideoInfo.VideoURL, nil
		case "fail":
			return "", ErrGenerationFailed
		}

		delay := c.policy.Delay(attempt)
		slog.Debug("polling kie task", "task_id", taskID, "attempt", attempt+1, "state", record.State, "delay", delay)
		if err := c.policy.wait(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", ErrPollTimeout
}

// post sends a POST request with JSON body
func (c *KieClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *KieClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.doRequest(req, result)
}

func (c *KieClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	slog.Debug("kie response", "method", req.Method, "url", req.URL.Path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("kie API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *KieClient) IsConfigured() bool {
	return c != nil && c.apiKey != ""
}
