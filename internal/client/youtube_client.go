package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/autovideo/api/internal/config"
)

const (
	googleTokenURL   = "https://oauth2.googleapis.com/token"
	youtubeUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos"
)

// YouTubeClient uploads videos with an offline refresh token
type YouTubeClient struct {
	httpClient    *http.Client
	clientID      string
	clientSecret  string
	refreshToken  string
	privacyStatus string

	tokenURL  string
	uploadURL string
}

// VideoMetadata is the snippet of an uploaded video
type VideoMetadata struct {
	Title       string
	Description string
	Tags        []string
}

type youtubeSnippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"categoryId"`
}

type youtubeStatus struct {
	PrivacyStatus string `json:"privacyStatus"`
}

type youtubeVideo struct {
	ID      string          `json:"id,omitempty"`
	Snippet *youtubeSnippet `json:"snippet,omitempty"`
	Status  *youtubeStatus  `json:"status,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// NewYouTubeClient creates a new YouTube Data API client
func NewYouTubeClient(cfg config.YouTubeConfig) *YouTubeClient {
	privacy := cfg.PrivacyStatus
	if privacy == "" {
		privacy = "private"
	}
	return &YouTubeClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		refreshToken:  cfg.RefreshToken,
		privacyStatus: privacy,
		tokenURL:      googleTokenURL,
		uploadURL:     youtubeUploadURL,
	}
}

// AccessToken exchanges the refresh token for a short-lived access token
func (c *YouTubeClient) AccessToken(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {c.refreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google oauth error (status %d): %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to unmarshal token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("google oauth response missing access_token")
	}
	return tok.AccessToken, nil
}

// UploadFromURL streams the video at videoURL into a resumable upload session and
// returns the new video id
func (c *YouTubeClient) UploadFromURL(ctx context.Context, videoURL string, meta VideoMetadata) (string, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	src, err := c.fetch(ctx, videoURL)
	if err != nil {
		return "", err
	}
	defer src.Body.Close()

	contentType := src.Header.Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "video/") {
		contentType = "video/mp4"
	}

	session, err := c.startSession(ctx, token, contentType, meta)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session, src.Body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	if src.ContentLength > 0 {
		req.ContentLength = src.ContentLength
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("youtube upload error (status %d): %s", resp.StatusCode, string(body))
	}

	var video youtubeVideo
	if err := json.Unmarshal(body, &video); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if video.ID == "" {
		return "", fmt.Errorf("youtube response missing video id")
	}
	slog.Info("youtube upload complete", "video_id", video.ID)
	return video.ID, nil
}

func (c *YouTubeClient) startSession(ctx context.Context, token, contentType string, meta VideoMetadata) (string, error) {
	body, err := json.Marshal(youtubeVideo{
		Snippet: &youtubeSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryID:  "22",
		},
		Status: &youtubeStatus{PrivacyStatus: c.privacyStatus},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	endpoint := c.uploadURL + "?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to start upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("youtube session error (status %d): %s", resp.StatusCode, string(msg))
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("youtube session response missing Location header")
	}
	return location, nil
}

func (c *YouTubeClient) fetch(ctx context.Context, videoURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("video download error (status %d)", resp.StatusCode)
	}
	return resp, nil
}

// IsConfigured returns true if the client has OAuth credentials
func (c *YouTubeClient) IsConfigured() bool {
	return c != nil && c.clientID != "" && c.clientSecret != "" && c.refreshToken != ""
}
