package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/autovideo/api/internal/client"
	"github.com/autovideo/api/internal/model"
	"github.com/autovideo/api/internal/pipeline"
)

const (
	reasonMissingOAuth = "Missing OAuth credentials"
	reasonMockVideo    = "Mock video cannot be uploaded"
)

// PublishService uploads finished videos to YouTube
type PublishService struct {
	youtube *client.YouTubeClient
}

func NewPublishService(youtube *client.YouTubeClient) *PublishService {
	return &PublishService{youtube: youtube}
}

// Publish uploads the video. Missing credentials and mock videos are reported as
// skipped rather than failed.
func (s *PublishService) Publish(ctx context.Context, in pipeline.PublishInput) (*model.PublishArtifact, error) {
	slog.Info("publish triggered", "job_id", in.JobID, "topic", in.Idea.Topic,
		"video", videoURL(in.Video), "audio", audioURL(in.Audio), "captions", in.Captions != nil)

	if !s.youtube.IsConfigured() {
		slog.Warn("YouTube OAuth credentials missing, skipping publish", "job_id", in.JobID)
		return skipped(reasonMissingOAuth), nil
	}
	if in.Video == nil || in.Video.Provider == model.VideoProviderMock || !isFetchable(in.Video.VideoURL) {
		return skipped(reasonMockVideo), nil
	}

	videoID, err := s.youtube.UploadFromURL(ctx, in.Video.VideoURL, uploadMetadata(in))
	if err != nil {
		return nil, err
	}
	slog.Info("video uploaded to youtube", "job_id", in.JobID, "video_id", videoID)

	return &model.PublishArtifact{
		Status:  model.PublishStatusUploaded,
		VideoID: videoID,
	}, nil
}

func skipped(reason string) *model.PublishArtifact {
	return &model.PublishArtifact{
		Status: model.PublishStatusSkipped,
		Reason: reason,
	}
}

// uploadMetadata takes title, description and tags from the script. A missing
// title falls back to the idea topic and a missing description to the transcript.
func uploadMetadata(in pipeline.PublishInput) client.VideoMetadata {
	var meta client.VideoMetadata
	if in.Script != nil {
		meta.Title = strings.TrimSpace(in.Script.Metadata.Title)
		meta.Description = strings.TrimSpace(in.Script.Metadata.Description)
		meta.Tags = append([]string(nil), in.Script.Metadata.Tags...)
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(in.Idea.Topic)
	}
	if meta.Description == "" && in.Captions != nil {
		meta.Description = strings.TrimSpace(in.Captions.Transcript)
	}
	return meta
}

func videoURL(v *model.VideoArtifact) string {
	if v == nil {
		return ""
	}
	return v.VideoURL
}

func audioURL(a *model.AudioArtifact) string {
	if a == nil {
		return ""
	}
	return a.VoiceoverURL
}
