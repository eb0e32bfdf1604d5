package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autovideo/api/internal/client"
	"github.com/autovideo/api/internal/model"
	"github.com/autovideo/api/internal/store"
)

var (
	ErrFaceNotFound     = errors.New("Face not found")
	ErrUnsupportedImage = errors.New("Only JPEG and PNG images are allowed")
	ErrImageTooLarge    = errors.New("Image is too large")
)

// FaceImage is the uploaded picture of a face
type FaceImage struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// FaceService manages the face registry
type FaceService struct {
	store    *store.FaceStore
	storage  client.StorageClient
	maxBytes int64
	now      func() time.Time
}

func NewFaceService(faceStore *store.FaceStore, storage client.StorageClient, maxBytes int64) *FaceService {
	return &FaceService{
		store:    faceStore,
		storage:  storage,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (s *FaceService) List(ctx context.Context) ([]*model.Face, error) {
	faces, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if faces == nil {
		faces = []*model.Face{}
	}
	return faces, nil
}

func (s *FaceService) Get(ctx context.Context, id string) (*model.Face, error) {
	f, err := s.store.Get(ctx, id)
	return f, mapFaceErr(err)
}

// Create stores the image and registers the face. The image is removed again if
// the database insert fails.
func (s *FaceService) Create(ctx context.Context, req model.CreateFaceRequest, img FaceImage) (*model.Face, error) {
	ext, ok := model.AllowedFaceImageTypes[normalizeContentType(img.ContentType)]
	if !ok {
		return nil, ErrUnsupportedImage
	}
	if s.maxBytes > 0 && img.Size > s.maxBytes {
		return nil, ErrImageTooLarge
	}

	id := uuid.New().String()
	key := fmt.Sprintf("faces/%s%s", id, ext)

	url, err := s.storage.Upload(ctx, key, img.Body, img.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store face image: %w", err)
	}

	now := s.now().UTC()
	face := &model.Face{
		ID:         id,
		Name:       strings.TrimSpace(req.Name),
		Descriptor: req.Descriptor,
		ImageURL:   url,
		ImageKey:   key,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, face); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			slog.Warn("failed to remove orphaned face image", "key", key, "error", delErr)
		}
		return nil, err
	}
	return face, nil
}

func (s *FaceService) Rename(ctx context.Context, id, name string) (*model.Face, error) {
	f, err := s.store.Rename(ctx, id, strings.TrimSpace(name), s.now().UTC())
	return f, mapFaceErr(err)
}

// Delete removes the face and then its image. A failed image delete is only logged.
func (s *FaceService) Delete(ctx context.Context, id string) error {
	f, err := s.store.Delete(ctx, id)
	if err != nil {
		return mapFaceErr(err)
	}
	if f.ImageKey != "" {
		if err := s.storage.Delete(ctx, f.ImageKey); err != nil {
			slog.Warn("failed to delete face image", "face_id", id, "key", f.ImageKey, "error", err)
		}
	}
	return nil
}

func mapFaceErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrFaceNotFound
	}
	return err
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
