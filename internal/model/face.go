package model

import "time"

// Face is a registered face with its detection descriptor
type Face struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Descriptor []float64 `json:"descriptor"`
	ImageURL   string    `json:"imageUrl"`
	ImageKey   string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CreateFaceRequest carries the non-file fields of a multipart face upload
type CreateFaceRequest struct {
	Name       string    `validate:"required,max=120"`
	Descriptor []float64 `validate:"required,min=1"`
}

// UpdateFaceRequest is the body of PUT /api/faces/:id
type UpdateFaceRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// FaceListResponse is the body of GET /api/faces
type FaceListResponse struct {
	Faces []*Face `json:"faces"`
}

// Accepted face image types
var AllowedFaceImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}
