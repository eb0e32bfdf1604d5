package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/autovideo/api/internal/model"
	"github.com/autovideo/api/internal/service"
	"github.com/autovideo/api/pkg/response"
)

type FacesHandler struct {
	service   *service.FaceService
	validator *validator.Validate
	maxBytes  int64
}

func NewFacesHandler(svc *service.FaceService, v *validator.Validate, maxBytes int64) *FacesHandler {
	return &FacesHandler{
		service:   svc,
		validator: v,
		maxBytes:  maxBytes,
	}
}

// List handles GET /api/faces
// @Summary      List faces
// @Tags         Faces
// @Produce      json
// @Success      200 {object} model.FaceListResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/faces [get]
func (h *FacesHandler) List(c *fiber.Ctx) error {
	faces, err := h.service.List(c.UserContext())
	if err != nil {
		slog.Error("failed to list faces", "error", err)
		return response.ServiceError(c, "Failed to retrieve faces")
	}
	return response.OK(c, model.FaceListResponse{Faces: faces})
}

// Get handles GET /api/faces/:id
// @Summary      Get face
// @Tags         Faces
// @Produce      json
// @Param        id path string true "Face ID"
// @Success      200 {object} model.Face
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/faces/{id} [get]
func (h *FacesHandler) Get(c *fiber.Ctx) error {
	face, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.faceError(c, err, "Failed to retrieve face")
	}
	return response.OK(c, face)
}

// Create handles POST /api/faces
// @Summary      Register face
// @Description  Multipart upload of a face image with its detection descriptor
// @Tags         Faces
// @Accept       multipart/form-data
// @Produce      json
// @Param        name formData string true "Display name"
// @Param        descriptor formData string true "JSON array of numbers"
// @Param        image formData file true "JPEG or PNG image"
// @Success      201 {object} model.Face
// @Failure      400 {object} response.ErrorResponse
// @Failure      413 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Router       /api/faces [post]
func (h *FacesHandler) Create(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return response.ValidationError(c, "Image file is required")
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		return response.Error(c, fiber.StatusRequestEntityTooLarge, response.CodeValidationError,
			fmt.Sprintf("Image exceeds %d bytes", h.maxBytes))
	}

	req := model.CreateFaceRequest{Name: c.FormValue("name")}
	if raw := c.FormValue("descriptor"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Descriptor); err != nil {
			return response.ValidationError(c, "Face descriptor must be a JSON array of numbers")
		}
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, validationMessage(err))
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to read image")
	}
	defer f.Close()

	face, err := h.service.Create(c.UserContext(), req, service.FaceImage{
		Body:        f,
		Size:        file.Size,
		ContentType: file.Header.Get("Content-Type"),
	})
	if err != nil {
		return h.faceError(c, err, "Failed to add face")
	}
	return response.Created(c, face)
}

// Update handles PUT /api/faces/:id
// @Summary      Rename face
// @Tags         Faces
// @Accept       json
// @Produce      json
// @Param        id path string true "Face ID"
// @Param        request body model.UpdateFaceRequest true "New name"
// @Success      200 {object} model.Face
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/faces/{id} [put]
func (h *FacesHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateFaceRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body")
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, validationMessage(err))
	}

	face, err := h.service.Rename(c.UserContext(), c.Params("id"), req.Name)
	if err != nil {
		return h.faceError(c, err, "Failed to update face")
	}
	return response.OK(c, face)
}

// Delete handles DELETE /api/faces/:id
// @Summary      Delete face
// @Tags         Faces
// @Param        id path string true "Face ID"
// @Success      204
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/faces/{id} [delete]
func (h *FacesHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return h.faceError(c, err, "Failed to delete face")
	}
	return response.NoContent(c)
}

func (h *FacesHandler) faceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrFaceNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrUnsupportedImage):
		return response.ValidationError(c, err.Error())
	case errors.Is(err, service.ErrImageTooLarge):
		return response.Error(c, fiber.StatusRequestEntityTooLarge, response.CodeValidationError, err.Error())
	}
	slog.Error(fallback, "error", err)
	return response.ServiceError(c, fallback)
}
