package handler

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/autovideo/api/internal/model"
	"github.com/autovideo/api/internal/pipeline"
	ws "github.com/autovideo/api/internal/websocket"
	"github.com/autovideo/api/pkg/response"
)

type JobsHandler struct {
	orchestrator *pipeline.Orchestrator
	hub          *ws.Hub
	validator    *validator.Validate
}

func NewJobsHandler(orch *pipeline.Orchestrator, hub *ws.Hub, v *validator.Validate) *JobsHandler {
	return &JobsHandler{
		orchestrator: orch,
		hub:          hub,
		validator:    v,
	}
}

// List handles GET /api/jobs
// @Summary      List jobs
// @Description  All stored jobs, newest first
// @Tags         Jobs
// @Produce      json
// @Success      200 {object} model.JobListResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/jobs [get]
func (h *JobsHandler) List(c *fiber.Ctx) error {
	jobs, err := h.orchestrator.ListJobs(c.UserContext())
	if err != nil {
		slog.Error("failed to list jobs", "error", err)
		return response.ServiceError(c, "Failed to list jobs")
	}
	if jobs == nil {
		jobs = []*model.JobRecord{}
	}
	return response.OK(c, model.JobListResponse{Jobs: jobs})
}

// Get handles GET /api/jobs/:id
// @Summary      Get job
// @Tags         Jobs
// @Produce      json
// @Param        id path string true "Job ID"
// @Success      200 {object} model.JobRecord
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/jobs/{id} [get]
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	job, err := h.orchestrator.GetJob(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, pipeline.ErrJobNotFound) {
			return response.NotFound(c, pipeline.ErrJobNotFound.Error())
		}
		slog.Error("failed to load job", "job_id", c.Params("id"), "error", err)
		return response.ServiceError(c, "Failed to load job")
	}
	return response.OK(c, job)
}

// Create handles POST /api/jobs
// @Summary      Start a job
// @Description  Creates a pending job and runs it in the background. Every field is optional.
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Param        request body model.CreateJobRequest false "Job idea"
// @Success      201 {object} model.JobRecord
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/jobs [post]
func (h *JobsHandler) Create(c *fiber.Ctx) error {
	var req model.CreateJobRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body")
		}
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, validationMessage(err))
	}

	job, err := h.orchestrator.StartJob(c.UserContext(), req.Idea(), pipeline.StartOptions{AutoPublish: req.AutoPublish})
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidIdea) {
			return response.ValidationError(c, err.Error())
		}
		slog.Error("failed to start job", "error", err)
		return response.ServiceError(c, "Failed to start job")
	}
	return response.Created(c, job)
}

// Publish handles POST /api/jobs/:id/publish
// @Summary      Publish a job
// @Description  Runs the publish stage once script, video, audio and captions are ready
// @Tags         Jobs
// @Produce      json
// @Param        id path string true "Job ID"
// @Success      200 {object} model.JobRecord
// @Failure      400 {object} response.ErrorResponse
// @Router       /api/jobs/{id}/publish [post]
func (h *JobsHandler) Publish(c *fiber.Ctx) error {
	job, err := h.orchestrator.TriggerPublish(c.UserContext(), c.Params("id"))
	if err != nil {
		var stageErr *pipeline.StageError
		switch {
		case errors.Is(err, pipeline.ErrJobNotFound),
			errors.Is(err, pipeline.ErrUpstreamNotReady),
			errors.Is(err, pipeline.ErrPublishRunning):
			return response.BadRequest(c, err.Error())
		case errors.As(err, &stageErr):
			return response.BadRequest(c, stageErr.Error())
		}
		slog.Error("failed to publish job", "job_id", c.Params("id"), "error", err)
		return response.ServiceError(c, "Failed to publish job")
	}
	return response.OK(c, job)
}

// Upgrade rejects non-WebSocket requests to /ws/jobs/:jobId and unknown jobs.
func (h *JobsHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	job, err := h.orchestrator.GetJob(c.UserContext(), c.Params("jobId"))
	if err != nil {
		if errors.Is(err, pipeline.ErrJobNotFound) {
			return response.NotFound(c, pipeline.ErrJobNotFound.Error())
		}
		return response.ServiceError(c, "Failed to load job")
	}
	c.Locals("job", job)
	return c.Next()
}

// Stream handles GET /ws/jobs/:jobId. The current snapshot is sent first, then
// every persisted change.
func (h *JobsHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		jobID := conn.Params("jobId")
		var initial []byte
		if job, ok := conn.Locals("job").(*model.JobRecord); ok {
			data, err := ws.EncodeJob(job)
			if err == nil {
				initial = data
			}
		}
		h.hub.HandleConnection(conn, jobID, initial)
	})
}
